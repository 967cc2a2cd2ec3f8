// Package response interprets the JSON body the router returns for a report submission.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TopicCovid19 is the topic every catalog sender submits under.
const TopicCovid19 = "covid-19"

// ParseError is returned when a field the interpreter depends on is missing, null or malformed.
// A missing count is never treated as zero.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("response field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("response field %q is missing", e.Field)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError checks if the error is or wraps a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return err != nil && errors.As(err, &pe)
}

// Destination is one receiver the router routed items of the submission to.
type Destination struct {
	Organization   string
	OrganizationID string
	Service        string
	ItemCount      int
}

// Outcome is the typed view of a submission response.
type Outcome struct {
	// ID is nil when the router did not assign a submission id.
	ID               *uuid.UUID
	Topic            string
	ErrorCount       int
	WarningCount     int
	DestinationCount int
	Destinations     []Destination
	FirstErrorDetail string
	// SkippedDestinations counts destination entries that were not objects with a string service.
	SkippedDestinations int
}

// Check is the reduced view used for connectivity checks and rejected submissions,
// where the router reports counts but no routing.
type Check struct {
	ID               *uuid.UUID
	ErrorCount       int
	WarningCount     int
	FirstErrorDetail string
}

type rawDestination struct {
	Organization   *string `json:"organization"`
	OrganizationID *string `json:"organization_id"`
	Service        *string `json:"service"`
	ItemCount      *int    `json:"itemCount"`
}

type rawError struct {
	Details string `json:"details"`
}

// Parse interprets a submission response body.
func Parse(body []byte) (*Outcome, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	id, err := parseID(fields)
	if err != nil {
		return nil, err
	}

	out := &Outcome{ID: id}
	if out.ErrorCount, err = requireInt(fields, "errorCount"); err != nil {
		return nil, err
	}
	if out.WarningCount, err = requireInt(fields, "warningCount"); err != nil {
		return nil, err
	}
	if out.DestinationCount, err = requireInt(fields, "destinationCount"); err != nil {
		return nil, err
	}

	if raw, ok := fields["topic"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &out.Topic); err != nil {
			return nil, &ParseError{Field: "topic", Err: err}
		}
	}

	if raw, ok := fields["destinations"]; ok && !isNull(raw) {
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, &ParseError{Field: "destinations", Err: err}
		}
		for _, entry := range entries {
			var d rawDestination
			if err := json.Unmarshal(entry, &d); err != nil || d.Service == nil {
				out.SkippedDestinations++
				continue
			}
			dest := Destination{Service: *d.Service}
			if d.Organization != nil {
				dest.Organization = *d.Organization
			}
			if d.OrganizationID != nil {
				dest.OrganizationID = *d.OrganizationID
			}
			if d.ItemCount != nil {
				dest.ItemCount = *d.ItemCount
			}
			out.Destinations = append(out.Destinations, dest)
		}
	}

	out.FirstErrorDetail = firstErrorDetail(fields)
	return out, nil
}

// ParseCheck interprets only the id, error and warning counts of a response body.
func ParseCheck(body []byte) (*Check, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	id, err := parseID(fields)
	if err != nil {
		return nil, err
	}
	c := &Check{ID: id}
	if c.ErrorCount, err = requireInt(fields, "errorCount"); err != nil {
		return nil, err
	}
	if c.WarningCount, err = requireInt(fields, "warningCount"); err != nil {
		return nil, err
	}
	c.FirstErrorDetail = firstErrorDetail(fields)
	return c, nil
}

// ParseID extracts only the submission id. A nil id with a nil error means the router assigned none.
func ParseID(body []byte) (*uuid.UUID, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	return parseID(fields)
}

// ItemCountFor returns the item count routed to the named service.
func (o *Outcome) ItemCountFor(service string) (int, bool) {
	for _, d := range o.Destinations {
		if d.Service == service {
			return d.ItemCount, true
		}
	}
	return 0, false
}

// HasCovidTopic reports whether the response carries the covid-19 topic.
func (o *Outcome) HasCovidTopic() bool {
	return strings.EqualFold(o.Topic, TopicCovid19)
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &ParseError{Field: "$", Err: err}
	}
	if fields == nil {
		return nil, &ParseError{Field: "$", Err: errors.New("body is null")}
	}
	return fields, nil
}

func parseID(fields map[string]json.RawMessage) (*uuid.UUID, error) {
	raw, ok := fields["id"]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &ParseError{Field: "id", Err: err}
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, &ParseError{Field: "id", Err: err}
	}
	return &id, nil
}

func requireInt(fields map[string]json.RawMessage, name string) (int, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return 0, &ParseError{Field: name}
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, &ParseError{Field: name, Err: err}
	}
	return v, nil
}

func firstErrorDetail(fields map[string]json.RawMessage) string {
	raw, ok := fields["errors"]
	if !ok || isNull(raw) {
		return ""
	}
	var errs []rawError
	if err := json.Unmarshal(raw, &errs); err != nil || len(errs) == 0 {
		return ""
	}
	return errs[0].Details
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
