// Package settings loads the organizations, senders and receivers the router is configured with.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the wire format a sender submits or a receiver is sent.
type Format string

const (
	FormatCSV      Format = "CSV"
	FormatHL7      Format = "HL7"
	FormatHL7Batch Format = "HL7_BATCH"
	FormatRedox    Format = "REDOX"
)

// IsValid checks if the Format value is valid
func (f Format) IsValid() bool {
	switch f {
	case FormatCSV, FormatHL7, FormatHL7Batch, FormatRedox:
		return true
	default:
		return false
	}
}

// ContentType returns the content type used to submit a payload in this format.
func (f Format) ContentType() string {
	switch f {
	case FormatHL7, FormatHL7Batch:
		return "application/hl7-v2"
	default:
		return "text/csv"
	}
}

type Timing struct {
	Operation    string `yaml:"operation"`
	NumberPerDay int    `yaml:"numberPerDay"`
	InitialTime  string `yaml:"initialTime"`
}

type Transport struct {
	Type string `yaml:"type"`
	Host string `yaml:"host,omitempty"`
	Port string `yaml:"port,omitempty"`
}

type Translation struct {
	Format Format `yaml:"format"`
}

type Receiver struct {
	Name             string `yaml:"name"`
	OrganizationName string `yaml:"organizationName"`
	Topic            string `yaml:"topic"`
	// Timing is set when the receiver batches items before sending.
	Timing *Timing `yaml:"timing,omitempty"`
	// Transport is set when the receiver forwards items to an external destination.
	Transport   *Transport  `yaml:"transport,omitempty"`
	Translation Translation `yaml:"translation"`
}

// FullName returns "organization.receiver".
func (r Receiver) FullName() string {
	return r.OrganizationName + "." + r.Name
}

func (r Receiver) Format() Format {
	return r.Translation.Format
}

type Sender struct {
	Name             string `yaml:"name"`
	OrganizationName string `yaml:"organizationName"`
	Topic            string `yaml:"topic"`
	SchemaName       string `yaml:"schemaName"`
	Format           Format `yaml:"format"`
}

// FullName returns "organization.sender", the value of the client header.
func (s Sender) FullName() string {
	return s.OrganizationName + "." + s.Name
}

type Organization struct {
	Name         string     `yaml:"name"`
	Description  string     `yaml:"description"`
	Jurisdiction string     `yaml:"jurisdiction"`
	Senders      []Sender   `yaml:"senders"`
	Receivers    []Receiver `yaml:"receivers"`
}

// Catalog is the read-only set of organizations loaded at startup.
type Catalog struct {
	Organizations []Organization
}

// Load reads a YAML list of organizations.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML list of organizations.
func Parse(data []byte) (*Catalog, error) {
	var orgs []Organization
	if err := yaml.Unmarshal(data, &orgs); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if len(orgs) == 0 {
		return nil, errors.New("settings contain no organizations")
	}

	seen := make(map[string]struct{})
	for i := range orgs {
		org := &orgs[i]
		if org.Name == "" {
			return nil, fmt.Errorf("organization %d has no name", i)
		}
		if _, ok := seen[org.Name]; ok {
			return nil, fmt.Errorf("duplicate organization '%s'", org.Name)
		}
		seen[org.Name] = struct{}{}

		// organizationName defaults to the enclosing organization
		for j := range org.Senders {
			if org.Senders[j].OrganizationName == "" {
				org.Senders[j].OrganizationName = org.Name
			}
			if f := org.Senders[j].Format; f != "" && !f.IsValid() {
				return nil, fmt.Errorf("invalid format '%s' for sender %s", f, org.Senders[j].FullName())
			}
		}
		for j := range org.Receivers {
			if org.Receivers[j].OrganizationName == "" {
				org.Receivers[j].OrganizationName = org.Name
			}
			if f := org.Receivers[j].Format(); f != "" && !f.IsValid() {
				return nil, fmt.Errorf("invalid format '%s' for receiver %s", f, org.Receivers[j].FullName())
			}
		}
	}
	return &Catalog{Organizations: orgs}, nil
}

func (c *Catalog) FindOrganization(name string) (*Organization, bool) {
	for i := range c.Organizations {
		if c.Organizations[i].Name == name {
			return &c.Organizations[i], true
		}
	}
	return nil, false
}

// Senders returns every sender of every organization in declaration order.
func (c *Catalog) Senders() []Sender {
	var out []Sender
	for _, org := range c.Organizations {
		out = append(out, org.Senders...)
	}
	return out
}

// Receivers returns every receiver of every organization in declaration order.
func (c *Catalog) Receivers() []Receiver {
	var out []Receiver
	for _, org := range c.Organizations {
		out = append(out, org.Receivers...)
	}
	return out
}

// FindSender looks a sender up by its "organization.sender" full name.
func (c *Catalog) FindSender(fullName string) (Sender, bool) {
	orgName, name, ok := strings.Cut(fullName, ".")
	if !ok {
		return Sender{}, false
	}
	for _, s := range c.Senders() {
		if s.OrganizationName == orgName && s.Name == name {
			return s, true
		}
	}
	return Sender{}, false
}

// FindReceiver looks a receiver up by organization and receiver name.
func (c *Catalog) FindReceiver(orgName, name string) (Receiver, bool) {
	for _, r := range c.Receivers() {
		if r.OrganizationName == orgName && r.Name == name {
			return r, true
		}
	}
	return Receiver{}, false
}

// SendersOf returns the senders belonging to any of the given organizations.
func (c *Catalog) SendersOf(orgNames ...string) []Sender {
	var out []Sender
	for _, s := range c.Senders() {
		for _, o := range orgNames {
			if s.OrganizationName == o {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
