// Package submit posts reports to the router's reports endpoint.
package submit

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/reportstream/rs-acceptor/metrics"
	"github.com/reportstream/rs-acceptor/settings"
)

// Option is the processing option passed on the "option" query parameter.
type Option string

const (
	OptionNone             Option = ""
	OptionCheckConnections Option = "CheckConnections"
	OptionValidatePayload  Option = "ValidatePayload"
	OptionSkipSend         Option = "SkipSend"
	OptionSkipInvalidItems Option = "SkipInvalidItems"
	OptionSendImmediately  Option = "SendImmediately"
)

const (
	reportsPath        = "/api/reports"
	defaultHTTPTimeout = 5 * time.Minute
	// bodies beyond this are truncated; the router's responses are small json documents
	maxResponseBytes = 16 << 20
)

// Submitter is the part of the client tests depend on.
type Submitter interface {
	Submit(ctx context.Context, payload []byte, sender settings.Sender, key string, opt Option) (int, []byte, error)
}

var _ Submitter = (*Client)(nil)

type Client struct {
	endpoint string
	http     *http.Client
	log      log.Logger
}

func NewClient(endpoint string, httpClient *http.Client, logger log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     httpClient,
		log:      logger,
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Submit posts payload as sender and returns the http status code and the response body.
// A non-nil error means no response was received; any status code is returned as is.
func (c *Client) Submit(ctx context.Context, payload []byte, sender settings.Sender, key string, opt Option) (int, []byte, error) {
	u, err := url.Parse(c.endpoint + reportsPath)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "invalid endpoint %s", c.endpoint)
	}
	if opt != OptionNone {
		q := u.Query()
		q.Set("option", string(opt))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return 0, nil, errors.Wrap(err, "error creating request")
	}
	req.Header.Set("client", sender.FullName())
	req.Header.Set("content-type", sender.Format.ContentType())
	if key != "" {
		req.Header.Set("x-functions-key", key)
	}

	c.log.Debug("Submitting report", "url", u.String(), "sender", sender.FullName(), "bytes", len(payload))
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordErrorDetails("submit", err)
		return 0, nil, errors.Wrapf(err, "error posting report for %s", sender.FullName())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "error reading response body")
	}
	metrics.RecordSubmission(sender.FullName(), resp.StatusCode)
	c.log.Debug("Submitted report", "sender", sender.FullName(), "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

// SubmitFile reads path and submits its contents.
func SubmitFile(ctx context.Context, s Submitter, path string, sender settings.Sender, key string) (int, []byte, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "error reading %s", path)
	}
	return s.Submit(ctx, payload, sender, key, OptionNone)
}
