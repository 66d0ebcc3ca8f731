// Package integrations delivers finished leads to the outside world: the
// report email, the CRM and the sales Slack channel. Deliveries run on a
// background worker pool and never block the conversation.
package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	perrors "github.com/p-blackswan/audit-intake/internal/errors"
	"github.com/p-blackswan/audit-intake/internal/report"
)

// JobType names one integration.
type JobType string

const (
	JobEmail JobType = "email"
	JobCRM   JobType = "crm"
	JobSlack JobType = "slack"
)

// Lead is the payload every integration receives.
type Lead struct {
	Report    report.Report `json:"report"`
	ReportURL string        `json:"reportUrl,omitempty"`
}

// Result is what a delivery reports back.
type Result struct {
	Success bool              `json:"success"`
	IDs     map[string]string `json:"ids,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Handler delivers a lead to one integration.
type Handler interface {
	Type() JobType
	Handle(ctx context.Context, lead Lead) (Result, error)
}

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// apiClient is the JSON-over-HTTP plumbing shared by the email and CRM clients.
type apiClient struct {
	service    string
	baseURL    string
	apiKey     string
	httpClient HTTPClient
}

func newAPIClient(service, baseURL, apiKey string, hc HTTPClient) apiClient {
	return apiClient{
		service:    service,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: hc,
	}
}

// do sends in as JSON and decodes the response into out when out is non-nil.
// Transport failures wrap ErrUnavailable and HTTP failures become APIError,
// so both classify correctly under IsRetryable.
func (c apiClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling %s request: %w", c.service, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing %s request: %v: %w", c.service, err, perrors.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return perrors.NewAPIError(c.service, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", c.service, err)
	}
	return nil
}

func displayName(r report.Report) string {
	switch {
	case r.Company != "":
		return r.Company
	case r.Name != "":
		return r.Name
	default:
		return "New Lead"
	}
}

func industryOf(r report.Report) string {
	if r.Extracted.Discovery != nil {
		return r.Extracted.Discovery.Industry
	}
	return ""
}
