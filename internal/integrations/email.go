package integrations

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/audit-intake/internal/errors"
	"github.com/p-blackswan/audit-intake/internal/report"
)

// Attachment is a file sent with an email. Content is base64 on the wire.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}

// EmailMessage is the transactional email API request body.
type EmailMessage struct {
	From        string       `json:"from"`
	To          []string     `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// EmailClient wraps a transactional email HTTP API.
type EmailClient struct {
	api    apiClient
	from   string
	logger zerolog.Logger
}

// NewEmailClient creates an email client posting to baseURL.
func NewEmailClient(baseURL, apiKey, from string, logger zerolog.Logger) *EmailClient {
	return &EmailClient{
		api:    newAPIClient("email", baseURL, apiKey, &http.Client{Timeout: 30 * time.Second}),
		from:   from,
		logger: logger.With().Str("component", "email").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *EmailClient) SetHTTPClient(hc HTTPClient) {
	c.api.httpClient = hc
}

// Send delivers msg and returns the provider's message id.
func (c *EmailClient) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if msg.From == "" {
		msg.From = c.from
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.api.do(ctx, http.MethodPost, "/emails", msg, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ReportEmailer sends the prospect their report as HTML with an XLSX attachment.
type ReportEmailer struct {
	client *EmailClient
}

// NewReportEmailer creates the email integration.
func NewReportEmailer(c *EmailClient) *ReportEmailer {
	return &ReportEmailer{client: c}
}

// Type implements Handler.
func (e *ReportEmailer) Type() JobType { return JobEmail }

// Handle implements Handler.
func (e *ReportEmailer) Handle(ctx context.Context, lead Lead) (Result, error) {
	r := lead.Report
	if r.Email == "" {
		err := perrors.NewClientInputError("email", "report has no recipient")
		return failed(err), err
	}

	body, err := report.RenderHTML(r)
	if err != nil {
		return failed(err), fmt.Errorf("rendering report html: %w", err)
	}
	var xlsx bytes.Buffer
	if err := report.WriteXLSX(&xlsx, r); err != nil {
		return failed(err), fmt.Errorf("rendering report xlsx: %w", err)
	}

	msg := EmailMessage{
		To:      []string{r.Email},
		Subject: "Your AI Opportunity Report - " + displayName(r),
		HTML:    body,
		Attachments: []Attachment{{
			Filename:    "ai-opportunity-report.xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     xlsx.Bytes(),
		}},
	}
	if lead.ReportURL != "" {
		link := fmt.Sprintf(`<p><a href="%s">View your report online</a></p>`, html.EscapeString(lead.ReportURL))
		msg.HTML = strings.Replace(msg.HTML, "</body>", link+"\n</body>", 1)
	}

	id, err := e.client.Send(ctx, msg)
	if err != nil {
		return failed(err), err
	}
	e.client.logger.Info().Str("report_id", r.ID).Str("message_id", id).Msg("report email sent")
	return Result{Success: true, IDs: map[string]string{"messageId": id}}, nil
}
