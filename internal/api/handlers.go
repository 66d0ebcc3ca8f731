package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/audit-intake/internal/conversation"
	perrors "github.com/p-blackswan/audit-intake/internal/errors"
	"github.com/p-blackswan/audit-intake/internal/report"
	"github.com/p-blackswan/audit-intake/internal/requestid"
	"github.com/p-blackswan/audit-intake/internal/store"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	engine   *conversation.Engine
	leads    LeadReader
	admin    AdminStore
	replayer Replayer
	links    *report.LinkSigner
	logger   zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, logger zerolog.Logger) *Handlers {
	return &Handlers{
		engine:   deps.Engine,
		leads:    deps.Leads,
		admin:    deps.Admin,
		replayer: deps.Replayer,
		links:    deps.Links,
		logger:   logger.With().Str("component", "handlers").Logger(),
	}
}

// MessageRequest is the body of POST /api/audit/message.
type MessageRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return perrors.NewClientInputError("body", "must be a valid JSON object")
	}
	return nil
}

// Start handles POST /api/audit/start.
func (h *Handlers) Start(c *fiber.Ctx) error {
	var req conversation.StartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	resp, err := h.engine.Start(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Message handles POST /api/audit/message.
func (h *Handlers) Message(c *fiber.Ctx) error {
	var req MessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := requestid.WithSessionID(c.UserContext(), req.SessionID)
	resp, err := h.engine.Answer(ctx, req.SessionID, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Session handles GET /api/audit/session/:id.
func (h *Handlers) Session(c *fiber.Ctx) error {
	resp, err := h.engine.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Coverage handles GET /api/audit/session/:id/coverage.
func (h *Handlers) Coverage(c *fiber.Ctx) error {
	cov, err := h.engine.Coverage(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(cov)
}

// Generate handles POST /api/audit/generate. An incomplete audit is a
// successful request whose body says what is still missing.
func (h *Handlers) Generate(c *fiber.Ctx) error {
	var req conversation.GenerateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ctx := requestid.WithSessionID(c.UserContext(), req.SessionID)
	res, err := h.engine.GenerateReport(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// DownloadReport handles GET /api/reports/:token. The format query selects
// json (default), html or xlsx.
func (h *Handlers) DownloadReport(c *fiber.Ctx) error {
	if h.links == nil || h.leads == nil {
		return fiber.NewError(fiber.StatusNotFound, "report downloads are not enabled")
	}
	claims, err := h.links.Verify(c.Params("token"))
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrAuthFailure, err)
	}
	lead, err := h.leads.GetLead(claims.ReportID)
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrDependency, err)
	}
	if lead == nil {
		return fiber.NewError(fiber.StatusNotFound, "report not found")
	}

	format := c.Query("format", "json")
	if format == "json" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(lead.Report)
	}

	var r report.Report
	if err := json.Unmarshal([]byte(lead.Report), &r); err != nil {
		return fmt.Errorf("decoding stored report %s: %w", lead.ID, err)
	}
	switch format {
	case "html":
		page, err := report.RenderHTML(r)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(page)
	case "xlsx":
		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf, r); err != nil {
			return err
		}
		c.Attachment("ai-opportunity-report.xlsx")
		c.Set(fiber.HeaderContentType, xlsxMIME)
		return c.Send(buf.Bytes())
	default:
		return perrors.NewClientInputError("format", "must be json, html or xlsx")
	}
}

type leadSummary struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	Company        string    `json:"company,omitempty"`
	Industry       string    `json:"industry,omitempty"`
	PainScore      int       `json:"painScore"`
	EstimatedValue float64   `json:"estimatedValue"`
	CRMContactID   string    `json:"crmContactId,omitempty"`
	CRMDealID      string    `json:"crmDealId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ListLeads handles GET /api/admin/leads.
func (h *Handlers) ListLeads(c *fiber.Ctx) error {
	leads, err := h.admin.ListLeads(c.QueryInt("limit", 50))
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrDependency, err)
	}
	out := make([]leadSummary, 0, len(leads))
	for _, l := range leads {
		out = append(out, summarizeLead(l))
	}
	return c.JSON(fiber.Map{"leads": out, "count": len(out)})
}

func summarizeLead(l *store.Lead) leadSummary {
	return leadSummary{
		ID:             l.ID,
		SessionID:      l.SessionID,
		Email:          l.Email,
		Name:           l.Name,
		Company:        l.Company,
		Industry:       l.Industry,
		PainScore:      l.PainScore,
		EstimatedValue: l.EstimatedValue,
		CRMContactID:   l.CRMContactID,
		CRMDealID:      l.CRMDealID,
		CreatedAt:      time.UnixMilli(l.CreatedAt).UTC(),
	}
}

type deadLetterView struct {
	ID          string     `json:"id"`
	JobType     string     `json:"jobType"`
	Error       string     `json:"error"`
	RetryCount  int        `json:"retryCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

func unixMilliPtr(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// ListDeadLetters handles GET /api/admin/dead-letters.
func (h *Handlers) ListDeadLetters(c *fiber.Ctx) error {
	dls, err := h.admin.ListDeadLetters(c.QueryBool("resolved", false), c.QueryInt("limit", 50))
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrDependency, err)
	}
	out := make([]deadLetterView, 0, len(dls))
	for _, dl := range dls {
		out = append(out, deadLetterView{
			ID:          dl.ID,
			JobType:     dl.JobType,
			Error:       dl.Error,
			RetryCount:  dl.RetryCount,
			CreatedAt:   time.UnixMilli(dl.CreatedAt).UTC(),
			NextRetryAt: unixMilliPtr(dl.NextRetryAt),
			ResolvedAt:  unixMilliPtr(dl.ResolvedAt),
		})
	}
	return c.JSON(fiber.Map{"deadLetters": out, "count": len(out)})
}

// ReplayDeadLetters handles POST /api/admin/dead-letters/replay.
func (h *Handlers) ReplayDeadLetters(c *fiber.Ctx) error {
	stats, err := h.replayer.ReplayDeadLetters(c.UserContext())
	if err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrDependency, err)
	}
	h.logger.Info().
		Int("resolved", stats.Resolved).
		Int("failed", stats.Failed).
		Int("gave_up", stats.GaveUp).
		Msg("Dead letters replayed on request")
	return c.JSON(stats)
}
