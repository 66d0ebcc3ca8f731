// Package conversation drives audit sessions: it loads a session, runs the
// pure audit state machine over an inbound message, and saves the result.
// Writes to one session are serialized in-process and guarded by the
// session store's compare-and-swap across processes.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/audit-intake/internal/audit"
	perrors "github.com/p-blackswan/audit-intake/internal/errors"
	"github.com/p-blackswan/audit-intake/internal/integrations"
	"github.com/p-blackswan/audit-intake/internal/report"
	"github.com/p-blackswan/audit-intake/internal/requestid"
	"github.com/p-blackswan/audit-intake/internal/retry"
	"github.com/p-blackswan/audit-intake/internal/session"
	"github.com/p-blackswan/audit-intake/internal/store"
)

const reportReady = "Your AI opportunity report is ready. I've also sent a copy to %s."

// LeadStore persists completed audits.
type LeadStore interface {
	SaveLead(l *store.Lead) error
	GetLead(id string) (*store.Lead, error)
}

// Dispatcher hands a finished lead to the background integrations.
type Dispatcher interface {
	Enqueue(lead integrations.Lead) ([]*integrations.Job, error)
}

// Recorder receives conversation metrics.
type Recorder interface {
	RecordMessage(phase string)
	RecordTransition(from, to string)
	RecordReport(outcome string)
	RecordConflict()
}

type nopRecorder struct{}

func (nopRecorder) RecordMessage(string)            {}
func (nopRecorder) RecordTransition(string, string) {}
func (nopRecorder) RecordReport(string)             {}
func (nopRecorder) RecordConflict()                 {}

// Option configures an Engine.
type Option func(*Engine)

// WithLeadStore persists generated reports as leads.
func WithLeadStore(ls LeadStore) Option {
	return func(e *Engine) { e.leads = ls }
}

// WithDispatcher enqueues integrations after a report is generated.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatch = d }
}

// WithPolisher rewrites executive summaries before they are stored.
func WithPolisher(p *report.Polisher) Option {
	return func(e *Engine) { e.polisher = p }
}

// WithLinkSigner issues signed download links for generated reports.
func WithLinkSigner(s *report.LinkSigner) Option {
	return func(e *Engine) { e.links = s }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// WithConflictRetry overrides how often a write that lost a race is retried.
func WithConflictRetry(cfg retry.Config) Option {
	return func(e *Engine) { e.conflictRetry = cfg }
}

// Engine orchestrates audit conversations.
type Engine struct {
	sessions      *session.Repository
	builder       *report.Builder
	polisher      *report.Polisher
	links         *report.LinkSigner
	leads         LeadStore
	dispatch      Dispatcher
	metrics       Recorder
	locks         *sessionLocks
	conflictRetry retry.Config
	logger        zerolog.Logger
}

// New creates an Engine. Lead storage, integrations, polishing and links
// are optional and enabled through options.
func New(sessions *session.Repository, builder *report.Builder, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		sessions: sessions,
		builder:  builder,
		metrics:  nopRecorder{},
		locks:    newSessionLocks(),
		conflictRetry: retry.Config{
			MaxAttempts: 5,
			BaseDelay:   10 * time.Millisecond,
			MaxDelay:    200 * time.Millisecond,
			Jitter:      true,
		},
		logger: logger.With().Str("component", "conversation").Logger(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// StartRequest opens or resumes a session.
type StartRequest struct {
	SessionID string `json:"sessionId"`
	Email     string `json:"email"`
}

// Start creates a session in discovery, or resumes an existing one. A
// resumed session that already holds answers is asked whether to continue
// or start over.
func (e *Engine) Start(ctx context.Context, req StartRequest) (Response, error) {
	email := strings.TrimSpace(req.Email)
	if email != "" && !audit.EmailValid(email) {
		return Response{}, perrors.NewClientInputError("email", "must be a valid email address")
	}

	if req.SessionID != "" {
		resp, err := e.resume(ctx, req.SessionID, email)
		if err == nil || !errors.Is(err, perrors.ErrSessionNotFound) {
			return resp, err
		}
	}

	s := session.New(req.SessionID, e.sessions.Now())
	if email != "" {
		s.Email = email
		s.Extracted.ContactInfo = &audit.ContactInfo{Email: email}
	}
	s.AddMessage(audit.RoleAssistant, audit.Greeting, e.sessions.Now())

	unlock := e.locks.Lock(s.ID)
	defer unlock()
	if err := e.sessions.Create(ctx, s); err != nil {
		if errors.Is(err, perrors.ErrConflict) {
			// Someone created it between our lookup and now.
			existing, gerr := e.sessions.Get(ctx, s.ID)
			if gerr != nil {
				return Response{}, gerr
			}
			return newResponse(existing, nil), nil
		}
		return Response{}, err
	}

	log := e.log(ctx, s)
	log.Info().Msg("Audit session started")
	return newResponse(s, nil), nil
}

func (e *Engine) resume(ctx context.Context, id, email string) (Response, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	s, err := e.update(ctx, id, func(s *session.Session) error {
		hadData := !s.Extracted.IsEmpty()
		if email != "" {
			s.Email = email
			if s.Extracted.ContactInfo == nil {
				s.Extracted.ContactInfo = &audit.ContactInfo{}
			}
			if s.Extracted.ContactInfo.Email == "" {
				s.Extracted.ContactInfo.Email = email
			}
		}
		if !hadData {
			return nil
		}
		next, err := audit.Transition(s.Phase, audit.EventResume)
		if err != nil {
			return err
		}
		s.Phase = next
		s.AddMessage(audit.RoleAssistant, audit.WelcomeBack, e.sessions.Now())
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	log := e.log(ctx, s)
	log.Info().Msg("Audit session resumed")
	return newResponse(s, nil), nil
}

// Answer processes one user message: it extracts fields, validates them,
// moves the phase and appends the assistant's reply. Validation errors are
// reported in the response and never stop the conversation.
func (e *Engine) Answer(ctx context.Context, sessionID, message string) (Response, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Response{}, perrors.NewClientInputError("sessionId", "is required")
	}
	if strings.TrimSpace(message) == "" {
		return Response{}, perrors.NewClientInputError("message", "is required")
	}
	if len(message) > audit.MaxMessageLength {
		return Response{}, perrors.NewClientInputError("message",
			fmt.Sprintf("must be at most %d characters", audit.MaxMessageLength))
	}
	clean := audit.SanitizeInput(message)
	if clean == "" {
		return Response{}, perrors.NewClientInputError("message", "contains no usable text")
	}

	unlock := e.locks.Lock(sessionID)
	defer unlock()

	var (
		from       audit.Phase
		validation audit.ValidationResult
		event      audit.Event
	)
	s, err := e.update(ctx, sessionID, func(s *session.Session) error {
		now := e.sessions.Now()
		from = s.Phase
		s.AddMessage(audit.RoleUser, clean, now)

		extracted := audit.Extract(s.Phase, clean, s.Extracted)
		validation = audit.Validate(s.Phase, extracted)

		out, err := audit.Next(audit.Turn{
			Phase:      s.Phase,
			Message:    clean,
			Extracted:  extracted,
			Email:      s.Email,
			NeedsEmail: s.NeedsEmail,
		})
		if err != nil {
			return fmt.Errorf("advancing session: %w", err)
		}
		event = out.Event
		s.Phase = out.Phase
		s.Extracted = out.Extracted
		s.Email = out.Email
		s.NeedsEmail = out.NeedsEmail
		if out.Reset {
			s.ReportID = ""
		}
		s.AddMessage(audit.RoleAssistant, out.Reply, now)
		return nil
	})
	if err != nil {
		return Response{}, err
	}

	e.metrics.RecordMessage(string(from))
	e.metrics.RecordTransition(string(from), string(s.Phase))

	log := e.log(ctx, s)
	ev := log.Debug()
	if from != s.Phase {
		ev = log.Info()
	}
	ev.Str("from", string(from)).Str("event", string(event)).Bool("valid", validation.Valid).Msg("Message processed")
	return newResponse(s, &validation), nil
}

// Get returns a session's current state without changing it.
func (e *Engine) Get(ctx context.Context, sessionID string) (Response, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Response{}, perrors.NewClientInputError("sessionId", "is required")
	}
	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return Response{}, err
	}
	v := audit.Validate(s.Phase, s.Extracted)
	return newResponse(s, &v), nil
}

// Coverage reports how many of the audit steps are done for a session. The
// analysis steps count once a report exists or could be built.
func (e *Engine) Coverage(ctx context.Context, sessionID string) (report.Coverage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return report.Coverage{}, perrors.NewClientInputError("sessionId", "is required")
	}
	s, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return report.Coverage{}, err
	}

	if r := e.storedReport(s); r != nil {
		return report.CoverageOf(s.Extracted, r), nil
	}
	if audit.Evaluate(s.Extracted, audit.PhaseReadyForGeneration).Complete {
		r := e.builder.Build(report.Input{SessionID: s.ID, Email: s.Email, Extracted: s.Extracted})
		return r.Coverage, nil
	}
	return report.CoverageOf(s.Extracted, nil), nil
}

func (e *Engine) storedReport(s *session.Session) *report.Report {
	if e.leads == nil || s.ReportID == "" {
		return nil
	}
	lead, err := e.leads.GetLead(s.ReportID)
	if err != nil || lead == nil {
		return nil
	}
	var r report.Report
	if err := json.Unmarshal([]byte(lead.Report), &r); err != nil {
		e.logger.Warn().Err(err).Str("report_id", s.ReportID).Msg("Stored report is unreadable")
		return nil
	}
	return &r
}

// GenerateRequest asks for the final report.
type GenerateRequest struct {
	SessionID string `json:"sessionId"`
	Email     string `json:"email"`
}

// GenerateReport builds the report once every required field is present.
// Otherwise it returns the missing fields and leaves the session as it is.
// Integrations are queued after the lead is stored and never affect the
// result.
func (e *Engine) GenerateReport(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	email := strings.TrimSpace(req.Email)
	switch {
	case strings.TrimSpace(req.SessionID) == "":
		return GenerateResult{}, perrors.NewClientInputError("sessionId", "is required")
	case email == "":
		return GenerateResult{}, perrors.NewClientInputError("email", "is required")
	case !audit.EmailValid(email):
		return GenerateResult{}, perrors.NewClientInputError("email", "must be a valid email address")
	}

	unlock := e.locks.Lock(req.SessionID)
	defer unlock()

	s, err := e.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return GenerateResult{}, err
	}
	log := e.log(ctx, s)

	if c := audit.Evaluate(s.Extracted, audit.PhaseReadyForGeneration); !c.Complete {
		e.metrics.RecordReport("incomplete")
		log.Info().Strs("missing", c.MissingFields).Msg("Report requested before audit was complete")
		return GenerateResult{Missing: c.MissingFields, FollowUpQuestion: c.ClarifyingQuestion}, nil
	}

	r := e.builder.Build(report.Input{SessionID: s.ID, Email: email, Extracted: s.Extracted})
	if e.polisher != nil {
		r.Summary = e.polisher.Polish(ctx, r)
	}

	if err := e.saveLead(r); err != nil {
		e.metrics.RecordReport("failed")
		return GenerateResult{}, err
	}

	from := s.Phase
	s, err = e.update(ctx, s.ID, func(s *session.Session) error {
		next, err := audit.Transition(s.Phase, audit.EventReportGenerated)
		if err != nil {
			return err
		}
		s.Phase = next
		s.Email = email
		s.NeedsEmail = false
		s.ReportID = r.ID
		s.AddMessage(audit.RoleAssistant, fmt.Sprintf(reportReady, email), e.sessions.Now())
		return nil
	})
	if err != nil {
		e.metrics.RecordReport("failed")
		return GenerateResult{}, err
	}
	e.metrics.RecordTransition(string(from), string(s.Phase))
	e.metrics.RecordReport("generated")

	var url string
	if e.links != nil {
		if url, err = e.links.URL(r.ID, s.ID); err != nil {
			log.Warn().Err(err).Msg("Signing report link failed")
			url = ""
		}
	}

	if e.dispatch != nil {
		if _, err := e.dispatch.Enqueue(integrations.Lead{Report: r, ReportURL: url}); err != nil {
			log.Warn().Err(err).Msg("Some integrations could not be queued")
		}
	}

	log.Info().
		Str("report_id", r.ID).
		Int("pain_score", r.PainScore).
		Float64("estimated_value", r.EstimatedValue).
		Msg("Report generated")
	return GenerateResult{Success: true, Report: &r, ReportURL: url}, nil
}

func (e *Engine) saveLead(r report.Report) error {
	if e.leads == nil {
		return nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	lead := &store.Lead{
		ID:             r.ID,
		SessionID:      r.SessionID,
		Email:          r.Email,
		Name:           r.Name,
		Company:        r.Company,
		PainScore:      r.PainScore,
		EstimatedValue: r.EstimatedValue,
		Report:         string(raw),
		CreatedAt:      r.GeneratedAt.UnixMilli(),
	}
	if d := r.Extracted.Discovery; d != nil {
		lead.Industry = d.Industry
	}
	if err := e.leads.SaveLead(lead); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrDependency, err)
	}
	return nil
}

// update applies fn through the repository, retrying when a concurrent
// writer got there first. fn must derive everything from the session it is
// given because it may run more than once.
func (e *Engine) update(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	var out *session.Session
	err := retry.Do(ctx, e.conflictRetry, func(ctx context.Context) error {
		s, err := e.sessions.Update(ctx, id, fn)
		if errors.Is(err, perrors.ErrConflict) {
			e.metrics.RecordConflict()
		}
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) log(ctx context.Context, s *session.Session) zerolog.Logger {
	l := requestid.Logger(requestid.WithSessionID(ctx, s.ID), e.logger)
	return l.With().Str("phase", string(s.Phase)).Logger()
}
