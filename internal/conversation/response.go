package conversation

import (
	"github.com/p-blackswan/audit-intake/internal/audit"
	"github.com/p-blackswan/audit-intake/internal/report"
	"github.com/p-blackswan/audit-intake/internal/session"
)

// Validation statuses reported with every turn.
const (
	ValidationValid   = "valid"
	ValidationInvalid = "invalid"
)

// Turn is the conversational state returned to the client.
type Turn struct {
	CurrentStep          audit.Phase         `json:"current_step"`
	ExtractedInfo        audit.ExtractedInfo `json:"extracted_info"`
	Messages             []audit.Message     `json:"messages"`
	NeedsEmail           bool                `json:"needs_email"`
	ConversationComplete bool                `json:"conversation_complete"`
	ValidationStatus     string              `json:"validation_status"`
	ValidationErrors     map[string][]string `json:"validation_errors,omitempty"`
	ValidationWarnings   map[string][]string `json:"validation_warnings,omitempty"`
}

// Response wraps a Turn the way the chat client expects it.
type Response struct {
	Success     bool        `json:"success"`
	SessionID   string      `json:"sessionId"`
	Response    Turn        `json:"response"`
	CurrentStep audit.Phase `json:"current_step"`
	Completed   bool        `json:"completed"`
}

// GenerateResult is the outcome of a report request. When Success is false
// the session lacked required data and Missing lists the field paths.
type GenerateResult struct {
	Success          bool           `json:"success"`
	Missing          []string       `json:"missing,omitempty"`
	FollowUpQuestion string         `json:"follow_up_question,omitempty"`
	Report           *report.Report `json:"report,omitempty"`
	ReportURL        string         `json:"reportUrl,omitempty"`
}

// complete reports whether the conversation has nothing left to ask.
func complete(s *session.Session) bool {
	switch s.Phase {
	case audit.PhaseFinished:
		return true
	case audit.PhaseReadyForGeneration:
		return !s.NeedsEmail
	default:
		return false
	}
}

func newResponse(s *session.Session, v *audit.ValidationResult) Response {
	turn := Turn{
		CurrentStep:          s.Phase,
		ExtractedInfo:        s.Extracted,
		Messages:             s.Messages,
		NeedsEmail:           s.NeedsEmail,
		ConversationComplete: complete(s),
		ValidationStatus:     ValidationValid,
	}
	if v != nil {
		if !v.Valid {
			turn.ValidationStatus = ValidationInvalid
			turn.ValidationErrors = v.Errors
		}
		turn.ValidationWarnings = v.Warnings
	}
	return Response{
		Success:     true,
		SessionID:   s.ID,
		Response:    turn,
		CurrentStep: s.Phase,
		Completed:   turn.ConversationComplete,
	}
}
