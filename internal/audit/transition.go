package audit

import (
	"fmt"
	"strings"
)

// Turn is the state the transitioner sees for one inbound message. Extracted
// already includes whatever the message itself revealed.
type Turn struct {
	Phase      Phase
	Message    string
	Extracted  ExtractedInfo
	Email      string
	NeedsEmail bool
}

// Outcome is the transitioner's decision for a Turn.
type Outcome struct {
	Event      Event
	Phase      Phase
	Reply      string
	Extracted  ExtractedInfo
	Email      string
	NeedsEmail bool
	Reset      bool
}

var confirmWords = []string{"confirm", "yes", "correct", "that's right", "same", "use that", "sounds good"}

// Next decides the phase that follows t and the assistant's reply.
func Next(t Turn) (Outcome, error) {
	out := Outcome{
		Extracted:  t.Extracted,
		Email:      t.Email,
		NeedsEmail: t.NeedsEmail,
	}
	lower := strings.ToLower(strings.TrimSpace(t.Message))

	switch t.Phase {
	case PhaseContinuationChoice:
		if wantsContinue(lower) {
			out.Event = EventContinue
			out.Reply = continuePrevious
			if c := Evaluate(t.Extracted, PhaseReadyForGeneration); !c.Complete {
				out.Reply += " " + c.ClarifyingQuestion
			}
		} else {
			out.Event = EventStartFresh
			out.Extracted = ExtractedInfo{}
			out.NeedsEmail = false
			out.Reset = true
			out.Reply = startFresh
		}

	case PhaseEmailRequest:
		if email := emailIn(t.Message); email != "" {
			out.Event = EventEmailCaptured
			out.Email = email
			out.NeedsEmail = false
			out.Reply = fmt.Sprintf(emailThanks, email)
		} else {
			out.Event = EventEmailMissing
			out.Reply = emailPrompt
		}

	case PhaseDiscovery, PhasePainPoints, PhaseContactInfo:
		all := Evaluate(t.Extracted, PhaseReadyForGeneration)
		cur := Evaluate(t.Extracted, t.Phase)
		switch {
		case all.Complete:
			out.Event = EventAllComplete
			out.NeedsEmail = true
			out.Reply = shortCircuit
		case cur.Complete:
			out.Event = EventPhaseComplete
			out.Reply = introFor(t.Phase)
		default:
			out.Event = EventIncomplete
			out.Reply = cur.ClarifyingQuestion
		}

	case PhaseReadyForGeneration:
		all := Evaluate(t.Extracted, PhaseReadyForGeneration)
		switch {
		case !all.Complete:
			out.Event = EventIncomplete
			out.Reply = all.ClarifyingQuestion
		case !t.NeedsEmail:
			out.Event = EventIdle
			out.Reply = introReady
		default:
			email := emailIn(t.Message)
			if email == "" && containsAny(lower, confirmWords) && t.Extracted.ContactInfo != nil &&
				EmailValid(t.Extracted.ContactInfo.Email) {
				email = t.Extracted.ContactInfo.Email
			}
			if email != "" {
				out.Event = EventEmailCaptured
				out.Email = email
				out.NeedsEmail = false
				out.Reply = fmt.Sprintf(emailThanks, email)
			} else {
				out.Event = EventEmailMissing
				out.Reply = emailPrompt
			}
		}

	case PhaseFinished:
		out.Event = EventIdle
		out.Reply = alreadyFinished

	default:
		return out, fmt.Errorf("%w: %q", ErrUnknownPhase, t.Phase)
	}

	next, err := Transition(t.Phase, out.Event)
	if err != nil {
		return out, err
	}
	out.Phase = next
	return out, nil
}

func introFor(p Phase) string {
	switch p {
	case PhaseDiscovery:
		return introPainPoints
	case PhasePainPoints:
		return introContactInfo
	default:
		return introReady
	}
}

func wantsContinue(lower string) bool {
	return strings.Contains(lower, "continue") || strings.Contains(lower, "previous") || strings.Contains(lower, "1")
}

func emailIn(s string) string {
	e := emailPattern.FindString(s)
	if e == "" || !EmailValid(e) {
		return ""
	}
	return e
}
