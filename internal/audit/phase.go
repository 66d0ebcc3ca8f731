// Package audit implements the guided intake conversation: the phase state
// machine, field extraction from free text, completeness scoring, and
// validation. Everything here is pure; callers own persistence.
package audit

import (
	"errors"
	"fmt"
)

// Phase is a stage of the intake conversation.
type Phase string

const (
	PhaseDiscovery          Phase = "discovery"
	PhasePainPoints         Phase = "pain_points"
	PhaseContactInfo        Phase = "contact_info"
	PhaseContinuationChoice Phase = "continuation_choice"
	PhaseEmailRequest       Phase = "email_request"
	PhaseReadyForGeneration Phase = "ready_for_generation"
	PhaseFinished           Phase = "finished"
)

// mainSequence is the total order of the non-side phases.
var mainSequence = []Phase{
	PhaseDiscovery,
	PhasePainPoints,
	PhaseContactInfo,
	PhaseReadyForGeneration,
	PhaseFinished,
}

// ErrUnknownPhase is returned by ParsePhase for unrecognised values.
var ErrUnknownPhase = errors.New("unknown phase")

// ErrIllegalTransition is returned when an event is not allowed in a phase.
var ErrIllegalTransition = errors.New("illegal phase transition")

// ParsePhase converts a stored phase name back into a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
	return p, nil
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}

// Collecting reports whether p is one of the three question phases.
func (p Phase) Collecting() bool {
	return p == PhaseDiscovery || p == PhasePainPoints || p == PhaseContactInfo
}

// Rank is p's position in the main sequence, or -1 for side phases.
func (p Phase) Rank() int {
	for i, m := range mainSequence {
		if m == p {
			return i
		}
	}
	return -1
}

// Sections returns the sections whose fields must be filled for p to be
// complete. Evaluation is cumulative: later phases include earlier ones.
func (p Phase) Sections() []Section {
	switch p {
	case PhaseDiscovery:
		return []Section{SectionDiscovery}
	case PhasePainPoints:
		return []Section{SectionDiscovery, SectionPainPoints}
	default:
		return []Section{SectionDiscovery, SectionPainPoints, SectionContactInfo}
	}
}

// Event is something that happened to a session while in a phase.
type Event string

const (
	EventIncomplete      Event = "incomplete"
	EventPhaseComplete   Event = "phase_complete"
	EventAllComplete     Event = "all_complete"
	EventContinue        Event = "continue"
	EventStartFresh      Event = "start_fresh"
	EventEmailCaptured   Event = "email_captured"
	EventEmailMissing    Event = "email_missing"
	EventIdle            Event = "idle"
	EventResume          Event = "resume"
	EventReportGenerated Event = "report_generated"
)

// transitions is the full state machine. Any (phase, event) pair missing
// here is illegal.
var transitions = map[Phase]map[Event]Phase{
	PhaseDiscovery: {
		EventIncomplete:      PhaseDiscovery,
		EventPhaseComplete:   PhasePainPoints,
		EventAllComplete:     PhaseReadyForGeneration,
		EventResume:          PhaseContinuationChoice,
		EventReportGenerated: PhaseFinished,
	},
	PhasePainPoints: {
		EventIncomplete:      PhasePainPoints,
		EventPhaseComplete:   PhaseContactInfo,
		EventAllComplete:     PhaseReadyForGeneration,
		EventResume:          PhaseContinuationChoice,
		EventReportGenerated: PhaseFinished,
	},
	PhaseContactInfo: {
		EventIncomplete:      PhaseContactInfo,
		EventPhaseComplete:   PhaseReadyForGeneration,
		EventAllComplete:     PhaseReadyForGeneration,
		EventResume:          PhaseContinuationChoice,
		EventReportGenerated: PhaseFinished,
	},
	PhaseContinuationChoice: {
		EventContinue:        PhaseReadyForGeneration,
		EventStartFresh:      PhaseDiscovery,
		EventResume:          PhaseContinuationChoice,
		EventReportGenerated: PhaseFinished,
	},
	PhaseEmailRequest: {
		EventEmailCaptured:   PhaseReadyForGeneration,
		EventEmailMissing:    PhaseEmailRequest,
		EventResume:          PhaseContinuationChoice,
		EventReportGenerated: PhaseFinished,
	},
	PhaseReadyForGeneration: {
		EventIncomplete:      PhaseReadyForGeneration,
		EventIdle:            PhaseReadyForGeneration,
		EventEmailCaptured:   PhaseReadyForGeneration,
		EventEmailMissing:    PhaseEmailRequest,
		EventResume:          PhaseContinuationChoice,
		EventReportGenerated: PhaseFinished,
	},
	PhaseFinished: {
		EventIdle:            PhaseFinished,
		EventResume:          PhaseContinuationChoice,
		EventReportGenerated: PhaseFinished,
	},
}

// Transition looks up the phase that follows p on e.
func Transition(p Phase, e Event) (Phase, error) {
	next, ok := transitions[p][e]
	if !ok {
		return p, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, p, e)
	}
	return next, nil
}
