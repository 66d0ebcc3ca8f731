package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// converse feeds a message through extraction and the transitioner the way
// the engine does, returning the updated turn state.
func converse(t *testing.T, st Turn, message string) (Turn, Outcome) {
	t.Helper()
	st.Message = message
	st.Extracted = Extract(st.Phase, message, st.Extracted)
	out, err := Next(st)
	require.NoError(t, err)
	return Turn{Phase: out.Phase, Extracted: out.Extracted, Email: out.Email, NeedsEmail: out.NeedsEmail}, out
}

func TestNext_ScriptedConversation(t *testing.T) {
	st := Turn{Phase: PhaseDiscovery}

	st, out := converse(t, st, "We are a SaaS company with 50 employees. We find customers through marketing and deliver our service through a platform.")
	assert.Equal(t, EventPhaseComplete, out.Event)
	assert.Equal(t, PhasePainPoints, st.Phase)
	assert.Equal(t, introPainPoints, out.Reply)

	st, out = converse(t, st, "Our team does a lot of manual data entry. Approvals cause delays. Our data is spread across disconnected spreadsheets.")
	assert.Equal(t, EventIncomplete, out.Event)
	assert.Equal(t, PhasePainPoints, st.Phase)
	assert.Equal(t, "Do you have a budget range in mind for automation initiatives?", out.Reply)

	st, out = converse(t, st, "Our budget is around $25k and we want this done in 3 months.")
	assert.Equal(t, PhasePainPoints, st.Phase)
	assert.Equal(t, "What's your role at the company?", out.Reply)
	assert.Equal(t, "$25k", st.Extracted.PainPoints.Budget)
	assert.Equal(t, "3 months", st.Extracted.PainPoints.Timeline)

	st, out = converse(t, st, "I'm the operations manager.")
	assert.Equal(t, PhaseContactInfo, st.Phase)
	assert.Equal(t, introContactInfo, out.Reply)
	assert.Equal(t, "manager", st.Extracted.PainPoints.UserRole)

	st, out = converse(t, st, "My name is Jane Doe")
	assert.Equal(t, PhaseContactInfo, st.Phase)
	assert.Contains(t, out.Reply, "email")

	st, out = converse(t, st, "Contact me at jane.doe@example.com")
	assert.Equal(t, EventAllComplete, out.Event)
	assert.Equal(t, PhaseReadyForGeneration, st.Phase)
	assert.True(t, st.NeedsEmail)
	assert.Equal(t, "Jane Doe", st.Extracted.ContactInfo.Name)

	st, out = converse(t, st, "confirm")
	assert.Equal(t, EventEmailCaptured, out.Event)
	assert.Equal(t, PhaseReadyForGeneration, st.Phase)
	assert.Equal(t, "jane.doe@example.com", st.Email)
	assert.False(t, st.NeedsEmail)

	st, out = converse(t, st, "anything else?")
	assert.Equal(t, EventIdle, out.Event)
	assert.Equal(t, PhaseReadyForGeneration, st.Phase)
}

func TestNext_ShortCircuitFromDiscovery(t *testing.T) {
	st := Turn{
		Phase: PhaseDiscovery,
		Extracted: ExtractedInfo{
			Discovery:   fullDiscovery(),
			PainPoints:  fullPainPoints(),
			ContactInfo: &ContactInfo{Name: "Jane Doe", Email: "jane@example.com"},
		},
	}
	out, err := Next(st)
	require.NoError(t, err)
	assert.Equal(t, EventAllComplete, out.Event)
	assert.Equal(t, PhaseReadyForGeneration, out.Phase)
	assert.True(t, out.NeedsEmail)
	assert.Equal(t, shortCircuit, out.Reply)
}

func TestNext_ReadyWithoutEmailAsksForIt(t *testing.T) {
	st := Turn{
		Phase:      PhaseReadyForGeneration,
		Message:    "not now",
		NeedsEmail: true,
		Extracted: ExtractedInfo{
			Discovery:   fullDiscovery(),
			PainPoints:  fullPainPoints(),
			ContactInfo: &ContactInfo{Name: "Jane Doe", Email: "jane@example.com"},
		},
	}
	out, err := Next(st)
	require.NoError(t, err)
	assert.Equal(t, EventEmailMissing, out.Event)
	assert.Equal(t, PhaseEmailRequest, out.Phase)
	assert.Equal(t, emailPrompt, out.Reply)

	st.Phase = out.Phase
	st.Message = "sorry, use jane.alt@example.org"
	out, err = Next(st)
	require.NoError(t, err)
	assert.Equal(t, PhaseReadyForGeneration, out.Phase)
	assert.Equal(t, "jane.alt@example.org", out.Email)
	assert.False(t, out.NeedsEmail)
}

func TestNext_EmailRequestKeepsAsking(t *testing.T) {
	out, err := Next(Turn{Phase: PhaseEmailRequest, Message: "jane at example dot com", NeedsEmail: true})
	require.NoError(t, err)
	assert.Equal(t, PhaseEmailRequest, out.Phase)
	assert.True(t, out.NeedsEmail)
}

func TestNext_ContinuationChoice(t *testing.T) {
	prior := ExtractedInfo{Discovery: fullDiscovery()}

	out, err := Next(Turn{Phase: PhaseContinuationChoice, Message: "Continue please", Extracted: prior})
	require.NoError(t, err)
	assert.Equal(t, EventContinue, out.Event)
	assert.Equal(t, PhaseReadyForGeneration, out.Phase)
	assert.Equal(t, prior, out.Extracted)
	assert.Contains(t, out.Reply, "Could you describe some of the manual")

	out, err = Next(Turn{Phase: PhaseContinuationChoice, Message: "1", Extracted: prior})
	require.NoError(t, err)
	assert.Equal(t, EventContinue, out.Event)
}

func TestNext_StartFreshResetsEverything(t *testing.T) {
	prior := ExtractedInfo{
		Discovery:   fullDiscovery(),
		ContactInfo: &ContactInfo{Email: "jane@example.com"},
	}
	out, err := Next(Turn{Phase: PhaseContinuationChoice, Message: "start fresh", Extracted: prior, NeedsEmail: true})
	require.NoError(t, err)
	assert.Equal(t, EventStartFresh, out.Event)
	assert.Equal(t, PhaseDiscovery, out.Phase)
	assert.True(t, out.Reset)
	assert.True(t, out.Extracted.IsEmpty())
	assert.False(t, out.NeedsEmail)
	assert.Equal(t, startFresh, out.Reply)
}

func TestNext_Finished(t *testing.T) {
	out, err := Next(Turn{Phase: PhaseFinished, Message: "hello?"})
	require.NoError(t, err)
	assert.Equal(t, PhaseFinished, out.Phase)
	assert.Equal(t, alreadyFinished, out.Reply)
}

func TestNext_UnknownPhase(t *testing.T) {
	_, err := Next(Turn{Phase: Phase("limbo")})
	assert.ErrorIs(t, err, ErrUnknownPhase)
}
