package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_DiscoveryMultiField(t *testing.T) {
	msg := "We are a SaaS company with 50 employees. We find customers through marketing and deliver our service through a platform."
	got := Extract(PhaseDiscovery, msg, ExtractedInfo{})

	require.NotNil(t, got.Discovery)
	assert.Equal(t, "saas", got.Discovery.Industry)
	assert.Equal(t, "50 employees", got.Discovery.CompanySize)
	assert.Equal(t, "We find customers through marketing and deliver our service through a platform", got.Discovery.AcquisitionFlow)
	assert.Equal(t, got.Discovery.AcquisitionFlow, got.Discovery.DeliveryFlow)
	assert.Nil(t, got.PainPoints)
	assert.Nil(t, got.ContactInfo)
}

func TestExtract_IndustryFallback(t *testing.T) {
	got := Extract(PhaseDiscovery, "Dental clinics", ExtractedInfo{})
	require.NotNil(t, got.Discovery)
	assert.Equal(t, "Dental clinics", got.Discovery.Industry)

	for _, msg := range []string{
		"We're a 12-person logistics company",
		"We run a dental clinic company and have 8 staff",
		"We mostly get work through referrals",
	} {
		got = Extract(PhaseDiscovery, msg, ExtractedInfo{})
		require.NotNil(t, got.Discovery, msg)
		assert.Equal(t, msg, got.Discovery.Industry, msg)
	}

	long := "Most of our new work comes in through word of mouth and a few long-standing partners"
	got = Extract(PhaseDiscovery, long, ExtractedInfo{})
	require.NotNil(t, got.Discovery)
	assert.Empty(t, got.Discovery.Industry)
}

func TestExtract_CompanySizePatterns(t *testing.T) {
	cases := map[string]string{
		"about 120 people":        "120 people",
		"a team of 8":             "team of 8",
		"somewhere around 11-50":  "11-50",
		"we're a small shop":      "small",
		"roughly 30 full-time":    "roughly 30 full-time",
		"we have 1,200 employees": "1,200 employees",
	}
	for msg, want := range cases {
		got := Extract(PhaseDiscovery, msg, ExtractedInfo{})
		require.NotNil(t, got.Discovery, msg)
		assert.Equal(t, want, got.Discovery.CompanySize, msg)
	}
}

func TestExtract_FirstWriteWins(t *testing.T) {
	prior := ExtractedInfo{Discovery: &Discovery{Industry: "retail"}}
	got := Extract(PhaseDiscovery, "Actually we are in healthcare", prior)
	assert.Equal(t, "retail", got.Discovery.Industry)
	assert.Equal(t, "retail", prior.Discovery.Industry)
}

func TestExtract_DoesNotMutatePrior(t *testing.T) {
	prior := ExtractedInfo{Discovery: &Discovery{Industry: "retail"}}
	_ = Extract(PhaseDiscovery, "We have 40 employees", prior)
	assert.Empty(t, prior.Discovery.CompanySize)
}

func TestExtract_Idempotent(t *testing.T) {
	msgs := []struct {
		phase Phase
		text  string
	}{
		{PhaseDiscovery, "We are a SaaS company with 50 employees. We find customers through marketing and deliver our service through a platform."},
		{PhasePainPoints, "Our team does a lot of manual data entry. Approvals cause delays. Budget is $20k, ideally within 2 months. I'm the owner."},
		{PhaseContactInfo, "My name is Jane Doe, email jane@acme.io, I work at Acme Labs"},
		{PhaseContactInfo, "Jane"},
		{PhaseReadyForGeneration, "we spend too much time on spreadsheets"},
	}
	for _, m := range msgs {
		first := Extract(m.phase, m.text, ExtractedInfo{})
		second := Extract(m.phase, m.text, first)
		assert.Equal(t, first, second, m.text)
	}
}

func TestExtract_PainPoints(t *testing.T) {
	msg := "Our team does a lot of manual data entry. Approvals cause delays. Budget is $20k, ideally within 2 months. I'm the owner."
	got := Extract(PhasePainPoints, msg, ExtractedInfo{})

	require.NotNil(t, got.PainPoints)
	assert.Equal(t, "Our team does a lot of manual data entry", got.PainPoints.ManualTasks)
	assert.Equal(t, "Approvals cause delays", got.PainPoints.Bottlenecks)
	assert.Equal(t, "Our team does a lot of manual data entry", got.PainPoints.DataSilos)
	assert.Equal(t, "$20k", got.PainPoints.Budget)
	assert.Equal(t, "2 months", got.PainPoints.Timeline)
	assert.Equal(t, "owner", got.PainPoints.UserRole)
	assert.Nil(t, got.ContactInfo, "I'm the owner is not a name")
}

func TestExtract_PainPointKeywordFallbacks(t *testing.T) {
	got := Extract(PhasePainPoints, "We have some budget set aside and want it asap", ExtractedInfo{})
	require.NotNil(t, got.PainPoints)
	assert.Equal(t, "We have some budget set aside and want it asap", got.PainPoints.Budget)
	assert.Equal(t, "We have some budget set aside and want it asap", got.PainPoints.Timeline)
}

func TestExtract_TimelineInWords(t *testing.T) {
	cases := map[string]string{
		"We'd like this done next month.": "We'd like this done next month",
		"Within a few weeks ideally":      "Within a few weeks ideally",
		"in a couple of months":           "in a couple of months",
	}
	for msg, want := range cases {
		got := Extract(PhasePainPoints, msg, ExtractedInfo{})
		require.NotNil(t, got.PainPoints, msg)
		assert.Equal(t, want, got.PainPoints.Timeline, msg)
	}
}

func TestExtract_DiscoveryIgnoresPainKeywords(t *testing.T) {
	got := Extract(PhaseDiscovery, "We are a retail company and our data is a mess", ExtractedInfo{})
	assert.Nil(t, got.PainPoints)
}

func TestExtract_ContactEmail(t *testing.T) {
	got := Extract(PhaseContactInfo, "Contact me at john.doe@example.com", ExtractedInfo{})
	require.NotNil(t, got.ContactInfo)
	assert.Equal(t, "john.doe@example.com", got.ContactInfo.Email)
	assert.Empty(t, got.ContactInfo.Name)
}

func TestExtract_ContactName(t *testing.T) {
	cases := map[string]string{
		"My name is Jane Doe and my email is jane@x.io": "Jane Doe",
		"I'm Carlos from Northwind":                     "Carlos",
		"Priya Raman":                                   "Priya Raman",
		"Sam Lee, sam@lee.dev":                          "Sam Lee",
	}
	for msg, want := range cases {
		got := Extract(PhaseContactInfo, msg, ExtractedInfo{})
		require.NotNil(t, got.ContactInfo, msg)
		assert.Equal(t, want, got.ContactInfo.Name, msg)
	}
}

func TestExtract_ContactNameRejectsRoleAndFiller(t *testing.T) {
	for _, msg := range []string{"I am the owner", "I'm interested in automation", "thanks"} {
		got := Extract(PhaseContactInfo, msg, ExtractedInfo{})
		if got.ContactInfo != nil {
			assert.Empty(t, got.ContactInfo.Name, msg)
		}
	}
}

func TestExtract_CompanyNameIsNotPersonName(t *testing.T) {
	got := Extract(PhaseContactInfo, "Our company name is Globex", ExtractedInfo{})
	require.NotNil(t, got.ContactInfo)
	assert.Empty(t, got.ContactInfo.Name)
	assert.Equal(t, "Globex", got.ContactInfo.Company)
}

func TestExtract_Company(t *testing.T) {
	cases := map[string]string{
		"I work at Acme Labs, happy to chat": "Acme Labs",
		"I'm Carlos from Northwind":          "Northwind",
		"our company does logistics":         "our company does logistics",
	}
	for msg, want := range cases {
		got := Extract(PhaseContactInfo, msg, ExtractedInfo{})
		require.NotNil(t, got.ContactInfo, msg)
		assert.Equal(t, want, got.ContactInfo.Company, msg)
	}
}

func TestExtract_OpportunisticAcrossPhases(t *testing.T) {
	got := Extract(PhasePainPoints, "My name is Ana Silva, reach me at ana@silva.co", ExtractedInfo{})
	require.NotNil(t, got.ContactInfo)
	assert.Equal(t, "Ana Silva", got.ContactInfo.Name)
	assert.Equal(t, "ana@silva.co", got.ContactInfo.Email)
}

func TestExtract_SidePhasesAreNoOps(t *testing.T) {
	prior := ExtractedInfo{Discovery: &Discovery{Industry: "retail"}}
	for _, p := range []Phase{PhaseContinuationChoice, PhaseEmailRequest, PhaseFinished} {
		got := Extract(p, "We have 50 employees, email me at a@b.co", prior)
		assert.Equal(t, prior, got, p)
	}
}

func TestExtract_EmptyMessage(t *testing.T) {
	got := Extract(PhaseDiscovery, "   ", ExtractedInfo{})
	assert.True(t, got.IsEmpty())
}
