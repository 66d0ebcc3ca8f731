package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/audit-intake/internal/audit"
)

func TestAssess_Green(t *testing.T) {
	info := audit.ExtractedInfo{PainPoints: &audit.PainPoints{
		ManualTasks: "we're open and ready to explore automation",
		UserRole:    "ceo",
		Timeline:    "3 months",
	}}
	got := Assess([]Opportunity{{Slug: "ops", Category: "ops_automation", Effort: 2}}, info)
	require.Len(t, got, 1)
	f := got[0]

	assert.Equal(t, 5, f.Technical.Score)
	assert.Equal(t, ReadinessHigh, f.Org.Readiness)
	assert.Equal(t, 5, f.Org.Score)
	assert.Equal(t, StatusGreen, f.Status)
	assert.Equal(t, 1.0, f.Adjustment)
	assert.Empty(t, f.Blockers)
}

func TestAssess_Blockers(t *testing.T) {
	info := audit.ExtractedInfo{PainPoints: &audit.PainPoints{
		ManualTasks: "the team is skeptical and likes the traditional way",
		UserRole:    "analyst",
		Budget:      "$5k",
		Timeline:    "2 weeks",
	}}
	f := Assess([]Opportunity{{Slug: "bot", Category: "support", Effort: 3}}, info)[0]

	assert.False(t, f.Technical.APIAvailable)
	assert.Equal(t, 4, f.Technical.Score)
	assert.Equal(t, ReadinessLow, f.Org.Readiness)
	assert.False(t, f.Org.StakeholderBuyIn)
	assert.False(t, f.Org.TimelineFeasible)
	assert.Equal(t, 1, f.Org.Score)
	assert.Equal(t, StatusAmber, f.Status)
	assert.Contains(t, f.Blockers, "Systems lack API integration capabilities")
	assert.Contains(t, f.Blockers, "Lack of stakeholder buy-in could block execution")
	assert.Contains(t, f.Blockers, "Organizational resistance to change may impede adoption")
	assert.NotEmpty(t, f.Recommendations)
}

func TestAssess_RegulatedEnterpriseIntegration(t *testing.T) {
	info := audit.ExtractedInfo{
		Discovery:  &audit.Discovery{Industry: "healthcare"},
		PainPoints: &audit.PainPoints{DataSilos: "patient data lives in SAP and spreadsheets"},
	}
	f := Assess([]Opportunity{{Slug: "hub", Category: "integration", Effort: 4}}, info)[0]
	assert.False(t, f.Technical.AuthFeasible)
	assert.False(t, f.Org.PolicyCompliance)
}

func TestAssess_AsapIsNotSAP(t *testing.T) {
	info := audit.ExtractedInfo{PainPoints: &audit.PainPoints{ManualTasks: "we need this asap"}}
	f := Assess([]Opportunity{{Slug: "hub", Category: "integration", Effort: 4}}, info)[0]
	assert.True(t, f.Technical.AuthFeasible)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, StatusGreen, status(TechnicalScore{Score: 5}, OrgScore{Score: 3}))
	assert.Equal(t, StatusAmber, status(TechnicalScore{Score: 2}, OrgScore{Score: 5}), "weak technical caps at amber")
	assert.Equal(t, StatusRed, status(TechnicalScore{Score: 1}, OrgScore{Score: 5}))
	assert.Equal(t, StatusRed, status(TechnicalScore{Score: 3}, OrgScore{Score: 0}))
}

func TestAverageAdjustment(t *testing.T) {
	assert.Equal(t, DefaultAdjustment, AverageAdjustment(nil))
	assert.Equal(t, 0.75, AverageAdjustment([]Feasibility{{Adjustment: 1}, {Adjustment: 0.5}}))
}

func TestTimelineMonths(t *testing.T) {
	assert.Equal(t, 6.0, timelineMonths("6 months"))
	assert.Equal(t, 2.0, timelineMonths("8 weeks"))
	assert.Equal(t, 3.0, timelineMonths("this quarter"))
	assert.Equal(t, 0.25, timelineMonths("asap"))
	assert.Equal(t, 3.0, timelineMonths("whenever"))
}
