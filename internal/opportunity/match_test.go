package opportunity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/audit-intake/internal/audit"
)

func agencyInfo() audit.ExtractedInfo {
	return audit.ExtractedInfo{
		Discovery: &audit.Discovery{
			Industry:        "marketing agency",
			CompanySize:     "12 employees",
			AcquisitionFlow: "referrals from existing clients",
			DeliveryFlow:    "we deliver campaigns as projects",
		},
		PainPoints: &audit.PainPoints{
			ManualTasks: "I build every client report by hand in spreadsheets",
			Bottlenecks: "waiting on approval",
			DataSilos:   "data in disconnected spreadsheets",
			Budget:      "$20k",
			Timeline:    "3 months",
			UserRole:    "owner",
		},
	}
}

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	assert.Len(t, c.Templates, 9)
	for _, tpl := range c.Templates {
		assert.NotEmpty(t, tpl.Keywords, tpl.Slug)
		assert.Positive(t, tpl.ImplementationWeeks, tpl.Slug)
	}
}

func TestParseCatalog_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":     "templates: []",
		"no slug":   "templates:\n  - name: X\n    impact: 3\n    effort: 3\n    cost: 10\n    hours_saved_weekly: 1\n",
		"bad scale": "templates:\n  - name: X\n    slug: x\n    impact: 9\n    effort: 3\n    cost: 10\n    hours_saved_weekly: 1\n",
		"duplicate": "templates:\n  - {name: X, slug: x, impact: 3, effort: 3, cost: 10, hours_saved_weekly: 1}\n  - {name: Y, slug: x, impact: 3, effort: 3, cost: 10, hours_saved_weekly: 1}\n",
		"not yaml":  "templates: [",
	}
	for name, doc := range cases {
		_, err := ParseCatalog([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestMatch_SingleTemplateFigures(t *testing.T) {
	cat := Catalog{Templates: []Template{{
		Name: "Lead Scoring", Slug: "lead-scoring", Category: "lead_gen",
		Keywords:   []string{"lead", "sales"},
		Industries: []string{"saas"},
		Boosts:     []Boost{{Field: "acquisitionFlow", Contains: "lead", Bonus: 10}},
		Impact:     4, Effort: 2, HoursSavedWeekly: 10, Cost: 8000, ImplementationWeeks: 4,
	}}}
	info := audit.ExtractedInfo{
		Discovery:  &audit.Discovery{Industry: "SaaS", AcquisitionFlow: "inbound leads"},
		PainPoints: &audit.PainPoints{ManualTasks: "we qualify every lead by hand"},
	}

	got := NewMatcher(cat).Match(info)
	require.Len(t, got, 1)
	o := got[0]
	assert.Equal(t, 83, o.MatchScore)
	assert.Equal(t, 40.0, o.HoursSavedMonthly)
	assert.Equal(t, 2400.0, o.MonthlySavings)
	assert.Equal(t, 8000.0, o.ImplementationCost)
	assert.Equal(t, 260.0, o.ROI12m)
	assert.Equal(t, 4, o.PaybackMonths)
	assert.Equal(t, QuadrantQuickWin, o.Quadrant)
	assert.Equal(t, 166.0, o.PriorityScore)
	assert.Equal(t, []string{"lead"}, o.MatchedKeywords)
}

func TestMatch_ScoreIsClamped(t *testing.T) {
	cat := Catalog{Templates: []Template{{
		Name: "X", Slug: "x", Keywords: []string{"a", "b", "c", "d", "e", "f", "g"},
		Impact: 3, Effort: 3, HoursSavedWeekly: 1, Cost: 100,
	}}}
	info := audit.ExtractedInfo{PainPoints: &audit.PainPoints{ManualTasks: "abcdefg"}}
	got := NewMatcher(cat).Match(info)
	assert.Equal(t, 100, got[0].MatchScore)
}

func TestMatch_RanksDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	got := NewMatcher(c).Match(agencyInfo())
	require.Len(t, got, DefaultLimit)

	slugs := make([]string, len(got))
	for i, o := range got {
		slugs[i] = o.Slug
	}
	assert.Equal(t, []string{
		"data-entry-automation",
		"automated-reporting-dashboard",
		"automated-lead-scoring",
		"multi-platform-integration-hub",
		"automated-approval-workflows",
	}, slugs)

	report := got[1]
	assert.Equal(t, 88, report.MatchScore)
	assert.Equal(t, 2100.0, report.MonthlySavings)
	assert.Equal(t, 180.0, report.ROI12m)

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].PriorityScore, got[i].PriorityScore)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	m := NewMatcher(c, WithLimit(0))

	first := m.Match(agencyInfo())
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, m.Match(agencyInfo()))
	}
	assert.Len(t, first, len(c.Templates))
}

func TestMatch_EmptyInfo(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	got := NewMatcher(c).Match(audit.ExtractedInfo{})
	require.Len(t, got, DefaultLimit)
	for _, o := range got {
		assert.Equal(t, baseMatchScore, o.MatchScore)
	}
}

func TestMatch_HourlyRateOption(t *testing.T) {
	cat := Catalog{Templates: []Template{{Name: "X", Slug: "x", Impact: 3, Effort: 3, HoursSavedWeekly: 10, Cost: 1000}}}
	got := NewMatcher(cat, WithHourlyRate(100)).Match(audit.ExtractedInfo{})
	assert.Equal(t, 4000.0, got[0].MonthlySavings)
}

func TestSizeMultiplier_NonDecreasing(t *testing.T) {
	prev := SizeMultiplier(1)
	for _, n := range []int{5, 10, 49, 50, 199, 200, 999, 1000, 50000} {
		cur := SizeMultiplier(n)
		assert.GreaterOrEqual(t, cur, prev, n)
		prev = cur
	}
	assert.Equal(t, 1.0, SizeMultiplier(0))
}

func TestQuadrantFor(t *testing.T) {
	assert.Equal(t, QuadrantQuickWin, QuadrantFor(4, 2))
	assert.Equal(t, QuadrantBigBet, QuadrantFor(5, 3))
	assert.Equal(t, QuadrantAvoid, QuadrantFor(3, 3))
	assert.Equal(t, QuadrantFillIn, QuadrantFor(2, 1))
}

func TestROIAndPayback(t *testing.T) {
	assert.Equal(t, 260.0, ROI(28800, 8000))
	assert.Equal(t, -50.0, ROI(500, 1000))
	assert.Equal(t, 0.0, ROI(100, 0))
	assert.Equal(t, 4, Payback(8000, 2400))
	assert.Equal(t, 0, Payback(8000, 0))
}
