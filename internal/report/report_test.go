package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/p-blackswan/audit-intake/internal/audit"
	"github.com/p-blackswan/audit-intake/internal/opportunity"
	"github.com/p-blackswan/audit-intake/internal/retry"
)

func completeInfo() audit.ExtractedInfo {
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
		ContactInfo: &audit.ContactInfo{Name: "Jane Doe", Email: "jane@acme.io", Company: "Acme"},
	}
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	c, err := opportunity.DefaultCatalog()
	require.NoError(t, err)
	b := NewBuilder(opportunity.NewMatcher(c))
	b.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }
	return b
}

func TestBuild(t *testing.T) {
	r := newBuilder(t).Build(Input{SessionID: "s1", Extracted: completeInfo()})

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "s1", r.SessionID)
	assert.Equal(t, "jane@acme.io", r.Email, "falls back to the contact email")
	assert.Equal(t, "Acme", r.Company)
	require.Len(t, r.Opportunities, opportunity.DefaultLimit)
	assert.Len(t, r.Feasibility, len(r.Opportunities))
	assert.True(t, r.ScenarioValidation.Valid)
	assert.LessOrEqual(t, r.Scenarios.Conservative.AnnualROI, r.Scenarios.Base.AnnualROI)
	assert.LessOrEqual(t, r.Scenarios.Base.AnnualROI, r.Scenarios.Aggressive.AnnualROI)
	assert.Positive(t, r.EstimatedValue)
	assert.NotEmpty(t, r.Roadmap.Phases)
	assert.Len(t, r.CashFlow.Monthly, 12)
	assert.Contains(t, r.Summary, "Acme")
	assert.True(t, r.Coverage.Complete)
	assert.Equal(t, 100, r.Coverage.Progress)
}

func TestBuild_ExplicitEmailWins(t *testing.T) {
	r := newBuilder(t).Build(Input{SessionID: "s1", Email: "boss@acme.io", Extracted: completeInfo()})
	assert.Equal(t, "boss@acme.io", r.Email)
}

func TestBuild_Deterministic(t *testing.T) {
	b := newBuilder(t)
	first := b.Build(Input{SessionID: "s1", Extracted: completeInfo()})
	second := b.Build(Input{SessionID: "s1", Extracted: completeInfo()})
	second.ID = first.ID
	assert.Equal(t, first, second)
}

func TestCoverageOf(t *testing.T) {
	c := CoverageOf(audit.ExtractedInfo{}, nil)
	assert.Equal(t, 0, c.Progress)
	assert.Equal(t, 7, c.Total)
	assert.Len(t, c.Missing, 7)
	assert.Empty(t, c.Completed)
	assert.False(t, c.Complete)

	c = CoverageOf(audit.ExtractedInfo{Discovery: &audit.Discovery{Industry: "saas"}}, nil)
	assert.Equal(t, []string{StepDiscovery}, c.Completed)
	assert.Equal(t, 14, c.Progress)

	c = CoverageOf(completeInfo(), nil)
	assert.Equal(t, 43, c.Progress)
	assert.Equal(t, []string{StepProcessMapping, StepOpportunityMining, StepFeasibilityCheck, StepROICalculation}, c.Missing)

	c = CoverageOf(completeInfo(), &Report{})
	assert.Equal(t, 43, c.Progress)
}

func TestRenderMarkdownAndHTML(t *testing.T) {
	r := newBuilder(t).Build(Input{SessionID: "s1", Extracted: completeInfo()})

	md := RenderMarkdown(r)
	assert.Contains(t, md, "# AI Opportunity Assessment: Acme")
	assert.Contains(t, md, "Prepared for Jane Doe on March 4, 2026.")
	assert.Contains(t, md, "## Opportunities")
	assert.Contains(t, md, "| 1 | "+r.Opportunities[0].Name+" |")
	assert.Contains(t, md, "| Base | ")

	html, err := RenderHTML(r)
	require.NoError(t, err)
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<h2>ROI scenarios</h2>")
}

func TestWriteXLSX(t *testing.T) {
	r := newBuilder(t).Build(Input{SessionID: "s1", Extracted: completeInfo()})

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{sheetSummary, sheetOpportunities, sheetScenarios, sheetRoadmap, sheetCashFlow}, f.GetSheetList())

	rows, err := f.GetRows(sheetOpportunities)
	require.NoError(t, err)
	require.Len(t, rows, len(r.Opportunities)+1)
	assert.Equal(t, "Opportunity", rows[0][1])
	assert.Equal(t, r.Opportunities[0].Name, rows[1][1])

	rows, err = f.GetRows(sheetScenarios)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Conservative", rows[1][0])
	assert.Equal(t, "Aggressive", rows[3][0])

	rows, err = f.GetRows(sheetCashFlow)
	require.NoError(t, err)
	assert.Len(t, rows, 13)
}

func TestLinkSigner(t *testing.T) {
	s := NewLinkSigner("secret", "https://audit.example.com/", time.Hour)

	url, err := s.URL("r1", "s1")
	require.NoError(t, err)
	assert.Contains(t, url, "https://audit.example.com/api/reports/")

	tok, err := s.Token("r1", "s1")
	require.NoError(t, err)
	claims, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "r1", claims.ReportID)
	assert.Equal(t, "s1", claims.SessionID)

	_, err = s.Verify(tok + "x")
	assert.ErrorIs(t, err, ErrInvalidLink)

	other := NewLinkSigner("other", "", time.Hour)
	_, err = other.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidLink)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidLink, "expired")
}

type fakeCompleter struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeCompleter) Complete(_ context.Context, _ string) (string, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return reply, err
}

func TestPolisher(t *testing.T) {
	r := Report{ID: "r1", Summary: "template"}
	policy := retry.Policy{MaxRetries: 2}

	fc := &fakeCompleter{errs: []error{errors.New("boom")}, replies: []string{"", "", " polished "}}
	p := NewPolisher(fc, policy, zerolog.Nop())
	assert.Equal(t, "polished", p.Polish(context.Background(), r))
	assert.Equal(t, 3, fc.calls)

	fc = &fakeCompleter{}
	p = NewPolisher(fc, policy, zerolog.Nop())
	assert.Equal(t, "template", p.Polish(context.Background(), r))
	assert.Equal(t, 3, fc.calls)

	assert.Equal(t, "template", NewPolisher(nil, policy, zerolog.Nop()).Polish(context.Background(), r))
}

func TestExecutiveSummary_NoOpportunities(t *testing.T) {
	assert.Contains(t, ExecutiveSummary(Report{}), "your business")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0", money(0))
	assert.Equal(t, "999", money(999))
	assert.Equal(t, "1,000", money(1000))
	assert.Equal(t, "1,234,567", money(1234567))
	assert.Equal(t, "-2,500", money(-2500))
}
