// Package report turns a finished audit conversation into the opportunity
// report the prospect receives, and renders it for email, download and CRM.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/p-blackswan/audit-intake/internal/audit"
	"github.com/p-blackswan/audit-intake/internal/opportunity"
)

// Report is everything the prospect and the sales team see.
type Report struct {
	ID             string              `json:"id"`
	SessionID      string              `json:"sessionId"`
	GeneratedAt    time.Time           `json:"generatedAt"`
	Email          string              `json:"email"`
	Name           string              `json:"name,omitempty"`
	Company        string              `json:"company,omitempty"`
	Extracted      audit.ExtractedInfo `json:"extracted"`
	PainScore      int                 `json:"painScore"`
	Categories     []string            `json:"categories"`
	EstimatedValue float64             `json:"estimatedValue"`

	Process            opportunity.ProcessMap         `json:"process"`
	BaselineValidation opportunity.BaselineValidation `json:"baselineValidation"`
	Opportunities      []opportunity.Opportunity      `json:"opportunities"`
	Feasibility        []opportunity.Feasibility      `json:"feasibility"`
	Scenarios          opportunity.ScenarioSet        `json:"scenarios"`
	ScenarioValidation opportunity.ScenarioValidation `json:"scenarioValidation"`
	Interval           opportunity.Interval           `json:"confidenceInterval"`
	Roadmap            opportunity.Roadmap            `json:"roadmap"`
	CashFlow           opportunity.CashFlow           `json:"cashFlow"`

	Summary  string   `json:"executiveSummary"`
	Coverage Coverage `json:"coverage"`
}

// Input is what Build needs from a session.
type Input struct {
	SessionID string
	Email     string
	Extracted audit.ExtractedInfo
}

// Builder assembles reports from extracted data.
type Builder struct {
	matcher *opportunity.Matcher
	now     func() time.Time
}

// NewBuilder creates a Builder that ranks opportunities with m.
func NewBuilder(m *opportunity.Matcher) *Builder {
	return &Builder{matcher: m, now: time.Now}
}

// Build runs the whole analysis pipeline. Apart from ID and GeneratedAt the
// result depends only on in.
func (b *Builder) Build(in Input) Report {
	info := in.Extracted
	var pain audit.PainPoints
	if info.PainPoints != nil {
		pain = *info.PainPoints
	}

	r := Report{
		ID:          uuid.NewString(),
		SessionID:   in.SessionID,
		GeneratedAt: b.now().UTC(),
		Email:       in.Email,
		Extracted:   info,
		PainScore:   opportunity.PainScore(pain),
		Categories:  opportunity.Categories(pain),
	}
	if c := info.ContactInfo; c != nil {
		r.Name, r.Company = c.Name, c.Company
		if r.Email == "" {
			r.Email = c.Email
		}
	}

	r.Process = opportunity.MapProcess(info)
	r.BaselineValidation = opportunity.ValidateBaselines(r.Process.Baselines)
	r.Opportunities = b.matcher.Match(info)
	r.EstimatedValue = opportunity.EstimatedValue(r.Opportunities)
	r.Feasibility = opportunity.Assess(r.Opportunities, info)
	r.Scenarios = opportunity.Scenarios(r.Opportunities, r.Feasibility)
	r.ScenarioValidation = opportunity.ValidateScenarios(r.Scenarios)
	r.Interval = opportunity.ConfidenceInterval(r.Scenarios.Base)
	r.Roadmap = opportunity.BuildRoadmap(r.Opportunities)
	r.CashFlow = opportunity.ProjectCashFlow(r.Roadmap, r.Scenarios.Base.ImplementationCost)
	r.Summary = ExecutiveSummary(r)
	r.Coverage = CoverageOf(info, &r)
	return r
}

// TotalMonthlySavings sums the ranked opportunities' monthly savings.
func (r Report) TotalMonthlySavings() float64 {
	var total float64
	for _, o := range r.Opportunities {
		total += o.MonthlySavings
	}
	return total
}

// TotalCost sums the ranked opportunities' implementation cost.
func (r Report) TotalCost() float64 {
	var total float64
	for _, o := range r.Opportunities {
		total += o.ImplementationCost
	}
	return total
}
