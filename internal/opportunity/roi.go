package opportunity

import (
	"math"
)

// Scenario factors and the confidence attached to each projection.
const (
	ConservativeFactor = 0.7
	BaseFactor         = 1.0
	AggressiveFactor   = 1.3

	conservativeConfidence = 0.6
	baseConfidence         = 0.75
	aggressiveConfidence   = 0.5

	implausibleROI = 1000
)

// Scenario is one annualised ROI projection. Money is in USD, breakeven in
// months.
type Scenario struct {
	Name               string  `json:"name"`
	AnnualROI          float64 `json:"annualROI"`
	MonthlySavings     float64 `json:"monthlySavings"`
	Savings            float64 `json:"savings"`
	Breakeven          int     `json:"breakeven"`
	ImplementationCost float64 `json:"implementationCost"`
	Confidence         float64 `json:"confidence"`
}

// ScenarioSet holds the three projections.
type ScenarioSet struct {
	Conservative Scenario `json:"conservative"`
	Base         Scenario `json:"base"`
	Aggressive   Scenario `json:"aggressive"`
}

// Scenarios projects the combined savings of opps. Each opportunity's
// savings are scaled by its feasibility adjustment; opportunities without a
// verdict use DefaultAdjustment. Costs are not scaled, so a higher factor
// never lowers ROI.
func Scenarios(opps []Opportunity, feas []Feasibility) ScenarioSet {
	adj := make(map[string]float64, len(feas))
	for _, f := range feas {
		adj[f.Slug] = f.Adjustment
	}
	return ScenarioSet{
		Conservative: scenario("conservative", opps, adj, ConservativeFactor, conservativeConfidence),
		Base:         scenario("base", opps, adj, BaseFactor, baseConfidence),
		Aggressive:   scenario("aggressive", opps, adj, AggressiveFactor, aggressiveConfidence),
	}
}

func scenario(name string, opps []Opportunity, adj map[string]float64, factor, confidence float64) Scenario {
	var monthly, cost float64
	for _, o := range opps {
		a, ok := adj[o.Slug]
		if !ok {
			a = DefaultAdjustment
		}
		monthly += math.Max(0, o.MonthlySavings*factor*a)
		cost += o.ImplementationCost
	}
	annual := monthly * 12
	return Scenario{
		Name:               name,
		AnnualROI:          ROI(annual, cost),
		MonthlySavings:     math.Round(monthly),
		Savings:            math.Round(annual),
		Breakeven:          Payback(cost, monthly),
		ImplementationCost: math.Round(cost),
		Confidence:         confidence,
	}
}

// ScenarioValidation is the sanity check over a ScenarioSet. Issues make
// the set invalid; warnings do not.
type ScenarioValidation struct {
	Valid    bool     `json:"valid"`
	Issues   []string `json:"issues"`
	Warnings []string `json:"warnings"`
}

// ValidateScenarios checks that the three projections are numbers and are
// ordered conservative <= base <= aggressive.
func ValidateScenarios(s ScenarioSet) ScenarioValidation {
	v := ScenarioValidation{Issues: []string{}, Warnings: []string{}}
	for _, sc := range []Scenario{s.Conservative, s.Base, s.Aggressive} {
		if math.IsNaN(sc.AnnualROI) {
			v.Issues = append(v.Issues, sc.Name+" ROI calculation resulted in NaN")
		}
		if math.IsNaN(sc.MonthlySavings) {
			v.Issues = append(v.Issues, sc.Name+" monthly savings calculation resulted in NaN")
		}
	}
	if s.Conservative.AnnualROI > s.Base.AnnualROI {
		v.Issues = append(v.Issues, "Conservative ROI exceeds base ROI - calculation error")
	}
	if s.Base.AnnualROI > s.Aggressive.AnnualROI {
		v.Issues = append(v.Issues, "Base ROI exceeds aggressive ROI - calculation error")
	}
	if s.Base.AnnualROI > implausibleROI {
		v.Warnings = append(v.Warnings, "ROI exceeds 1000% - may be unrealistic")
	}
	if s.Base.AnnualROI < 0 {
		v.Warnings = append(v.Warnings, "Negative ROI - implementation cost exceeds savings")
	}
	v.Valid = len(v.Issues) == 0
	return v
}

// Interval is a band around an expected ROI percentage.
type Interval struct {
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	Expected float64 `json:"expected"`
}

// ConfidenceInterval puts a 20% band around s's annual ROI. The low end
// never drops below zero.
func ConfidenceInterval(s Scenario) Interval {
	const variance = 0.2
	return Interval{
		Low:      math.Max(0, math.Round(s.AnnualROI*(1-variance))),
		High:     math.Round(s.AnnualROI * (1 + variance)),
		Expected: s.AnnualROI,
	}
}

// CashFlow is a 12-month projection.
type CashFlow struct {
	Monthly    []float64 `json:"monthly"`
	Cumulative []float64 `json:"cumulative"`
}

// ProjectCashFlow spreads roadmap savings over the year. Each phase starts
// saving in the month it launches. The full investment is spent in the
// first month.
func ProjectCashFlow(r Roadmap, investment float64) CashFlow {
	cf := CashFlow{Monthly: make([]float64, 12), Cumulative: make([]float64, 12)}
	for _, p := range r.Phases {
		for m := p.EndWeek / 4; m < 12; m++ {
			cf.Monthly[m] += p.MonthlySavings
		}
	}
	cf.Monthly[0] -= investment
	var running float64
	for i, v := range cf.Monthly {
		running += v
		cf.Cumulative[i] = running
	}
	return cf
}
