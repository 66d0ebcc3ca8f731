package opportunity

import (
	"math"
	"sort"
	"strings"

	"github.com/p-blackswan/audit-intake/internal/audit"
)

const (
	// DefaultHourlyRate values one saved staff hour in USD.
	DefaultHourlyRate = 60.0
	// DefaultLimit is how many opportunities Match returns.
	DefaultLimit = 5

	baseMatchScore = 50
	industryBonus  = 15
	keywordBonus   = 8
)

// Quadrant is the impact/effort classification of an opportunity.
type Quadrant string

const (
	QuadrantQuickWin Quadrant = "quick_win"
	QuadrantBigBet   Quadrant = "big_bet"
	QuadrantFillIn   Quadrant = "fill_in"
	QuadrantAvoid    Quadrant = "avoid"
)

// Opportunity is a template scored against one prospect.
type Opportunity struct {
	Name                string   `json:"name"`
	Slug                string   `json:"slug"`
	Category            string   `json:"category"`
	Description         string   `json:"description"`
	Problem             string   `json:"problem"`
	MatchScore          int      `json:"matchScore"`
	Impact              int      `json:"impact"`
	Effort              int      `json:"effort"`
	HoursSavedMonthly   float64  `json:"hoursSavedMonthly"`
	MonthlySavings      float64  `json:"monthlySavings"`
	ImplementationCost  float64  `json:"implementationCost"`
	ROI12m              float64  `json:"roi12m"`
	Quadrant            Quadrant `json:"quadrant"`
	PaybackMonths       int      `json:"paybackMonths"`
	PriorityScore       float64  `json:"priorityScore"`
	ImplementationWeeks int      `json:"implementationWeeks"`
	MatchedKeywords     []string `json:"matchedKeywords,omitempty"`
	Systems             []string `json:"systems,omitempty"`
}

// Matcher ranks catalog templates against extracted data.
type Matcher struct {
	catalog    Catalog
	hourlyRate float64
	limit      int
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithHourlyRate overrides DefaultHourlyRate.
func WithHourlyRate(rate float64) MatcherOption {
	return func(m *Matcher) { m.hourlyRate = rate }
}

// WithLimit overrides DefaultLimit. Zero or less returns every template.
func WithLimit(n int) MatcherOption {
	return func(m *Matcher) { m.limit = n }
}

// NewMatcher creates a Matcher over catalog.
func NewMatcher(catalog Catalog, opts ...MatcherOption) *Matcher {
	m := &Matcher{catalog: catalog, hourlyRate: DefaultHourlyRate, limit: DefaultLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match scores every template and returns the best ones by priority. Equal
// priorities are ordered by slug so the result depends only on the inputs.
func (m *Matcher) Match(info audit.ExtractedInfo) []Opportunity {
	var d audit.Discovery
	if info.Discovery != nil {
		d = *info.Discovery
	}
	var p audit.PainPoints
	if info.PainPoints != nil {
		p = *info.PainPoints
	}

	industry := strings.ToLower(d.Industry)
	painText := strings.ToLower(strings.Join([]string{p.ManualTasks, p.Bottlenecks, p.DataSilos}, " "))
	fieldText := map[string]string{
		"industry":        industry,
		"acquisitionFlow": strings.ToLower(d.AcquisitionFlow),
		"deliveryFlow":    strings.ToLower(d.DeliveryFlow),
		"manualTasks":     strings.ToLower(p.ManualTasks),
		"bottlenecks":     strings.ToLower(p.Bottlenecks),
		"dataSilos":       strings.ToLower(p.DataSilos),
	}
	mult := SizeMultiplier(audit.Headcount(d.CompanySize))

	out := make([]Opportunity, 0, len(m.catalog.Templates))
	for _, t := range m.catalog.Templates {
		score := baseMatchScore
		if industry != "" {
			for _, ind := range t.Industries {
				if strings.Contains(industry, ind) {
					score += industryBonus
					break
				}
			}
		}
		var matched []string
		for _, kw := range t.Keywords {
			if strings.Contains(painText, kw) {
				score += keywordBonus
				matched = append(matched, kw)
			}
		}
		for _, b := range t.Boosts {
			if strings.Contains(fieldText[b.Field], b.Contains) {
				score += b.Bonus
			}
		}
		score = clamp(score, 0, 100)

		hoursMonthly := round2(t.HoursSavedWeekly * mult * 4)
		monthly := math.Round(hoursMonthly * m.hourlyRate)
		cost := math.Round(t.Cost * costScale(mult))

		out = append(out, Opportunity{
			Name:                t.Name,
			Slug:                t.Slug,
			Category:            t.Category,
			Description:         t.Description,
			Problem:             t.Problem,
			MatchScore:          score,
			Impact:              t.Impact,
			Effort:              t.Effort,
			HoursSavedMonthly:   hoursMonthly,
			MonthlySavings:      monthly,
			ImplementationCost:  cost,
			ROI12m:              ROI(monthly*12, cost),
			Quadrant:            QuadrantFor(t.Impact, t.Effort),
			PaybackMonths:       Payback(cost, monthly),
			PriorityScore:       round2(float64(score) * float64(t.Impact) / float64(t.Effort)),
			ImplementationWeeks: t.ImplementationWeeks,
			MatchedKeywords:     matched,
			Systems:             t.Systems,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		return out[i].Slug < out[j].Slug
	})
	if m.limit > 0 && len(out) > m.limit {
		out = out[:m.limit]
	}
	return out
}

// SizeMultiplier scales template savings by headcount. Unknown size is
// treated as a small team.
func SizeMultiplier(headcount int) float64 {
	switch {
	case headcount <= 0:
		return 1.0
	case headcount < 10:
		return 0.6
	case headcount < 50:
		return 1.0
	case headcount < 200:
		return 1.5
	case headcount < 1000:
		return 2.0
	default:
		return 3.0
	}
}

// costScale grows cost at half the rate of savings.
func costScale(mult float64) float64 {
	return 1 + (mult-1)/2
}

// QuadrantFor places an impact/effort pair on the 2x2 matrix.
func QuadrantFor(impact, effort int) Quadrant {
	switch {
	case impact >= 4 && effort <= 2:
		return QuadrantQuickWin
	case impact >= 4 && effort >= 3:
		return QuadrantBigBet
	case impact <= 3 && effort >= 3:
		return QuadrantAvoid
	default:
		return QuadrantFillIn
	}
}

// ROI is the rounded percentage return of annualSavings over cost.
func ROI(annualSavings, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	return math.Round((annualSavings - cost) / cost * 100)
}

// Payback is the whole number of months before savings cover cost.
func Payback(cost, monthly float64) int {
	if cost <= 0 || monthly <= 0 {
		return 0
	}
	return int(math.Ceil(cost / monthly))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
