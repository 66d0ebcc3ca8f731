package opportunity

import (
	"regexp"
	"strings"

	"github.com/p-blackswan/audit-intake/internal/audit"
)

var (
	taskWords       = []string{"manual", "manual data entry", "copy paste", "repetitive", "time-consuming"}
	bottleneckWords = []string{"approval", "waiting", "delay", "bottleneck", "stuck"}
	siloWords       = []string{"silo", "disconnected", "separate", "manual sync", "duplicate"}

	categoryRules = []struct {
		name string
		re   *regexp.Regexp
	}{
		{"lead_gen", regexp.MustCompile(`lead|qualify|prospect|sales`)},
		{"ops_automation", regexp.MustCompile(`data entry|copy|paste|manual|update`)},
		{"support", regexp.MustCompile(`support|ticket|customer|help`)},
		{"analytics", regexp.MustCompile(`report|dashboard|visibility|kpi|metric`)},
		{"integration", regexp.MustCompile(`system|integrate|sync|connect`)},
	}
)

// PainScore rates how much the prospect hurts, 0 to 100. Keyword hits in
// each pain field are capped separately, and urgent budget or timeline
// language adds on top.
func PainScore(p audit.PainPoints) int {
	score := min(countAll(p.ManualTasks, taskWords)*6, 30) +
		min(countAll(p.Bottlenecks, bottleneckWords)*5, 25) +
		min(countAll(p.DataSilos, siloWords)*4, 20)

	budget := strings.ToLower(p.Budget)
	switch {
	case containsAnyOf(budget, "urgent", "asap"):
		score += 15
	case strings.Contains(budget, "soon"):
		score += 10
	case strings.Contains(budget, "exploring"):
		score += 5
	}

	timeline := strings.ToLower(p.Timeline)
	switch {
	case containsAnyOf(timeline, "immediately", "asap"):
		score += 10
	case strings.Contains(timeline, "1 month"):
		score += 7
	case strings.Contains(timeline, "1-3 months"):
		score += 5
	}
	return min(score, 100)
}

// Categories lists the opportunity categories the pain points point at, in
// a fixed order.
func Categories(p audit.PainPoints) []string {
	text := strings.ToLower(strings.Join([]string{p.ManualTasks, p.Bottlenecks, p.DataSilos}, " "))
	out := []string{}
	for _, r := range categoryRules {
		if r.re.MatchString(text) {
			out = append(out, r.name)
		}
	}
	return out
}

// EstimatedValue is the annual savings of opps, used to size a lead.
func EstimatedValue(opps []Opportunity) float64 {
	var total float64
	for _, o := range opps {
		total += o.MonthlySavings * 12
	}
	return total
}

func countAll(text string, words []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, w := range words {
		n += strings.Count(lower, w)
	}
	return n
}
