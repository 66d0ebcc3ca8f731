package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/audit-intake/internal/retry"
)

// ExecutiveSummary is the deterministic summary paragraph for r.
func ExecutiveSummary(r Report) string {
	who := "your business"
	if r.Company != "" {
		who = r.Company
	}
	if len(r.Opportunities) == 0 {
		return fmt.Sprintf("We reviewed how %s operates but found no automation opportunities that clear our bar yet.", who)
	}

	top := r.Opportunities[0]
	var b strings.Builder
	fmt.Fprintf(&b, "We identified %d automation opportunities for %s, worth an estimated $%s per month in recovered time. ",
		len(r.Opportunities), who, money(r.TotalMonthlySavings()))
	fmt.Fprintf(&b, "The strongest is %s (match score %d, %.0f%% twelve-month ROI, payback in %d months). ",
		top.Name, top.MatchScore, top.ROI12m, top.PaybackMonths)
	fmt.Fprintf(&b, "Across all of them the base scenario returns %.0f%% in the first year and breaks even in month %d",
		r.Scenarios.Base.AnnualROI, r.Scenarios.Base.Breakeven)
	if len(r.Roadmap.QuickWins) > 0 {
		fmt.Fprintf(&b, ", and %s can start delivering within weeks", strings.Join(r.Roadmap.QuickWins, " and "))
	}
	b.WriteString(".")
	return b.String()
}

// Completer produces text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Polisher rewrites executive summaries with a language model, falling back
// to the deterministic text when the model fails or returns nothing.
type Polisher struct {
	completer Completer
	policy    retry.Policy
	logger    zerolog.Logger
}

// NewPolisher creates a Polisher. A nil completer disables polishing.
func NewPolisher(c Completer, policy retry.Policy, logger zerolog.Logger) *Polisher {
	return &Polisher{completer: c, policy: policy, logger: logger.With().Str("component", "summary").Logger()}
}

// Polish returns a rewritten summary for r, or r.Summary.
func (p *Polisher) Polish(ctx context.Context, r Report) string {
	if p == nil || p.completer == nil {
		return r.Summary
	}
	prompt := summaryPrompt(r)
	text, err := retry.Execute(ctx, p.policy, func(ctx context.Context) (string, error) {
		return p.completer.Complete(ctx, prompt)
	}, func(s string) bool { return strings.TrimSpace(s) != "" })
	if err != nil {
		p.logger.Warn().Err(err).Str("report_id", r.ID).Msg("Summary polishing failed, using template")
		return r.Summary
	}
	return strings.TrimSpace(text)
}

func summaryPrompt(r Report) string {
	var b strings.Builder
	b.WriteString("Rewrite this executive summary of an AI automation assessment for a business owner. ")
	b.WriteString("Keep every number unchanged, use at most four sentences, and do not add claims.\n\n")
	b.WriteString(r.Summary)
	if len(r.Opportunities) > 0 {
		b.WriteString("\n\nOpportunities:\n")
		for _, o := range r.Opportunities {
			fmt.Fprintf(&b, "- %s: $%s/month, %.0f%% ROI\n", o.Name, money(o.MonthlySavings), o.ROI12m)
		}
	}
	return b.String()
}

// money formats v with thousands separators and no cents.
func money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.0f", v)
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
