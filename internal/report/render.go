package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/p-blackswan/audit-intake/internal/opportunity"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown renders r as a markdown document.
func RenderMarkdown(r Report) string {
	var b strings.Builder
	heading := "AI Opportunity Assessment"
	if r.Company != "" {
		heading += ": " + r.Company
	}
	fmt.Fprintf(&b, "# %s\n\n", heading)
	if r.Name != "" {
		fmt.Fprintf(&b, "Prepared for %s on %s.\n\n", r.Name, r.GeneratedAt.Format("January 2, 2006"))
	}

	b.WriteString("## Executive summary\n\n")
	b.WriteString(r.Summary + "\n\n")
	fmt.Fprintf(&b, "- Pain score: **%d/100**\n", r.PainScore)
	fmt.Fprintf(&b, "- Estimated annual value: **$%s**\n", money(r.EstimatedValue))
	fmt.Fprintf(&b, "- Audit coverage: **%d%%**\n\n", r.Coverage.Progress)

	if len(r.Opportunities) > 0 {
		b.WriteString("## Opportunities\n\n")
		b.WriteString("| # | Opportunity | Quadrant | Match | Monthly savings | Cost | 12m ROI | Payback |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for i, o := range r.Opportunities {
			fmt.Fprintf(&b, "| %d | %s | %s | %d | $%s | $%s | %.0f%% | %d mo |\n",
				i+1, cell(o.Name), o.Quadrant, o.MatchScore, money(o.MonthlySavings), money(o.ImplementationCost), o.ROI12m, o.PaybackMonths)
		}
		b.WriteString("\n")
	}

	b.WriteString("## ROI scenarios\n\n")
	b.WriteString("| Scenario | Monthly savings | Annual ROI | Breakeven | Confidence |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, s := range []opportunity.Scenario{r.Scenarios.Conservative, r.Scenarios.Base, r.Scenarios.Aggressive} {
		fmt.Fprintf(&b, "| %s | $%s | %.0f%% | %d mo | %.0f%% |\n",
			title(s.Name), money(s.MonthlySavings), s.AnnualROI, s.Breakeven, s.Confidence*100)
	}
	fmt.Fprintf(&b, "\nExpected first-year ROI is %.0f%% (range %.0f%% to %.0f%%).\n\n", r.Interval.Expected, r.Interval.Low, r.Interval.High)
	for _, w := range r.ScenarioValidation.Warnings {
		fmt.Fprintf(&b, "> %s\n\n", w)
	}

	if len(r.Roadmap.Phases) > 0 {
		b.WriteString("## 90-day roadmap\n\n")
		for _, p := range r.Roadmap.Phases {
			fmt.Fprintf(&b, "%d. **%s**, weeks %d to %d\n", p.Phase, p.Name, p.StartWeek, p.EndWeek)
		}
		b.WriteString("\n")
	}

	if len(r.Process.Bottlenecks) > 0 {
		b.WriteString("## Bottlenecks\n\n")
		for _, bn := range r.Process.Bottlenecks {
			fmt.Fprintf(&b, "- %s (%s, impact %d/10)\n", bn.Description, bn.Location, bn.Impact)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderHTML renders r as a standalone HTML page suitable for an email body.
func RenderHTML(r Report) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(RenderMarkdown(r)), &body); err != nil {
		return "", fmt.Errorf("converting report markdown: %w", err)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>%s</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Arial, sans-serif; line-height: 1.6; max-width: 720px; margin: 0 auto; padding: 32px 16px; color: #222; }
h1, h2 { color: #6b21a8; }
table { border-collapse: collapse; width: 100%%; margin: 16px 0; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background: #f3e8ff; }
blockquote { color: #92400e; border-left: 4px solid #f59e0b; margin: 0; padding-left: 12px; }
</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString("AI Opportunity Assessment"), body.String()), nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
