package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-blackswan/audit-intake/internal/opportunity"
)

const (
	sheetSummary       = "Summary"
	sheetOpportunities = "Opportunities"
	sheetScenarios     = "Scenarios"
	sheetRoadmap       = "Roadmap"
	sheetCashFlow      = "Cash Flow"
)

// WriteXLSX writes r as a workbook with one sheet per report section.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	for _, name := range []string{sheetOpportunities, sheetScenarios, sheetRoadmap, sheetCashFlow} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	summary := [][]any{
		{"Field", "Value"},
		{"Report ID", r.ID},
		{"Generated", r.GeneratedAt.Format("2006-01-02 15:04 MST")},
		{"Name", r.Name},
		{"Company", r.Company},
		{"Email", r.Email},
		{"Pain score", r.PainScore},
		{"Estimated annual value", r.EstimatedValue},
		{"Coverage %", r.Coverage.Progress},
		{"Summary", r.Summary},
	}
	opps := [][]any{{"Rank", "Opportunity", "Category", "Quadrant", "Match score", "Impact", "Effort",
		"Hours saved / month", "Monthly savings", "Implementation cost", "12m ROI %", "Payback months", "Weeks"}}
	for i, o := range r.Opportunities {
		opps = append(opps, []any{i + 1, o.Name, o.Category, string(o.Quadrant), o.MatchScore, o.Impact, o.Effort,
			o.HoursSavedMonthly, o.MonthlySavings, o.ImplementationCost, o.ROI12m, o.PaybackMonths, o.ImplementationWeeks})
	}
	scenarios := [][]any{{"Scenario", "Monthly savings", "Annual savings", "Implementation cost", "Annual ROI %", "Breakeven months", "Confidence"}}
	for _, sc := range []opportunity.Scenario{r.Scenarios.Conservative, r.Scenarios.Base, r.Scenarios.Aggressive} {
		scenarios = append(scenarios, []any{title(sc.Name), sc.MonthlySavings, sc.Savings, sc.ImplementationCost,
			sc.AnnualROI, sc.Breakeven, sc.Confidence})
	}
	roadmap := [][]any{{"Phase", "Opportunity", "Start week", "End week", "Monthly savings"}}
	for _, p := range r.Roadmap.Phases {
		roadmap = append(roadmap, []any{p.Phase, p.Name, p.StartWeek, p.EndWeek, p.MonthlySavings})
	}
	cash := [][]any{{"Month", "Net", "Cumulative"}}
	for i := range r.CashFlow.Monthly {
		cash = append(cash, []any{i + 1, r.CashFlow.Monthly[i], r.CashFlow.Cumulative[i]})
	}

	for sheet, rows := range map[string][][]any{
		sheetSummary:       summary,
		sheetOpportunities: opps,
		sheetScenarios:     scenarios,
		sheetRoadmap:       roadmap,
		sheetCashFlow:      cash,
	} {
		if err := writeRows(f, sheet, rows, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cellRef, &values); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	return nil
}
