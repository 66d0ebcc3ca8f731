package report

import (
	"math"

	"github.com/p-blackswan/audit-intake/internal/audit"
)

// Audit steps in the order they are reported.
const (
	StepDiscovery         = "discovery"
	StepPainPoints        = "pain_points"
	StepContactInfo       = "contact_info"
	StepProcessMapping    = "process_mapping"
	StepOpportunityMining = "opportunity_mining"
	StepFeasibilityCheck  = "feasibility_check"
	StepROICalculation    = "roi_calculation"
)

var steps = []string{
	StepDiscovery, StepPainPoints, StepContactInfo,
	StepProcessMapping, StepOpportunityMining, StepFeasibilityCheck, StepROICalculation,
}

// Coverage is the audit's overall progress.
type Coverage struct {
	Complete  bool     `json:"complete"`
	Completed []string `json:"completed"`
	Missing   []string `json:"missing"`
	Progress  int      `json:"progress"`
	Total     int      `json:"total"`
}

// CoverageOf rolls the conversation sections and any generated report
// artifacts into one completion percentage. r may be nil before a report
// exists.
func CoverageOf(info audit.ExtractedInfo, r *Report) Coverage {
	done := map[string]bool{
		StepDiscovery:   info.Discovery != nil,
		StepPainPoints:  info.PainPoints != nil,
		StepContactInfo: info.ContactInfo != nil,
	}
	if r != nil {
		done[StepProcessMapping] = len(r.Process.Steps) > 0
		done[StepOpportunityMining] = len(r.Opportunities) > 0
		done[StepFeasibilityCheck] = len(r.Feasibility) > 0
		done[StepROICalculation] = r.Scenarios.Base.AnnualROI != 0
	}

	c := Coverage{Completed: []string{}, Missing: []string{}, Total: len(steps)}
	for _, s := range steps {
		if done[s] {
			c.Completed = append(c.Completed, s)
		} else {
			c.Missing = append(c.Missing, s)
		}
	}
	c.Complete = len(c.Missing) == 0
	c.Progress = int(math.Round(float64(len(c.Completed)) / float64(len(steps)) * 100))
	return c
}
