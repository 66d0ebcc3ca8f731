package opportunity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/p-blackswan/audit-intake/internal/audit"
)

// Swimlane groups process steps by who performs them.
type Swimlane string

const (
	SwimlaneCustomer   Swimlane = "Customer"
	SwimlaneOperations Swimlane = "Operations"
)

// BottleneckType classifies where time is lost.
type BottleneckType string

const (
	BottleneckApproval  BottleneckType = "approval"
	BottleneckHandoff   BottleneckType = "handoff"
	BottleneckDataEntry BottleneckType = "data_entry"
	BottleneckWaiting   BottleneckType = "waiting"
	BottleneckRework    BottleneckType = "rework"
)

// StepMetrics are rough monthly figures for a process step.
type StepMetrics struct {
	Volume    int     `json:"volume"`
	AvgTime   float64 `json:"avgTime"`
	ErrorRate float64 `json:"errorRate"`
}

// ProcessStep is one box on the swimlane diagram.
type ProcessStep struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Swimlane Swimlane    `json:"swimlane"`
	Systems  []string    `json:"systems"`
	Metrics  StepMetrics `json:"metrics"`
}

// Bottleneck is a typed source of lost time.
type Bottleneck struct {
	ID          string         `json:"id"`
	Type        BottleneckType `json:"type"`
	Description string         `json:"description"`
	Location    string         `json:"location"`
	Impact      int            `json:"impact"`
	HoursCost   float64        `json:"hoursCost"`
}

// Baselines are the current-state figures ROI estimates start from.
type Baselines struct {
	Volumes   int     `json:"volumes"`
	CycleTime float64 `json:"cycleTime"`
	ErrorRate float64 `json:"errorRate"`
}

// ProcessMap is the mapped current-state process.
type ProcessMap struct {
	Steps       []ProcessStep `json:"steps"`
	Bottlenecks []Bottleneck  `json:"bottlenecks"`
	Baselines   Baselines     `json:"baselines"`
}

var (
	knownSystems = []string{
		"salesforce", "hubspot", "slack", "gmail", "spreadsheet", "excel", "crm", "erp",
		"website", "email", "phone", "paper", "quickbooks", "shopify", "zendesk", "jira",
		"sap", "oracle", "netsuite", "xero", "sharepoint", "dropbox",
	}
	volumePattern = regexp.MustCompile(`(\d+)\s*(?:per\s+|a\s+|/\s*)?(month|week|day)`)
)

// MapProcess builds a swimlane map of the prospect's flows and the
// bottlenecks their pain points describe. It needs both discovery and pain
// points; without them the map is empty.
func MapProcess(info audit.ExtractedInfo) ProcessMap {
	pm := ProcessMap{Steps: []ProcessStep{}, Bottlenecks: []Bottleneck{}}
	if info.Discovery == nil || info.PainPoints == nil {
		return pm
	}
	d, p := *info.Discovery, *info.PainPoints

	pm.Steps = append(pm.Steps,
		ProcessStep{ID: "customer-discover", Name: "Lead Discovery", Swimlane: SwimlaneCustomer,
			Systems: []string{"Marketing Channels", "Website"}, Metrics: StepMetrics{Volume: 100, AvgTime: 2, ErrorRate: 0.1}},
		ProcessStep{ID: "customer-acquire", Name: "Customer Acquisition", Swimlane: SwimlaneCustomer,
			Systems: systemsIn(d.AcquisitionFlow), Metrics: StepMetrics{Volume: 50, AvgTime: 8, ErrorRate: 0.05}},
		ProcessStep{ID: "customer-deliver", Name: "Service Delivery", Swimlane: SwimlaneCustomer,
			Systems: systemsIn(d.DeliveryFlow), Metrics: StepMetrics{Volume: 45, AvgTime: 24, ErrorRate: 0.03}},
	)
	if p.ManualTasks != "" {
		pm.Steps = append(pm.Steps, ProcessStep{ID: "ops-manual", Name: "Manual Tasks", Swimlane: SwimlaneOperations,
			Systems: systemsIn(p.ManualTasks), Metrics: StepMetrics{Volume: 200, AvgTime: 15, ErrorRate: 0.2}})
	}
	if p.Bottlenecks != "" {
		pm.Steps = append(pm.Steps, ProcessStep{ID: "ops-bottlenecks", Name: "Process Bottlenecks", Swimlane: SwimlaneOperations,
			Systems: systemsIn(p.Bottlenecks), Metrics: StepMetrics{Volume: 75, AvgTime: 40, ErrorRate: 0.15}})
	}
	if p.DataSilos != "" {
		pm.Steps = append(pm.Steps, ProcessStep{ID: "ops-silos", Name: "Data Silos", Swimlane: SwimlaneOperations,
			Systems: systemsIn(p.DataSilos), Metrics: StepMetrics{Volume: 300, AvgTime: 5, ErrorRate: 0.1}})
	}

	pm.Bottlenecks = findBottlenecks(p)
	pm.Baselines = estimateBaselines(p)
	return pm
}

func findBottlenecks(p audit.PainPoints) []Bottleneck {
	manual := strings.ToLower(p.ManualTasks)
	blocked := strings.ToLower(p.Bottlenecks)
	silos := strings.ToLower(p.DataSilos)
	out := []Bottleneck{}

	if containsAnyOf(manual, "approval", "sign off") {
		out = append(out, Bottleneck{ID: "manual-approval", Type: BottleneckApproval,
			Description: "Manual approval processes causing delays", Location: "Process Flow", Impact: 8, HoursCost: 60})
	}
	if containsAnyOf(manual, "data entry", "copy paste", "copy and paste", "re-key") {
		out = append(out, Bottleneck{ID: "manual-data-entry", Type: BottleneckDataEntry,
			Description: "Repetitive manual data entry tasks", Location: "Data Processing", Impact: 7, HoursCost: 30})
	}
	if containsAnyOf(blocked, "approval", "decision") {
		out = append(out, Bottleneck{ID: "decision-bottleneck", Type: BottleneckApproval,
			Description: "Decision bottlenecks in approval workflows", Location: "Decision Points", Impact: 9, HoursCost: 120})
	}
	if containsAnyOf(blocked, "handoff", "hand-off", "hand off", "transition") {
		out = append(out, Bottleneck{ID: "handoff-delay", Type: BottleneckHandoff,
			Description: "Inefficient handoffs between teams", Location: "Team Interfaces", Impact: 6, HoursCost: 40})
	}
	if containsAnyOf(blocked, "wait", "delay", "queue", "backlog") {
		out = append(out, Bottleneck{ID: "queue-wait", Type: BottleneckWaiting,
			Description: "Work sits in queues waiting for the next step", Location: "Queues", Impact: 5, HoursCost: 20})
	}
	if containsAnyOf(manual+" "+blocked, "rework", "mistake", "error", "redo", "fix") {
		out = append(out, Bottleneck{ID: "rework-loop", Type: BottleneckRework,
			Description: "Errors cause work to be redone", Location: "Quality", Impact: 6, HoursCost: 25})
	}
	if silos != "" {
		out = append(out, Bottleneck{ID: "data-disconnection", Type: BottleneckDataEntry,
			Description: "Disconnected data systems requiring manual sync", Location: "System Integration", Impact: 8, HoursCost: 25})
	}
	return out
}

func estimateBaselines(p audit.PainPoints) Baselines {
	text := strings.ToLower(strings.Join([]string{p.ManualTasks, p.Bottlenecks, p.DataSilos}, " "))

	volumes := 100
	if m := volumePattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "week":
			volumes = n * 4
		case "day":
			volumes = n * 20
		default:
			volumes = n
		}
	}
	if volumes < 10 {
		volumes = 10
	}

	cycle := 10.0
	switch {
	case strings.Contains(text, "hour"):
		cycle = 60
	case strings.Contains(text, "minute"):
		cycle = 5
	case containsAnyOf(text, "manual", "approval"):
		cycle = 30
	}

	errRate := 0.05
	switch {
	case containsAnyOf(text, "high error", "mistakes"):
		errRate = 0.15
	case containsAnyOf(text, "accurate", "automated"):
		errRate = 0.01
	}

	return Baselines{Volumes: volumes, CycleTime: cycle, ErrorRate: errRate}
}

// BaselineValidation reports problems with process baselines.
type BaselineValidation struct {
	Valid       bool     `json:"valid"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// ValidateBaselines checks baselines for impossible or implausible values.
func ValidateBaselines(b Baselines) BaselineValidation {
	v := BaselineValidation{Issues: []string{}, Suggestions: []string{}}
	if b.Volumes <= 0 {
		v.Issues = append(v.Issues, "Volume baseline is zero or negative")
	}
	if b.CycleTime <= 0 {
		v.Issues = append(v.Issues, "Cycle time baseline is zero or negative")
	}
	if b.ErrorRate < 0 || b.ErrorRate > 1 {
		v.Issues = append(v.Issues, "Error rate must be between 0 and 1")
	}
	if b.Volumes > 100_000 {
		v.Suggestions = append(v.Suggestions, "Volume exceeds 100k/month - verify this is accurate")
	}
	if b.CycleTime > 480 {
		v.Suggestions = append(v.Suggestions, "Cycle time exceeds 8 hours - verify this is accurate")
	}
	if b.ErrorRate > 0.5 {
		v.Suggestions = append(v.Suggestions, "Error rate exceeds 50% - this seems very high")
	}
	v.Valid = len(v.Issues) == 0
	return v
}

// systemsIn lists the known tools a free-text answer mentions.
func systemsIn(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, s := range knownSystems {
		if strings.Contains(lower, s) {
			out = append(out, strings.ToUpper(s[:1])+s[1:])
		}
	}
	if len(out) == 0 {
		return []string{"Manual Process"}
	}
	return out
}

func containsAnyOf(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
