package opportunity

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/p-blackswan/audit-intake/internal/audit"
)

// Status is the traffic-light feasibility verdict.
type Status string

const (
	StatusGreen Status = "green"
	StatusAmber Status = "amber"
	StatusRed   Status = "red"
)

// Readiness is how open the organisation sounds to change.
type Readiness string

const (
	ReadinessHigh   Readiness = "high"
	ReadinessMedium Readiness = "medium"
	ReadinessLow    Readiness = "low"
)

// TechnicalScore counts the technical checks that passed, out of 5.
type TechnicalScore struct {
	APIAvailable        bool `json:"apiAvailable"`
	DataAccessible      bool `json:"dataAccessible"`
	AuthFeasible        bool `json:"authFeasible"`
	LatencyAcceptable   bool `json:"latencyAcceptable"`
	LicensingCompatible bool `json:"licensingCompatible"`
	Score               int  `json:"score"`
}

// OrgScore rates organisational readiness, out of 5.
type OrgScore struct {
	Readiness         Readiness `json:"readiness"`
	PolicyCompliance  bool      `json:"policyCompliance"`
	StakeholderBuyIn  bool      `json:"stakeholderBuyIn"`
	TimelineFeasible  bool      `json:"timelineFeasible"`
	ResourceAvailable bool      `json:"resourceAvailable"`
	Score             int       `json:"score"`
}

// Feasibility is the verdict for one opportunity.
type Feasibility struct {
	Slug            string         `json:"slug"`
	Technical       TechnicalScore `json:"technical"`
	Org             OrgScore       `json:"org"`
	OverallScore    int            `json:"overallScore"`
	Status          Status         `json:"status"`
	Adjustment      float64        `json:"adjustment"`
	Blockers        []string       `json:"blockers"`
	Recommendations []string       `json:"recommendations"`
}

// DefaultAdjustment is used for opportunities with no feasibility verdict.
const DefaultAdjustment = 0.8

var (
	apiSystems      = []string{"salesforce", "hubspot", "slack", "gmail", "google", "dropbox", "zendesk", "shopify", "quickbooks"}
	highSecurity    = []string{"sap", "oracle"}
	regulated       = []string{"healthcare", "finance", "insurance"}
	changeWords     = []string{"open", "excited", "ready", "interested", "explore"}
	resistWords     = []string{"traditional", "resistance", "skeptical", "conservative", "comfortable"}
	decisionRoles   = []string{"ceo", "president", "vp", "director", "head", "chief", "owner", "founder"}
	commitmentWords = []string{"committed", "already", "budget", "investment", "approved"}
	monthsPattern   = regexp.MustCompile(`(?i)(\d+)\s*(?:months?|mo)\b`)
	weeksPattern    = regexp.MustCompile(`(?i)(\d+)\s*(?:weeks?|wk)\b`)
)

// Assess scores technical and organisational feasibility for each
// opportunity, in the same order.
func Assess(opps []Opportunity, info audit.ExtractedInfo) []Feasibility {
	systems := mentionedSystems(info)
	var p audit.PainPoints
	if info.PainPoints != nil {
		p = *info.PainPoints
	}
	industry := ""
	if info.Discovery != nil {
		industry = strings.ToLower(info.Discovery.Industry)
	}

	out := make([]Feasibility, 0, len(opps))
	for _, o := range opps {
		tech := technical(o, systems)
		org := organisational(o, p, industry)
		f := Feasibility{
			Slug:         o.Slug,
			Technical:    tech,
			Org:          org,
			OverallScore: tech.Score + org.Score,
			Status:       status(tech, org),
		}
		f.Adjustment = adjustment(f)
		f.Blockers, f.Recommendations = advice(tech, org)
		out = append(out, f)
	}
	return out
}

func technical(o Opportunity, systems []string) TechnicalScore {
	t := TechnicalScore{
		APIAvailable:        hasAny(systems, apiSystems) || o.Category == "integration" || o.Category == "ops_automation",
		DataAccessible:      true,
		AuthFeasible:        !(hasAny(systems, highSecurity) && o.Category == "integration"),
		LatencyAcceptable:   true,
		LicensingCompatible: true,
	}
	for _, ok := range []bool{t.APIAvailable, t.DataAccessible, t.AuthFeasible, t.LatencyAcceptable, t.LicensingCompatible} {
		if ok {
			t.Score++
		}
	}
	return t
}

func organisational(o Opportunity, p audit.PainPoints, industry string) OrgScore {
	text := strings.ToLower(p.ManualTasks + " " + p.Bottlenecks)
	readiness := 0
	for _, w := range changeWords {
		if strings.Contains(text, w) {
			readiness++
		}
	}
	for _, w := range resistWords {
		if strings.Contains(text, w) {
			readiness--
		}
	}

	org := OrgScore{Readiness: ReadinessMedium}
	switch {
	case readiness >= 2:
		org.Readiness = ReadinessHigh
		org.Score += 2
	case readiness <= -1:
		org.Readiness = ReadinessLow
	default:
		org.Score++
	}

	org.PolicyCompliance = !(containsAnyOf(industry, regulated...) && o.Category == "integration")
	if org.PolicyCompliance {
		org.Score++
	}
	org.StakeholderBuyIn = containsAnyOf(strings.ToLower(p.UserRole), decisionRoles...) ||
		containsAnyOf(strings.ToLower(p.Budget), commitmentWords...)
	if org.StakeholderBuyIn {
		org.Score++
	}
	org.TimelineFeasible = timelineMonths(p.Timeline) >= float64(o.Effort*2)/4
	if org.TimelineFeasible {
		org.Score++
	}
	org.ResourceAvailable = org.Score >= 3
	if org.ResourceAvailable {
		org.Score++
	}
	if org.Score > 5 {
		org.Score = 5
	}
	return org
}

func status(t TechnicalScore, o OrgScore) Status {
	combined := t.Score + o.Score
	s := StatusRed
	switch {
	case combined >= 8:
		s = StatusGreen
	case combined >= 4:
		s = StatusAmber
	}
	if t.Score <= 2 && s == StatusGreen {
		s = StatusAmber
	}
	if t.Score <= 1 {
		s = StatusRed
	}
	return s
}

// adjustment converts a verdict into a savings multiplier in [0.3, 1].
func adjustment(f Feasibility) float64 {
	base := map[Status]float64{StatusGreen: 1.0, StatusAmber: 0.7, StatusRed: 0.3}[f.Status]
	adj := base + float64(f.Technical.Score)*0.1 + float64(f.Org.Score)*0.1
	return math.Min(1, round2(adj))
}

func advice(t TechnicalScore, o OrgScore) (blockers, recs []string) {
	blockers, recs = []string{}, []string{}
	if !t.APIAvailable {
		blockers = append(blockers, "Systems lack API integration capabilities")
		recs = append(recs, "Start with a smaller pilot using systems that have existing APIs",
			"Consider middleware for systems without APIs")
	}
	if !t.AuthFeasible {
		blockers = append(blockers, "Enterprise authentication requirements add integration risk")
	}
	if o.Readiness == ReadinessLow {
		blockers = append(blockers, "Organizational resistance to change may impede adoption")
		recs = append(recs, "Begin with stakeholder education and change management",
			"Start with low-risk pilot projects to build confidence")
	}
	if !o.StakeholderBuyIn {
		blockers = append(blockers, "Lack of stakeholder buy-in could block execution")
		recs = append(recs, "Run executive demos and ROI presentations early",
			"Involve decision-makers in pilot scoping")
	}
	if !o.TimelineFeasible {
		blockers = append(blockers, "Timeline expectations don't align with implementation complexity")
	}
	if !o.PolicyCompliance {
		blockers = append(blockers, "Regulated data may require a compliance review")
	}
	if t.Score > o.Score {
		recs = append(recs, "Pair the technical rollout with organizational change management")
	}
	return blockers, recs
}

// AverageAdjustment is the mean feasibility multiplier, or
// DefaultAdjustment when there is nothing to average.
func AverageAdjustment(fs []Feasibility) float64 {
	if len(fs) == 0 {
		return DefaultAdjustment
	}
	var sum float64
	for _, f := range fs {
		sum += f.Adjustment
	}
	return round2(sum / float64(len(fs)))
}

// timelineMonths reads a timeline answer as a number of months. Unknown
// timelines count as a quarter.
func timelineMonths(timeline string) float64 {
	if m := monthsPattern.FindStringSubmatch(timeline); m != nil {
		n, _ := strconv.Atoi(m[1])
		return float64(n)
	}
	if m := weeksPattern.FindStringSubmatch(timeline); m != nil {
		n, _ := strconv.Atoi(m[1])
		return float64(n) / 4
	}
	lower := strings.ToLower(timeline)
	switch {
	case strings.Contains(lower, "quarter"):
		return 3
	case strings.Contains(lower, "month"):
		return 1
	case strings.Contains(lower, "week"), strings.Contains(lower, "asap"), strings.Contains(lower, "urgent"):
		return 0.25
	}
	return 3
}

func mentionedSystems(info audit.ExtractedInfo) []string {
	var parts []string
	if info.Discovery != nil {
		parts = append(parts, info.Discovery.AcquisitionFlow, info.Discovery.DeliveryFlow)
	}
	if info.PainPoints != nil {
		parts = append(parts, info.PainPoints.ManualTasks, info.PainPoints.DataSilos)
	}
	words := strings.FieldsFunc(strings.ToLower(strings.Join(parts, " ")), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	seen := make(map[string]bool)
	var out []string
	for _, w := range words {
		if !seen[w] && (contains(apiSystems, w) || contains(highSecurity, w)) {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasAny(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
