package audit

import (
	"regexp"
	"strconv"
	"strings"
)

// ValidationResult holds hard errors and soft warnings keyed by field path.
// Errors never stop the conversation; they are reported back to the caller.
type ValidationResult struct {
	Valid     bool                `json:"valid"`
	Errors    map[string][]string `json:"errors,omitempty"`
	Warnings  map[string][]string `json:"warnings,omitempty"`
	Sanitized *ExtractedInfo      `json:"sanitized,omitempty"`
}

func (r *ValidationResult) addError(path, msg string) {
	if r.Errors == nil {
		r.Errors = make(map[string][]string)
	}
	r.Errors[path] = append(r.Errors[path], msg)
}

func (r *ValidationResult) addWarning(path, msg string) {
	if r.Warnings == nil {
		r.Warnings = make(map[string][]string)
	}
	r.Warnings[path] = append(r.Warnings[path], msg)
}

var (
	validIndustries = []string{
		"technology", "software", "saas", "healthcare", "finance", "retail", "ecommerce",
		"manufacturing", "education", "government", "nonprofit", "consulting", "marketing",
		"agency", "real estate", "startup", "other",
	}
	acquisitionTerms = append([]string{"process", "workflow", "system", "manual", "automated", "customer", "client"}, acquisitionKeywords...)
	deliveryTerms    = []string{"deliver", "fulfil", "service", "product", "customer", "platform", "onboard", "ship", "implement", "project"}
	manualTerms      = []string{"manual", "hand", "repeat", "repetitive", "time-consuming", "time consuming", "data entry", "copy", "spreadsheet", "slow", "inefficient", "problem", "challenge", "difficult"}
	bottleneckTerms  = []string{"bottleneck", "slow", "delay", "wait", "queue", "approval", "decision", "stuck", "backlog"}
	siloTerms        = []string{"silo", "separate", "disconnected", "isolated", "data", "system", "spreadsheet", "crm"}
	timelineUnits    = []string{"day", "week", "month", "quarter", "year", "asap", "immediate", "soon", "urgent"}
	rushTerms        = []string{"asap", "urgent", "immediate"}
	validRoles       = []string{"ceo", "cto", "coo", "cfo", "founder", "manager", "director", "owner", "lead", "head", "vp", "president", "coordinator", "administrator", "specialist", "analyst"}
	blockedNames     = []string{"test", "admin", "user", "anonymous", "null"}
	blockedCompanies = []string{"test", "company", "business", "corp", "inc"}
	blockedDomains   = []string{"tempmail.com", "10minutemail.com", "guerrillamail.com", "mailinator.com"}

	namePattern   = regexp.MustCompile(`^[A-Za-z\s'\-]+$`)
	amountPattern = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)(?:\s*-\s*\$?\d[\d,]*(?:\.\d+)?)?\s*(k|m|thousand|million)?\b`)
	numberPattern = regexp.MustCompile(`\d[\d,]*`)
)

// Validate checks the sections that belong to phase. Absent fields are not
// errors here; completeness tracks those. Later phases validate everything.
func Validate(phase Phase, info ExtractedInfo) ValidationResult {
	res := ValidationResult{}
	sanitized := sanitizeInfo(info)
	res.Sanitized = &sanitized

	var sections []Section
	switch phase {
	case PhaseDiscovery:
		sections = []Section{SectionDiscovery}
	case PhasePainPoints:
		sections = []Section{SectionPainPoints}
	case PhaseContactInfo:
		sections = []Section{SectionContactInfo}
	case PhaseContinuationChoice:
	default:
		sections = []Section{SectionDiscovery, SectionPainPoints, SectionContactInfo}
	}

	for _, s := range sections {
		switch s {
		case SectionDiscovery:
			if sanitized.Discovery != nil {
				validateDiscovery(&res, *sanitized.Discovery)
			}
		case SectionPainPoints:
			if sanitized.PainPoints != nil {
				validatePainPoints(&res, *sanitized.PainPoints)
			}
		case SectionContactInfo:
			if sanitized.ContactInfo != nil {
				validateContactInfo(&res, *sanitized.ContactInfo)
			}
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func validateDiscovery(res *ValidationResult, d Discovery) {
	if d.Industry != "" {
		const p = "discovery.industry"
		switch {
		case len(d.Industry) < 2:
			res.addError(p, "Industry must be at least 2 characters")
		case len(d.Industry) > 100:
			res.addError(p, "Industry too long")
		case !containsAny(strings.ToLower(d.Industry), validIndustries):
			res.addError(p, "Please specify a valid industry")
		}
		if strings.Contains(strings.ToLower(d.Industry), "consulting") {
			res.addWarning(p, "Consulting industries may have specific requirements")
		}
	}

	if d.CompanySize != "" {
		const p = "discovery.companySize"
		lower := strings.ToLower(d.CompanySize)
		switch {
		case len(d.CompanySize) > 50:
			res.addError(p, "Company size description too long")
		case !digitPattern.MatchString(d.CompanySize) && !containsAny(lower, []string{"small", "medium", "large", "enterprise"}):
			res.addError(p, "Please specify a valid company size")
		}
		if Headcount(d.CompanySize) > 1000 {
			res.addWarning(p, "Large enterprises may need custom solutions")
		}
	}

	checkText(res, "discovery.acquisitionFlow", d.AcquisitionFlow, acquisitionTerms, "Please describe your current acquisition process")
	checkText(res, "discovery.deliveryFlow", d.DeliveryFlow, deliveryTerms, "Please describe your delivery process")
}

func validatePainPoints(res *ValidationResult, p PainPoints) {
	checkText(res, "pain_points.manualTasks", p.ManualTasks, manualTerms, "Please describe manual tasks you perform")
	checkText(res, "pain_points.bottlenecks", p.Bottlenecks, bottleneckTerms, "Please describe specific bottlenecks")
	checkText(res, "pain_points.dataSilos", p.DataSilos, siloTerms, "Please describe data connectivity issues")

	if p.Budget != "" {
		const path = "pain_points.budget"
		amount, ok := ParseBudget(p.Budget)
		switch {
		case !ok:
			res.addError(path, "Please enter a valid budget (e.g., $10,000, 50k, 100 thousand)")
		case amount < 1000:
			res.addError(path, "Budget must be at least $1,000")
		case amount > 10_000_000:
			res.addError(path, "Budget seems too high. Please contact us directly")
		}
		if ok && amount >= 1000 && amount < 10_000 {
			res.addWarning(path, "Low budget may limit solution options")
		}
	}

	if p.Timeline != "" {
		const path = "pain_points.timeline"
		lower := strings.ToLower(p.Timeline)
		switch {
		case len(p.Timeline) < 3:
			res.addError(path, "Timeline too short")
		case len(p.Timeline) > 100:
			res.addError(path, "Timeline description too long")
		case !containsAny(lower, timelineUnits):
			res.addError(path, "Please specify a realistic timeline")
		}
		if containsAny(lower, rushTerms) {
			res.addWarning(path, "Rush timelines may require premium services")
		}
	}

	if p.UserRole != "" {
		const path = "pain_points.userRole"
		switch {
		case len(p.UserRole) < 2:
			res.addError(path, "Role must be at least 2 characters")
		case len(p.UserRole) > 100:
			res.addError(path, "Role description too long")
		case !containsAny(strings.ToLower(p.UserRole), validRoles):
			res.addError(path, "Please specify your role in the company")
		}
	}
}

func validateContactInfo(res *ValidationResult, c ContactInfo) {
	if c.Name != "" {
		const p = "contact_info.name"
		switch {
		case len(c.Name) < 2:
			res.addError(p, "Name must be at least 2 characters")
		case len(c.Name) > 100:
			res.addError(p, "Name must be less than 100 characters")
		case !namePattern.MatchString(c.Name):
			res.addError(p, "Name can only contain letters, spaces, hyphens, and apostrophes")
		case hasWord(c.Name, blockedNames):
			res.addError(p, "Please provide a real name")
		}
	}

	if c.Email != "" {
		const p = "contact_info.email"
		switch {
		case len(c.Email) > 255:
			res.addError(p, "Email must be less than 255 characters")
		case !EmailValid(c.Email):
			res.addError(p, "Please enter a valid email address")
		case blockedDomain(c.Email):
			res.addError(p, "Please use a permanent email address")
		}
	}

	if c.Company != "" {
		const p = "contact_info.company"
		switch {
		case len(c.Company) < 2:
			res.addError(p, "Company name must be at least 2 characters")
		case len(c.Company) > 200:
			res.addError(p, "Company name must be less than 200 characters")
		case hasWord(c.Company, blockedCompanies):
			res.addError(p, "Please provide a real company name")
		}
	}
}

func checkText(res *ValidationResult, path, v string, terms []string, msg string) {
	if v == "" {
		return
	}
	switch {
	case len(v) < 5:
		res.addError(path, "Please provide more details")
	case len(v) > 500:
		res.addError(path, "Description too long")
	case !containsAny(strings.ToLower(v), terms):
		res.addError(path, msg)
	}
}

// ParseBudget reads the first amount in s, normalising k, m, thousand and
// million suffixes. For a range the suffix applies to the lower bound.
func ParseBudget(s string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k", "thousand":
		v *= 1_000
	case "m", "million":
		v *= 1_000_000
	}
	return v, true
}

// Headcount estimates the number of employees described by size. It uses
// the largest number present, or a size word. Zero means unknown.
func Headcount(size string) int {
	best := 0
	for _, n := range numberPattern.FindAllString(size, -1) {
		v, err := strconv.Atoi(strings.ReplaceAll(n, ",", ""))
		if err == nil && v > best {
			best = v
		}
	}
	if best > 0 {
		return best
	}
	lower := strings.ToLower(size)
	switch {
	case strings.Contains(lower, "enterprise"):
		return 5000
	case strings.Contains(lower, "large"):
		return 1000
	case strings.Contains(lower, "medium"):
		return 100
	case strings.Contains(lower, "small"):
		return 10
	}
	return 0
}

func hasWord(s string, words []string) bool {
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

func blockedDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, b := range blockedDomains {
		if strings.Contains(domain, b) {
			return true
		}
	}
	return false
}

func sanitizeInfo(info ExtractedInfo) ExtractedInfo {
	out := info.Clone()
	for _, f := range fields {
		if v := f.Get(out); v != "" {
			f.set(&out, SanitizeInput(v))
		}
	}
	return out
}
