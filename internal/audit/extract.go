package audit

import (
	"regexp"
	"strings"
	"unicode"
)

var industryKeywords = []string{
	"saas", "software", "marketing", "consulting", "ecommerce", "retail",
	"healthcare", "finance", "real estate", "manufacturing", "agency", "startup",
}

var acquisitionKeywords = []string{
	"find customers", "find clients", "get customers", "get clients", "win customers",
	"acquire", "acquisition", "leads", "referral", "word of mouth", "advertis",
	"outreach", "cold call", "cold email", "inbound", "outbound", "seo",
	"social media", "networking", "sales team",
}

var deliveryKeywords = []string{
	"deliver", "fulfil", "onboard", "platform", "ship", "implement", "install",
	"we provide", "our app", "in person", "on-site", "projects",
}

var manualTaskKeywords = []string{
	"manual", "time consuming", "time-consuming", "bottleneck", "slow", "inefficient",
	"problem", "challenge", "difficult", "repetitive", "data entry", "copy paste", "copy and paste",
}

var bottleneckKeywords = []string{
	"approval", "decision", "bottleneck", "delay", "waiting", "wait for", "stuck", "backlog",
}

var dataSiloKeywords = []string{
	"data", "system", "silo", "spreadsheet", "disconnected", "separate tools", "crm",
}

var timelineKeywords = []string{
	"asap", "urgent", "soon", "timeline", "immediately", "this quarter", "next quarter",
	"this year", "next year", "month", "week",
}

// roleWords never count as a name in "I am X" phrasing.
var roleWords = map[string]bool{
	"a": true, "an": true, "the": true, "owner": true, "manager": true, "director": true,
	"ceo": true, "cto": true, "coo": true, "cfo": true, "founder": true, "cofounder": true,
	"head": true, "vp": true, "lead": true, "looking": true, "interested": true, "not": true,
	"in": true, "at": true, "from": true, "with": true, "so": true, "very": true, "really": true,
	"currently": true, "working": true, "trying": true, "based": true, "here": true,
	"happy": true, "glad": true, "sure": true, "ready": true, "also": true, "just": true,
	"responsible": true, "struggling": true, "hoping": true, "curious": true, "part": true,
}

// nameStop ends a captured name or company phrase.
var nameStop = map[string]bool{
	"and": true, "from": true, "at": true, "with": true, "i": true, "my": true, "the": true,
	"email": true, "work": true, "of": true, "you": true, "can": true, "reach": true,
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?;]+\s+|\n+`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	digitPattern  = regexp.MustCompile(`\d`)

	sizePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d[\d,]*\s*(?:full[- ]time\s+)?employees?`),
		regexp.MustCompile(`(?i)\d[\d,]*\s*(?:people|staff|person)`),
		regexp.MustCompile(`(?i)team of \d[\d,]*`),
		regexp.MustCompile(`\d+\s*-\s*\d+`),
		regexp.MustCompile(`(?i)\b(?:small|medium|large)\b`),
	}

	budgetPattern   = regexp.MustCompile(`(?i)\$\s?\d[\d,]*(?:\.\d+)?(?:\s*-\s*\$?\d[\d,]*(?:\.\d+)?)?(?:\s*(?:k|m|thousand|million)\b)?|\b\d[\d,]*(?:\.\d+)?\s*(?:k|thousand|million)\b`)
	timelinePattern = regexp.MustCompile(`(?i)\b\d+\s*(?:-\s*\d+\s*)?(?:days?|weeks?|months?|quarters?|years?)\b`)
	rolePattern     = regexp.MustCompile(`(?i)\b(ceo|cto|coo|cfo|co-?founder|founder|owner|vp|vice president|director|head of \w+|manager|team lead|coordinator|administrator|analyst)\b`)

	explicitName = regexp.MustCompile(`(?i)\b(?:my name is|my name's|name is)\s+([A-Za-z][A-Za-z'\-]*(?:\s+[A-Za-z][A-Za-z'\-]*){0,3})`)
	iAmName      = regexp.MustCompile(`(?i)\bi(?:'m| am)\s+([A-Za-z][A-Za-z'\-]*(?:\s+[A-Za-z][A-Za-z'\-]*){0,3})`)
	lettersOnly  = regexp.MustCompile(`^[A-Za-z][A-Za-z '\-]*$`)

	explicitCompany = regexp.MustCompile(`(?i)\b(?:company is|company name is|company's name is|work at|work for|i'm with|i am with)\s+([A-Za-z0-9][A-Za-z0-9&'\- ]*)`)
	fromCompany     = regexp.MustCompile(`(?i)\bfrom\s+([A-Z0-9][A-Za-z0-9&'\- ]*)`)
)

// Extract returns prior updated with whatever the message reveals. It never
// overwrites a field that already holds a value, so replaying the same
// message against its own result is a no-op.
//
// Each phase collects its own fields. Some captures apply in any question
// phase regardless of what was asked: the discovery flow descriptions, an
// email address, and an explicit "my name is" statement.
// Pain-point keywords are also picked up once the conversation has moved
// past discovery.
func Extract(phase Phase, message string, prior ExtractedInfo) ExtractedInfo {
	out := prior.Clone()
	text := strings.TrimSpace(message)
	if text == "" {
		return out
	}

	if !phase.Collecting() && phase != PhaseReadyForGeneration {
		return out
	}

	lower := strings.ToLower(text)
	m := msg{text: text, lower: lower}

	if phase == PhaseDiscovery {
		extractDiscovery(&out, m)
	}
	fillField(&out, "discovery.acquisitionFlow", m.sentenceWith(acquisitionKeywords))
	fillField(&out, "discovery.deliveryFlow", m.sentenceWith(deliveryKeywords))

	if phase != PhaseDiscovery {
		extractPainPoints(&out, m)
	}

	fillField(&out, "contact_info.name", explicitNameOf(text))
	fillField(&out, "contact_info.email", emailPattern.FindString(text))

	if phase == PhaseContactInfo {
		extractContactFallbacks(&out, m)
	}
	return out
}

type msg struct {
	text  string
	lower string
}

// sentenceWith returns the first sentence containing any keyword.
func (m msg) sentenceWith(keywords []string) string {
	if !containsAny(m.lower, keywords) {
		return ""
	}
	for _, s := range sentenceSplit.Split(m.text, -1) {
		if containsAny(strings.ToLower(s), keywords) {
			return strings.TrimRight(strings.TrimSpace(s), ".!?;")
		}
	}
	return strings.TrimSpace(m.text)
}

func extractDiscovery(out *ExtractedInfo, m msg) {
	industry := ""
	for _, kw := range industryKeywords {
		if strings.Contains(m.lower, kw) {
			industry = kw
			break
		}
	}
	if industry == "" && (len(m.text) < 40 || strings.Contains(m.lower, "company")) {
		industry = m.text
	}
	fillField(out, "discovery.industry", industry)

	size := ""
	for _, re := range sizePatterns {
		if s := re.FindString(m.text); s != "" {
			size = strings.TrimSpace(s)
			break
		}
	}
	if size == "" && digitPattern.MatchString(m.text) {
		size = m.text
	}
	fillField(out, "discovery.companySize", size)
}

func extractPainPoints(out *ExtractedInfo, m msg) {
	fillField(out, "pain_points.manualTasks", m.sentenceWith(manualTaskKeywords))
	fillField(out, "pain_points.bottlenecks", m.sentenceWith(bottleneckKeywords))
	fillField(out, "pain_points.dataSilos", m.sentenceWith(dataSiloKeywords))

	budget := strings.TrimSpace(budgetPattern.FindString(m.text))
	if budget == "" {
		budget = m.sentenceWith([]string{"budget", "spend"})
	}
	fillField(out, "pain_points.budget", budget)

	timeline := strings.TrimSpace(timelinePattern.FindString(m.text))
	if timeline == "" {
		timeline = m.sentenceWith(timelineKeywords)
	}
	fillField(out, "pain_points.timeline", timeline)

	fillField(out, "pain_points.userRole", strings.ToLower(firstGroup(rolePattern, m.text)))
}

// extractContactFallbacks applies the weaker contact heuristics that only
// make sense when the question asked was about contact details.
func extractContactFallbacks(out *ExtractedInfo, m msg) {
	if g := firstGroup(iAmName, m.text); g != "" {
		name := trimPhrase(g)
		tokens := strings.Fields(name)
		if len(tokens) > 0 && len(tokens) <= 3 && !roleWords[strings.ToLower(tokens[0])] {
			fillField(out, "contact_info.name", name)
		}
	}

	rest := strings.Trim(emailPattern.ReplaceAllString(m.text, ""), " ,.;:-")
	if lettersOnly.MatchString(rest) && len(rest) >= 2 && len(rest) <= 30 && looksLikeName(rest) {
		fillField(out, "contact_info.name", strings.TrimSpace(rest))
	}

	company := trimPhrase(firstGroup(explicitCompany, m.text))
	if company == "" {
		company = trimPhrase(firstGroup(fromCompany, m.text))
	}
	if company == "" && containsAny(m.lower, []string{"company", "work at", "from"}) {
		company = m.text
	}
	fillField(out, "contact_info.company", company)
}

// notNameWords rule out a bare reply being taken as a name.
var notNameWords = map[string]bool{
	"me": true, "contact": true, "is": true, "it's": true, "mail": true, "hi": true, "hello": true,
	"thanks": true, "thank": true, "yes": true, "no": true, "ok": true, "okay": true, "sure": true,
	"please": true, "send": true, "it": true, "to": true, "here": true,
}

func looksLikeName(s string) bool {
	tokens := strings.Fields(s)
	if len(tokens) == 0 || len(tokens) > 3 {
		return false
	}
	for _, tok := range tokens {
		l := strings.ToLower(tok)
		if nameStop[l] || roleWords[l] || notNameWords[l] {
			return false
		}
	}
	return true
}

func explicitNameOf(text string) string {
	loc := explicitName.FindStringSubmatchIndex(text)
	if loc == nil {
		return ""
	}
	before := strings.ToLower(strings.TrimSpace(text[:loc[0]]))
	if strings.HasSuffix(before, "company") || strings.HasSuffix(before, "company's") {
		return ""
	}
	name := trimPhrase(text[loc[2]:loc[3]])
	if len(strings.Fields(name)) > 3 {
		return ""
	}
	return name
}

// trimPhrase cuts a captured phrase at the first stop word or punctuation.
func trimPhrase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if i := strings.IndexAny(s, ",.;!?"); i >= 0 {
		s = s[:i]
	}
	var kept []string
	for _, tok := range strings.Fields(s) {
		if nameStop[strings.ToLower(tok)] {
			break
		}
		kept = append(kept, tok)
	}
	return strings.TrimFunc(strings.Join(kept, " "), func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '\''
	})
}

func fillField(out *ExtractedInfo, path, value string) {
	f, ok := FieldByPath(path)
	if !ok {
		return
	}
	f.fill(out, strings.TrimSpace(value))
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
