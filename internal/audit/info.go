package audit

import "time"

// Section names one of the three sub-records of ExtractedInfo.
type Section string

const (
	SectionDiscovery   Section = "discovery"
	SectionPainPoints  Section = "pain_points"
	SectionContactInfo Section = "contact_info"
)

// Discovery describes the prospect's business.
type Discovery struct {
	Industry        string `json:"industry,omitempty" yaml:"industry,omitempty"`
	CompanySize     string `json:"companySize,omitempty" yaml:"companySize,omitempty"`
	AcquisitionFlow string `json:"acquisitionFlow,omitempty" yaml:"acquisitionFlow,omitempty"`
	DeliveryFlow    string `json:"deliveryFlow,omitempty" yaml:"deliveryFlow,omitempty"`
}

// PainPoints describes what hurts and what the prospect can spend on it.
type PainPoints struct {
	ManualTasks string `json:"manualTasks,omitempty" yaml:"manualTasks,omitempty"`
	Bottlenecks string `json:"bottlenecks,omitempty" yaml:"bottlenecks,omitempty"`
	DataSilos   string `json:"dataSilos,omitempty" yaml:"dataSilos,omitempty"`
	Budget      string `json:"budget,omitempty" yaml:"budget,omitempty"`
	Timeline    string `json:"timeline,omitempty" yaml:"timeline,omitempty"`
	UserRole    string `json:"userRole,omitempty" yaml:"userRole,omitempty"`
}

// ContactInfo identifies the prospect.
type ContactInfo struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Email   string `json:"email,omitempty" yaml:"email,omitempty"`
	Company string `json:"company,omitempty" yaml:"company,omitempty"`
}

// ExtractedInfo is everything captured so far. Each section is nil until
// one of its fields has been captured. An empty string means absent.
type ExtractedInfo struct {
	Discovery   *Discovery   `json:"discovery" yaml:"discovery,omitempty"`
	PainPoints  *PainPoints  `json:"pain_points" yaml:"pain_points,omitempty"`
	ContactInfo *ContactInfo `json:"contact_info" yaml:"contact_info,omitempty"`
}

// Clone returns a deep copy.
func (e ExtractedInfo) Clone() ExtractedInfo {
	var out ExtractedInfo
	if e.Discovery != nil {
		d := *e.Discovery
		out.Discovery = &d
	}
	if e.PainPoints != nil {
		p := *e.PainPoints
		out.PainPoints = &p
	}
	if e.ContactInfo != nil {
		c := *e.ContactInfo
		out.ContactInfo = &c
	}
	return out
}

// IsEmpty reports whether nothing has been captured.
func (e ExtractedInfo) IsEmpty() bool {
	for _, f := range Fields() {
		if f.Get(e) != "" {
			return false
		}
	}
	return true
}

// Role is the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. Messages are never edited once appended.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendMessage appends m unless it repeats the most recently appended
// message. It reports whether m was appended.
func AppendMessage(msgs []Message, m Message) ([]Message, bool) {
	if n := len(msgs); n > 0 {
		last := msgs[n-1]
		if last.Role == m.Role && last.Content == m.Content {
			return msgs, false
		}
	}
	return append(msgs, m), true
}

// Field describes one extractable field.
type Field struct {
	Section  Section
	Name     string
	Required bool
	Question string

	get func(ExtractedInfo) string
	set func(*ExtractedInfo, string)
}

// Path is the dotted name used in missing-field lists and error maps.
func (f Field) Path() string { return string(f.Section) + "." + f.Name }

// Get returns the field's current value.
func (f Field) Get(e ExtractedInfo) string { return f.get(e) }

// fill sets the field unless it already holds a value.
func (f Field) fill(e *ExtractedInfo, v string) bool {
	if v == "" || f.get(*e) != "" {
		return false
	}
	f.set(e, v)
	return true
}

func discovery(e *ExtractedInfo) *Discovery {
	if e.Discovery == nil {
		e.Discovery = &Discovery{}
	}
	return e.Discovery
}

func painPoints(e *ExtractedInfo) *PainPoints {
	if e.PainPoints == nil {
		e.PainPoints = &PainPoints{}
	}
	return e.PainPoints
}

func contactInfo(e *ExtractedInfo) *ContactInfo {
	if e.ContactInfo == nil {
		e.ContactInfo = &ContactInfo{}
	}
	return e.ContactInfo
}

// fields is in declaration order, which is also question priority order.
var fields = []Field{
	{
		Section: SectionDiscovery, Name: "industry", Required: true,
		Question: "To provide relevant recommendations, could you tell me what industry you're in?",
		get: func(e ExtractedInfo) string {
			if e.Discovery == nil {
				return ""
			}
			return e.Discovery.Industry
		},
		set: func(e *ExtractedInfo, v string) { discovery(e).Industry = v },
	},
	{
		Section: SectionDiscovery, Name: "companySize", Required: true,
		Question: "How many people work at your company? This helps me recommend solutions that fit your scale.",
		get: func(e ExtractedInfo) string {
			if e.Discovery == nil {
				return ""
			}
			return e.Discovery.CompanySize
		},
		set: func(e *ExtractedInfo, v string) { discovery(e).CompanySize = v },
	},
	{
		Section: SectionDiscovery, Name: "acquisitionFlow", Required: true,
		Question: "How do you currently find and win new customers? For example referrals, ads, or outbound sales.",
		get: func(e ExtractedInfo) string {
			if e.Discovery == nil {
				return ""
			}
			return e.Discovery.AcquisitionFlow
		},
		set: func(e *ExtractedInfo, v string) { discovery(e).AcquisitionFlow = v },
	},
	{
		Section: SectionDiscovery, Name: "deliveryFlow", Required: true,
		Question: "Once someone becomes a customer, how do you deliver your product or service to them?",
		get: func(e ExtractedInfo) string {
			if e.Discovery == nil {
				return ""
			}
			return e.Discovery.DeliveryFlow
		},
		set: func(e *ExtractedInfo, v string) { discovery(e).DeliveryFlow = v },
	},
	{
		Section: SectionPainPoints, Name: "manualTasks", Required: true,
		Question: "Could you describe some of the manual, repetitive tasks your team handles regularly?",
		get: func(e ExtractedInfo) string {
			if e.PainPoints == nil {
				return ""
			}
			return e.PainPoints.ManualTasks
		},
		set: func(e *ExtractedInfo, v string) { painPoints(e).ManualTasks = v },
	},
	{
		Section: SectionPainPoints, Name: "bottlenecks", Required: true,
		Question: "What are the biggest bottlenecks or delays in your current processes?",
		get: func(e ExtractedInfo) string {
			if e.PainPoints == nil {
				return ""
			}
			return e.PainPoints.Bottlenecks
		},
		set: func(e *ExtractedInfo, v string) { painPoints(e).Bottlenecks = v },
	},
	{
		Section: SectionPainPoints, Name: "dataSilos", Required: true,
		Question: "Where does your business data live today? Do your tools and systems talk to each other?",
		get: func(e ExtractedInfo) string {
			if e.PainPoints == nil {
				return ""
			}
			return e.PainPoints.DataSilos
		},
		set: func(e *ExtractedInfo, v string) { painPoints(e).DataSilos = v },
	},
	{
		Section: SectionPainPoints, Name: "budget", Required: true,
		Question: "Do you have a budget range in mind for automation initiatives?",
		get: func(e ExtractedInfo) string {
			if e.PainPoints == nil {
				return ""
			}
			return e.PainPoints.Budget
		},
		set: func(e *ExtractedInfo, v string) { painPoints(e).Budget = v },
	},
	{
		Section: SectionPainPoints, Name: "timeline", Required: true,
		Question: "What's your ideal timeline for implementing automation solutions?",
		get: func(e ExtractedInfo) string {
			if e.PainPoints == nil {
				return ""
			}
			return e.PainPoints.Timeline
		},
		set: func(e *ExtractedInfo, v string) { painPoints(e).Timeline = v },
	},
	{
		Section: SectionPainPoints, Name: "userRole", Required: true,
		Question: "What's your role at the company?",
		get: func(e ExtractedInfo) string {
			if e.PainPoints == nil {
				return ""
			}
			return e.PainPoints.UserRole
		},
		set: func(e *ExtractedInfo, v string) { painPoints(e).UserRole = v },
	},
	{
		Section: SectionContactInfo, Name: "name", Required: true,
		Question: "I'd like to personalize your report. What's your name?",
		get: func(e ExtractedInfo) string {
			if e.ContactInfo == nil {
				return ""
			}
			return e.ContactInfo.Name
		},
		set: func(e *ExtractedInfo, v string) { contactInfo(e).Name = v },
	},
	{
		Section: SectionContactInfo, Name: "email", Required: true,
		Question: "To send you the audit report, I'll need your email address. What's the best email to reach you?",
		get: func(e ExtractedInfo) string {
			if e.ContactInfo == nil {
				return ""
			}
			return e.ContactInfo.Email
		},
		set: func(e *ExtractedInfo, v string) { contactInfo(e).Email = v },
	},
	{
		Section: SectionContactInfo, Name: "company", Required: false,
		Question: "Which company are you with?",
		get: func(e ExtractedInfo) string {
			if e.ContactInfo == nil {
				return ""
			}
			return e.ContactInfo.Company
		},
		set: func(e *ExtractedInfo, v string) { contactInfo(e).Company = v },
	},
}

// Fields returns every extractable field in declaration order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// FieldByPath looks up a field by its dotted path.
func FieldByPath(path string) (Field, bool) {
	for _, f := range fields {
		if f.Path() == path {
			return f, true
		}
	}
	return Field{}, false
}

func sectionFields(s Section) []Field {
	var out []Field
	for _, f := range fields {
		if f.Section == s {
			out = append(out, f)
		}
	}
	return out
}
