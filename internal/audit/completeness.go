package audit

import (
	"regexp"
	"strings"
)

// FallbackQuestion is asked when no specific field can be targeted.
const FallbackQuestion = "Could you provide a bit more detail about your current situation? This will help me give you more accurate recommendations."

var validEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailValid reports whether s is a syntactically valid email address.
func EmailValid(s string) bool {
	return validEmail.MatchString(strings.TrimSpace(s))
}

// Completeness is the result of evaluating extracted data against a phase.
type Completeness struct {
	Complete           bool     `json:"complete"`
	MissingFields      []string `json:"missingFields"`
	Confidence         float64  `json:"confidence"`
	ClarifyingQuestion string   `json:"clarifyingQuestion,omitempty"`
}

// Evaluate checks every required field of phase and of all phases before it.
// A present but malformed email counts as missing. Confidence is the share
// of required fields present, so it is 1 only when nothing is missing.
func Evaluate(info ExtractedInfo, phase Phase) Completeness {
	var required int
	missing := []string{}
	question := ""

	for _, s := range phase.Sections() {
		for _, f := range sectionFields(s) {
			if !f.Required {
				continue
			}
			required++
			if present(f, info) {
				continue
			}
			missing = append(missing, f.Path())
			if question == "" {
				question = f.Question
			}
		}
	}

	res := Completeness{
		Complete:      len(missing) == 0,
		MissingFields: missing,
		Confidence:    1,
	}
	if required > 0 && len(missing) > 0 {
		res.Confidence = float64((required-len(missing))*100/required) / 100
		res.ClarifyingQuestion = question
	}
	return res
}

// QuestionFor returns the canned question for the first path in missing.
func QuestionFor(missing []string) string {
	for _, p := range missing {
		if f, ok := FieldByPath(p); ok {
			return f.Question
		}
	}
	return FallbackQuestion
}

func present(f Field, info ExtractedInfo) bool {
	v := f.Get(info)
	if v == "" {
		return false
	}
	if f.Path() == "contact_info.email" {
		return EmailValid(v)
	}
	return true
}
