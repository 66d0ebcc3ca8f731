package audit

import (
	"regexp"
	"strings"
)

var (
	dangerousBlocks = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script\b.*?</script>`),
		regexp.MustCompile(`(?is)<iframe\b.*?</iframe>`),
		regexp.MustCompile(`(?is)<object\b.*?</object>`),
		regexp.MustCompile(`(?is)<embed\b.*?</embed>`),
	}
	dangerousSchemes = regexp.MustCompile(`(?i)\b(?:javascript|vbscript|data):(\S)`)
	inlineHandlers   = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	controlChars     = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	spaceRuns        = regexp.MustCompile(`[ \t]{2,}`)
)

// MaxMessageLength bounds a single inbound chat message.
const MaxMessageLength = 2000

// SanitizeInput strips markup and control characters from user text and
// collapses runs of blanks.
func SanitizeInput(s string) string {
	for _, re := range dangerousBlocks {
		s = re.ReplaceAllString(s, "")
	}
	for dangerousSchemes.MatchString(s) {
		s = dangerousSchemes.ReplaceAllString(s, "$1")
	}
	s = inlineHandlers.ReplaceAllString(s, "")
	s = controlChars.ReplaceAllString(s, "")
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
