package llm

import (
	"regexp"
	"strings"
)

const MaxInputLength = 500

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+previous\s+instructions`),
	regexp.MustCompile(`(?i)you\s+are\s+now`),
	regexp.MustCompile(`(?i)system\s*:`),
	regexp.MustCompile(`(?i)assistant\s*:`),
	regexp.MustCompile(`(?i)<\s*script`),
}

// Sanitize strips phrases commonly used to hijack a prompt from caller text
// and caps it at MaxInputLength characters.
func Sanitize(text string) string {
	for _, re := range injectionPatterns {
		text = re.ReplaceAllString(text, "")
	}
	if r := []rune(text); len(r) > MaxInputLength {
		text = string(r[:MaxInputLength])
	}
	return strings.TrimSpace(text)
}
