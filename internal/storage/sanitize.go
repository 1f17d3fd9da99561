package storage

import "regexp"

// redactionMarker replaces anything that looks like credential material
const redactionMarker = "[REDACTED]"

var (
	structuredPatterns = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{regexp.MustCompile(`(?i)"(password|secret|key|token|auth)"\s*:\s*"[^"]*"`), `"$1":"` + redactionMarker + `"`},
		{regexp.MustCompile(`(?is)<(password|secret|key|token|auth)>.*?</(password|secret|key|token|auth)>`), `<$1>` + redactionMarker + `</$2>`},
	}

	sensitivePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)password=[^&\s]*`),
		regexp.MustCompile(`(?i)key=[^&\s]*`),
		regexp.MustCompile(`(?i)secret=[^&\s]*`),
		regexp.MustCompile(`(?i)token=[^&\s]*`),
		regexp.MustCompile(`(?i)auth[^&\s]*`),
		regexp.MustCompile(`(?i)basic\s+[a-zA-Z0-9+/=]+`),
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]+`),
		regexp.MustCompile(`[\w.\-]+@[\w.\-]+`),
	}
)

// Scrub removes credential-looking substrings from a message before it is
// logged or returned. JSON and XML key/value pairs are redacted before the
// free-text patterns run.
func Scrub(message string) string {
	if message == "" {
		return ""
	}

	sanitized := message
	for _, sp := range structuredPatterns {
		sanitized = sp.pattern.ReplaceAllString(sanitized, sp.replacement)
	}
	for _, pattern := range sensitivePatterns {
		sanitized = pattern.ReplaceAllString(sanitized, redactionMarker)
	}
	return sanitized
}
