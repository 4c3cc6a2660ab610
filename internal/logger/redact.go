package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

var sensitiveKeys = []string{
	"token",
	"secret",
	"credential",
	"jitconfig",
	"jit_config",
	"authorization",
	"password",
	"private_key",
}

type secretPattern struct {
	pattern     *regexp.Regexp
	replacement string
}

var secretPatterns = []secretPattern{
	{
		// 'Authorization: Bearer <token>' or 'Authorization: token <token>'
		pattern:     regexp.MustCompile(`(?i)(Authorization:\s*(?:Bearer|token)\s+)\S+`),
		replacement: `${1}` + redacted,
	},
	{
		pattern:     regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9_.\-=]{8,}`),
		replacement: `${1}` + redacted,
	},
	{
		pattern:     regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{20,}`),
		replacement: redacted,
	},
	{
		pattern:     regexp.MustCompile(`github_pat_[a-zA-Z0-9_]{20,}`),
		replacement: redacted,
	},
	{
		// JWTs
		pattern:     regexp.MustCompile(`eyJ[A-Za-z0-9_=-]+\.[A-Za-z0-9_=-]+\.[A-Za-z0-9_.+/=-]*`),
		replacement: redacted,
	},
}

// Sanitize scrubs known secret formats out of free text.
func Sanitize(s string) string {
	for _, p := range secretPatterns {
		s = p.pattern.ReplaceAllString(s, p.replacement)
	}
	return s
}

// Redact is a slog ReplaceAttr hook. Attributes named after secrets are
// replaced outright; other string and error values are scrubbed.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) && a.Value.Kind() != slog.KindGroup {
		return slog.String(a.Key, redacted)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if s := a.Value.String(); s != "" {
			a.Value = slog.StringValue(Sanitize(s))
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			a.Value = slog.StringValue(Sanitize(err.Error()))
		}
	}
	return a
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
