package common

import (
	"regexp"
	"strings"
)

const maskedValue = "***MASKED***"

// SensitivePattern represents a pattern to detect and mask sensitive information
type SensitivePattern struct {
	Name        string         // Pattern name (e.g., "password", "bearer_token")
	Regex       *regexp.Regexp // Regular expression to match sensitive data
	Replacement string         // Replacement string
	Keys        []string       // Attribute keys to mask wholesale (case-insensitive)
}

// DefaultSensitivePatterns covers the credentials gatewayctl handles: admin
// passwords, bearer tokens and the raw JWT value written to the env file.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}=` + maskedValue,
		Keys:        []string{"password", "passwd", "pwd", "admin_password"},
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)(token|access[_-]?token|bearer[_-]?token)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}=` + maskedValue,
		Keys:        []string{"token", "access_token", "bearer_token", "mcpgateway_bearer_token"},
	},
	{
		Name:        "authorization",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + maskedValue,
		Keys:        []string{"authorization"},
	},
	{
		Name:        "secret",
		Regex:       regexp.MustCompile(`(?i)(secret|client[_-]?secret)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}=` + maskedValue,
		Keys:        []string{"secret", "client_secret"},
	},
}

// Masker redacts sensitive information before it reaches the log output.
type Masker struct {
	patterns []SensitivePattern
	enabled  bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return &Masker{patterns: DefaultSensitivePatterns, enabled: true}
}

// SetEnabled toggles masking on or off
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// IsEnabled reports whether masking is active
func (m *Masker) IsEnabled() bool {
	return m.enabled
}

// MaskValue masks a single attribute value. If the key itself is sensitive the
// whole value is replaced; otherwise embedded credentials are rewritten.
func (m *Masker) MaskValue(key, value string) string {
	if !m.enabled {
		return value
	}
	lk := strings.ToLower(key)
	for _, p := range m.patterns {
		for _, k := range p.Keys {
			if lk == k {
				return maskedValue
			}
		}
	}
	return m.MaskString(value)
}

// MaskString rewrites embedded credentials inside a free-form string.
func (m *Masker) MaskString(s string) string {
	if !m.enabled {
		return s
	}
	for _, p := range m.patterns {
		s = p.Regex.ReplaceAllString(s, p.Replacement)
	}
	return s
}

// MaskToken returns a short displayable prefix of a token for log output:
// enough to correlate runs, never the full credential.
func MaskToken(token string) string {
	if len(token) <= 10 {
		return maskedValue
	}
	return token[:10] + "..."
}
