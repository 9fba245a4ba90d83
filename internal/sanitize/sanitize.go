// Package sanitize masks visitor PII and credentials before they reach logs
// or error responses. Lead records carry emails and phone numbers, so raw
// log lines must never contain them.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	phonePattern  = regexp.MustCompile(`\+?[1-9]\d{6,14}`)
	emailPattern  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|token|password|auth)[=:\s"']*([\w-]{16,})`)
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[\w.-]+`)
)

// Sanitizer masks sensitive substrings in free text.
type Sanitizer struct {
	patterns []patternConfig
}

type patternConfig struct {
	pattern     *regexp.Regexp
	replacement func(string) string
	enabled     bool
}

// Config selects which maskers are active.
type Config struct {
	MaskPhones       bool
	MaskEmails       bool
	MaskAPIKeys      bool
	MaskBearerTokens bool
}

// DefaultConfig enables every masker.
func DefaultConfig() Config {
	return Config{
		MaskPhones:       true,
		MaskEmails:       true,
		MaskAPIKeys:      true,
		MaskBearerTokens: true,
	}
}

// New creates a Sanitizer with the given configuration.
func New(cfg Config) *Sanitizer {
	return &Sanitizer{
		patterns: []patternConfig{
			{pattern: phonePattern, replacement: maskPhone, enabled: cfg.MaskPhones},
			{pattern: emailPattern, replacement: maskEmail, enabled: cfg.MaskEmails},
			{pattern: apiKeyPattern, replacement: maskAPIKey, enabled: cfg.MaskAPIKeys},
			{pattern: bearerPattern, replacement: maskBearer, enabled: cfg.MaskBearerTokens},
		},
	}
}

// NewDefault creates a sanitizer with default configuration.
func NewDefault() *Sanitizer {
	return New(DefaultConfig())
}

// String masks all sensitive data found in input.
func (s *Sanitizer) String(input string) string {
	result := input
	for _, p := range s.patterns {
		if p.enabled {
			result = p.pattern.ReplaceAllStringFunc(result, p.replacement)
		}
	}
	return result
}

// Map sanitizes string values in a map; keys that name credentials are
// redacted outright. Nested maps are walked recursively, mirroring the
// shape of extracted lead data.
func (s *Sanitizer) Map(input map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(input))
	for k, v := range input {
		switch val := v.(type) {
		case string:
			if isSensitiveKey(k) {
				result[k] = "[REDACTED]"
			} else {
				result[k] = s.String(val)
			}
		case map[string]interface{}:
			result[k] = s.Map(val)
		default:
			result[k] = v
		}
	}
	return result
}

// Error sanitizes an error message.
func (s *Sanitizer) Error(err error) string {
	if err == nil {
		return ""
	}
	return s.String(err.Error())
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return phone[:3] + strings.Repeat("*", len(phone)-5) + phone[len(phone)-2:]
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return "[email]"
	}
	if at <= 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}

func maskAPIKey(match string) string {
	parts := apiKeyPattern.FindStringSubmatch(match)
	if len(parts) >= 2 {
		prefix := strings.TrimSuffix(match, parts[len(parts)-1])
		return prefix + "[REDACTED]"
	}
	return "[REDACTED-KEY]"
}

func maskBearer(string) string {
	return "Bearer [REDACTED]"
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, sk := range []string{
		"password", "secret", "token", "auth",
		"api_key", "apikey", "api-key", "credential",
	} {
		if strings.Contains(lower, sk) {
			return true
		}
	}
	return false
}

// Email masks an email address for log output.
func Email(email string) string {
	return maskEmail(email)
}

// Phone masks a phone number for log output.
func Phone(phone string) string {
	return maskPhone(phone)
}

// APIKey masks an API key, keeping just enough for identification.
func APIKey(key string) string {
	if len(key) <= 8 {
		return "[REDACTED]"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
