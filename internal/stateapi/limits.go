package stateapi

import "regexp"

// APIVersion is the path prefix of every State service route.
const APIVersion = "v1beta1"

const (
	MaxTTLSeconds     = 365 * 24 * 60 * 60
	DefaultTTLSeconds = 24 * 60 * 60
	MinListCountHint  = 100
	MaxListCountHint  = 1000
	MaxKeyLength      = 1024
	MaxMatchLength    = 1024
	MaxValueSize      = 1024 * 1024
)

// Textual forms of the key and match patterns, used in error messages.
const (
	KeyPattern   = "^[a-zA-Z0-9-_.]{1,1024}$"
	MatchPattern = "^[a-zA-Z0-9-_.*]{1,1024}$"
)

// RE2 caps repetition counts at 1000, so lengths are checked separately.
var (
	keyChars   = regexp.MustCompile(`^[a-zA-Z0-9\-_.]+$`)
	matchChars = regexp.MustCompile(`^[a-zA-Z0-9\-_.*]+$`)
)

// ValidKey reports whether key satisfies KeyPattern.
func ValidKey(key string) bool {
	return len(key) >= 1 && len(key) <= MaxKeyLength && keyChars.MatchString(key)
}

// ValidMatch reports whether pattern satisfies MatchPattern.
func ValidMatch(pattern string) bool {
	return len(pattern) >= 1 && len(pattern) <= MaxMatchLength && matchChars.MatchString(pattern)
}
