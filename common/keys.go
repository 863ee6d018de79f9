package common

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptyPrefix = errors.New("key prefix cannot be empty")
	nonKeyChars    = regexp.MustCompile(`[^a-z0-9]+`)
)

// KeyPrefix normalises a configured Redis key prefix, falling back to
// fallback when input has no usable characters.
func KeyPrefix(input, fallback string) (string, error) {
	prefix := normalise(input)
	if prefix == "" {
		prefix = normalise(fallback)
	}
	if prefix == "" {
		return "", ErrEmptyPrefix
	}
	return prefix, nil
}

// Key joins a prefix and segments with ':'. Empty segments are kept so that
// guild-level keys stay distinct from channel-level ones.
func Key(prefix string, segments ...string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, s := range segments {
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

func normalise(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	out := nonKeyChars.ReplaceAllString(lower, "-")
	return strings.Trim(out, "-")
}
