package persistence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxSlugLength bounds capture page slugs so they stay readable in public URLs.
const MaxSlugLength = 64

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ErrSlugRequired is returned by NormalizeSlug for blank input.
var ErrSlugRequired = errors.New("slug is required")

// NormalizeSlug trims whitespace, lowercases the value, and ensures it matches
// the URL-safe pattern used for capture page paths (/c/{slug}).
func NormalizeSlug(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrSlugRequired
	}

	normalized := strings.ToLower(trimmed)
	if len(normalized) > MaxSlugLength {
		return "", fmt.Errorf("invalid slug %q: longer than %d characters", input, MaxSlugLength)
	}
	if !slugPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid slug %q: use lowercase letters, numbers and single hyphens", input)
	}

	return normalized, nil
}
