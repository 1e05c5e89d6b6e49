package persistence

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		expectSlug  string
		expectError bool
	}{
		{
			name:       "already normalized",
			input:      "spring-launch",
			expectSlug: "spring-launch",
		},
		{
			name:       "trims whitespace and lowercases",
			input:      "  Spring-Launch ",
			expectSlug: "spring-launch",
		},
		{
			name:        "empty string",
			input:       "   ",
			expectError: true,
		},
		{
			name:        "invalid characters",
			input:       "spring_launch",
			expectError: true,
		},
		{
			name:        "double hyphen",
			input:       "spring--launch",
			expectError: true,
		},
		{
			name:        "too long",
			input:       strings.Repeat("a", MaxSlugLength+1),
			expectError: true,
		},
		{
			name:        "leading hyphen",
			input:       "-bad-slug",
			expectError: true,
		},
		{
			name:        "trailing hyphen",
			input:       "bad-slug-",
			expectError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slug, err := NormalizeSlug(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expectSlug, slug)
		})
	}
}

func TestNormalizeSlugBlankIsRequired(t *testing.T) {
	t.Parallel()

	_, err := NormalizeSlug("  ")
	require.True(t, errors.Is(err, ErrSlugRequired))
}
