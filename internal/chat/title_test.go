package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCleanTitleStripsQuotes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"curly quotes", "“Quarterly Report Discussion”", "Quarterly Report Discussion"},
		{"straight quotes", `"Budget Review"`, "Budget Review"},
		{"single curly quotes", "‘Plan’", "Plan"},
		{"whitespace around quotes", "  \"Roadmap\"  ", "Roadmap"},
		{"quotes inside kept", `Say "hello" politely`, `Say "hello" politely`},
		{"blank", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanTitle(tt.in))
		})
	}
}

func TestCleanTitleTruncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := cleanTitle(long)
	assert.Equal(t, 255, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, titleTruncationMarker))
	assert.Equal(t, strings.Repeat("a", 252), strings.TrimSuffix(got, titleTruncationMarker))
}

func TestCleanTitleShortUntouched(t *testing.T) {
	assert.Equal(t, "short", cleanTitle("short"))
}
