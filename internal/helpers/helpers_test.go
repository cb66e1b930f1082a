package helpers

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkabank-bot/internal/models"
)

func TestParseConfirmation(t *testing.T) {
	tests := []struct {
		input    string
		expected Confirmation
	}{
		{input: "yes", expected: ConfirmationYes},
		{input: "  Y ", expected: ConfirmationYes},
		{input: "YES", expected: ConfirmationYes},
		{input: "no", expected: ConfirmationNo},
		{input: "n", expected: ConfirmationNo},
		{input: "yes please", expected: ConfirmationUnknown},
		{input: "", expected: ConfirmationUnknown},
		{input: "maybe", expected: ConfirmationUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseConfirmation(tt.input))
		})
	}
}

func TestJoinDescription(t *testing.T) {
	assert.Equal(t, "for lunch", JoinDescription([]string{`"for`, `lunch"`}))
	assert.Equal(t, "pizza", JoinDescription([]string{"'pizza'"}))
	assert.Equal(t, "", JoinDescription(nil))
}

func TestIsGreeting(t *testing.T) {
	assert.True(t, IsGreeting("hello"))
	assert.True(t, IsGreeting("yo"))
	assert.False(t, IsGreeting("hello there"))
}

func TestFormatParamError(t *testing.T) {
	parts := []string{"transfer", "-5", "to", "bob"}

	result := FormatParamError(parts, 1, "must be positive")

	lines := strings.Split(result, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "transfer -5 to bob", lines[0])
	assert.Equal(t, strings.Repeat(" ", 9)+"^^", lines[1])
	assert.Equal(t, "must be positive", lines[2])
}

func TestFormatParamError_OutOfRange(t *testing.T) {
	assert.Equal(t, "oops", FormatParamError([]string{"a"}, 4, "oops"))
}

func TestHighlight(t *testing.T) {
	assert.Equal(t, "===\nabc\nde", Highlight("abc\nde", true))
	assert.Equal(t, "abc\nde\n==", Highlight("abc\nde", false))
}

func TestFormatTransactionsTable(t *testing.T) {
	ts := time.Date(2024, time.January, 2, 15, 4, 0, 0, time.UTC)
	table := FormatTransactionsTable([]models.Transaction{
		{ID: "tx-1", Amount: decimal.RequireFromString("-12.5"), Timestamp: ts, Description: "lunch"},
		{ID: "tx-2", Amount: decimal.NewFromInt(100), Timestamp: ts, Description: "salary"},
	}, time.UTC)

	lines := strings.Split(table, "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Transaction ID")
	assert.Equal(t, strings.Repeat("=", len(lines[0])), lines[1])
	assert.Contains(t, lines[2], "-12.50")
	assert.Contains(t, lines[2], "tx-1")
	assert.Contains(t, lines[3], "100.00")
	assert.Equal(t, strings.Index(lines[2], "|"), strings.Index(lines[3], "|"))
}

func TestSliceMessage_Short(t *testing.T) {
	assert.Equal(t, []string{"hello"}, SliceMessage("hello", "…", 100))
}

func TestSliceMessage_Properties(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, fmt.Sprintf("line number %d with some padding text", i))
	}
	message := strings.Join(lines, "\n")

	for _, maxLen := range []int{50, 120, 500, 2000} {
		t.Run(fmt.Sprintf("max %d", maxLen), func(t *testing.T) {
			const prefix = "…more…"
			chunks := SliceMessage(message, prefix, maxLen)
			require.Greater(t, len(chunks), 1)

			var rebuilt []string
			for i, chunk := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(chunk), maxLen)
				chunkLines := strings.Split(chunk, "\n")
				if i > 0 {
					require.Equal(t, prefix, chunkLines[0])
					chunkLines = chunkLines[1:]
				}
				rebuilt = append(rebuilt, chunkLines...)
			}
			assert.Equal(t, lines, rebuilt)
		})
	}
}

// boundaryMessage builds a message of exactly size runes; multi-line messages break every ten runes
func boundaryMessage(size int, multiline bool) string {
	runes := make([]rune, size)
	for i := range runes {
		switch {
		case multiline && i%10 == 9:
			runes[i] = '\n'
		case multiline:
			runes[i] = 'a' + rune(i%10)
		default:
			runes[i] = 'é'
		}
	}
	return string(runes)
}

func TestSliceMessage_LimitBoundary(t *testing.T) {
	const (
		limit  = 45
		prefix = "…more…"
	)

	tests := []struct {
		name      string
		size      int
		multiline bool
		chunks    int
	}{
		{name: "multi-line at limit", size: limit, multiline: true, chunks: 1},
		{name: "multi-line over limit", size: limit + 1, multiline: true, chunks: 2},
		{name: "single line at limit", size: limit, chunks: 1},
		{name: "single line over limit", size: limit + 1, chunks: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			message := boundaryMessage(tt.size, tt.multiline)
			require.Equal(t, tt.size, utf8.RuneCountInString(message))

			chunks := SliceMessage(message, prefix, limit)
			if tt.chunks == 1 {
				assert.Equal(t, []string{message}, chunks)
				return
			}
			require.GreaterOrEqual(t, len(chunks), tt.chunks)

			var content []string
			for i, chunk := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(chunk), limit)
				chunkLines := strings.Split(chunk, "\n")
				if i > 0 {
					require.Equal(t, prefix, chunkLines[0])
					chunkLines = chunkLines[1:]
				}
				content = append(content, strings.Join(chunkLines, "\n"))
			}

			separator := ""
			if tt.multiline {
				separator = "\n"
			}
			assert.Equal(t, message, strings.Join(content, separator))
		})
	}
}

func TestSliceMessage_LongLine(t *testing.T) {
	message := strings.Repeat("x", 25) + "\nshort"

	chunks := SliceMessage(message, "", 10)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}
	assert.Equal(t, strings.Repeat("x", 25)+"short", strings.ReplaceAll(strings.Join(chunks, ""), "\n", ""))
}
