package validation

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "chunkabank-bot/internal/errors"
)

// DateLayouts are the accepted date formats, day first
var DateLayouts = []string{
	"2-Jan-06",
	"2-Jan-2006",
	"2/Jan/06",
	"2/Jan/2006",
	"2-1-06",
	"2-1-2006",
	"2/1/06",
	"2/1/2006",
}

// ParseAmount parses a positive money amount found at token index
func ParseAmount(text string, index int) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, apperrors.NewParamError(index, "invalid number")
	}

	if !amount.IsPositive() {
		return decimal.Zero, apperrors.NewParamError(index, "must be positive")
	}

	return amount, nil
}

// ParsePositiveInt parses a positive integer found at token index
func ParsePositiveInt(text string, index int) (int, error) {
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, apperrors.NewParamError(index, "invalid number")
	}

	if n <= 0 {
		return 0, apperrors.NewParamError(index, "must be positive")
	}

	return n, nil
}

// ParseDate parses a day-first date found at token index in the given location
func ParseDate(text string, index int, now time.Time, loc *time.Location) (time.Time, error) {
	for _, layout := range DateLayouts {
		if date, err := time.ParseInLocation(layout, text, loc); err == nil {
			return date, nil
		}
	}

	return time.Time{}, apperrors.NewParamError(index,
		"invalid date format, use one of the following formats: %s", DateExamples(now))
}

// DateExamples renders every accepted layout for the given day
func DateExamples(now time.Time) string {
	seen := make(map[string]bool, len(DateLayouts))
	examples := make([]string, 0, len(DateLayouts))
	for _, layout := range DateLayouts {
		example := now.Format(layout)
		if seen[example] {
			continue
		}
		seen[example] = true
		examples = append(examples, example)
	}
	return strings.Join(examples, ", ")
}
