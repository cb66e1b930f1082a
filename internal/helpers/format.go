package helpers

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"chunkabank-bot/internal/constants"
	"chunkabank-bot/internal/models"
)

// Highlight adds a marker line before the first line or after the last line
func Highlight(message string, before bool) string {
	lines := strings.Split(message, "\n")
	if before {
		return strings.Repeat("=", utf8.RuneCountInString(lines[0])) + "\n" + message
	}
	return message + "\n" + strings.Repeat("=", utf8.RuneCountInString(lines[len(lines)-1]))
}

// FormatParamError reproduces the command with a caret marker under the offending token
func FormatParamError(parts []string, index int, message string) string {
	if index < 0 || index >= len(parts) {
		return message
	}

	offset := index
	for _, part := range parts[:index] {
		offset += utf8.RuneCountInString(part)
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(parts, " "))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat(" ", offset))
	sb.WriteString(strings.Repeat("^", utf8.RuneCountInString(parts[index])))
	sb.WriteString("\n")
	sb.WriteString(message)
	return sb.String()
}

// FormatUsage renders the invalid format reply for one or more grammars
func FormatUsage(formats ...string) string {
	var sb strings.Builder
	sb.WriteString("Invalid command format, use:")
	for _, format := range formats {
		sb.WriteString("\n  ")
		sb.WriteString(format)
	}
	return sb.String()
}

// FormatUsersTable lists users one per line
func FormatUsersTable(users []models.UserInfo) string {
	lines := make([]string, 0, len(users))
	for _, user := range users {
		lines = append(lines, "  "+user.PrintableName())
	}
	return strings.Join(lines, "\n")
}

// FormatTime renders a timestamp in the given location
func FormatTime(ts time.Time, loc *time.Location) string {
	return ts.In(loc).Format(constants.TimestampFormat)
}

// FormatTransactionsTable renders transactions as an aligned table with an underlined header
func FormatTransactionsTable(transactions []models.Transaction, loc *time.Location) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 1, ' ', tabwriter.Debug)

	fmt.Fprintln(w, " Time\t Amount\t Description\t Transaction ID")
	for _, t := range transactions {
		fmt.Fprintf(w, " %s\t %*s\t %s\t %s\n",
			FormatTime(t.Timestamp, loc),
			constants.AmountWidth, t.Amount.StringFixed(2),
			t.Description,
			t.ID,
		)
	}
	w.Flush()

	header, rows, _ := strings.Cut(strings.TrimRight(sb.String(), "\n"), "\n")
	table := Highlight(header, false)
	if rows != "" {
		table += "\n" + rows
	}
	return table
}
