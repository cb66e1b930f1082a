package helpers

import (
	"strings"
	"unicode/utf8"
)

// SliceMessage splits a message into chunks of at most maxLen characters.
// Chunks are cut on line boundaries; every chunk after the first starts with
// the prefix line when prefix is not empty. Lines that cannot fit a chunk on
// their own are cut into pieces.
func SliceMessage(message string, prefix string, maxLen int) []string {
	if maxLen <= 0 || utf8.RuneCountInString(message) <= maxLen {
		return []string{message}
	}

	prefixLen := utf8.RuneCountInString(prefix)
	budget := maxLen
	if prefix != "" {
		budget = maxLen - prefixLen - 1
		if budget < 1 {
			prefix, prefixLen, budget = "", 0, maxLen
		}
	}

	lines := splitLongLines(strings.Split(message, "\n"), budget)

	var chunks []string
	var current []string
	size := 0
	for _, line := range lines {
		lineLen := utf8.RuneCountInString(line)
		if len(current) > 0 && size+1+lineLen > maxLen {
			chunks = append(chunks, strings.Join(current, "\n"))
			current, size = nil, 0
			if prefix != "" {
				current, size = []string{prefix}, prefixLen
			}
		}

		if len(current) > 0 {
			size++
		}
		current = append(current, line)
		size += lineLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}

	return chunks
}

func splitLongLines(lines []string, limit int) []string {
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		runes := []rune(line)
		for len(runes) > limit {
			result = append(result, string(runes[:limit]))
			runes = runes[limit:]
		}
		result = append(result, string(runes))
	}
	return result
}
