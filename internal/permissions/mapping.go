package permissions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"chunkabank-bot/internal/models"
)

var adminValues = map[string]bool{"true": true, "yes": true, "y": true, "1": true}

// LoadMappings reads the user mapping table from a CSV file
func LoadMappings(path string) ([]models.UserMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open user mapping file: %w", err)
	}
	defer f.Close()

	return ParseMappings(f)
}

// ParseMappings parses rows of chat_user_id,ledger_user_id,is_admin after a header row
func ParseMappings(r io.Reader) ([]models.UserMapping, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read user mapping header: %w", err)
	}

	var mappings []models.UserMapping
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read user mapping row: %w", err)
		}

		if len(row) < 2 {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("user mapping line %d: expected at least 2 columns, got %d", line, len(row))
		}

		mapping := models.UserMapping{
			ChatUserID:   strings.TrimSpace(row[0]),
			LedgerUserID: strings.TrimSpace(row[1]),
		}
		if len(row) > 2 {
			mapping.IsAdmin = adminValues[strings.ToLower(strings.TrimSpace(row[2]))]
		}
		mappings = append(mappings, mapping)
	}

	return mappings, nil
}
