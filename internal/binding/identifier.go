package binding

import (
	"fmt"
	"regexp"
	"strings"
)

// Column names checked, in order, when picking the recipient identifier used
// in archive filenames.
var nameCandidates = []string{
	"NAME", "Name", "Full Name", "FullName", "name", "full name", "fullname",
	"Participant Name", "Student Name", "Recipient",
}

// NormalizeColumnKeys adds an underscore-stripped alias for every column key
// that contains underscores, so "Full_Name" also answers to "FullName".
// Existing keys are never overwritten.
func NormalizeColumnKeys(row DataRow) DataRow {
	normalized := make(DataRow, len(row))
	for k, v := range row {
		normalized[k] = v
	}
	for k, v := range row {
		if !strings.Contains(k, "_") {
			continue
		}
		alias := strings.ReplaceAll(k, "_", "")
		if _, exists := normalized[alias]; !exists {
			normalized[alias] = v
		}
	}
	return normalized
}

// RecipientName extracts the recipient's name from a row, trying the usual
// column spellings. Returns "" when no candidate has a non-empty value.
func RecipientName(row DataRow) string {
	normalized := NormalizeColumnKeys(row)
	for _, key := range nameCandidates {
		if v := normalized[key]; v != "" {
			return v
		}
	}
	return ""
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

const maxFileNameBase = 80

// SanitizeFileName reduces a value to [a-zA-Z0-9_-], bounded in length, for
// use inside archive entry names. Empty or fully-unsafe input falls back to
// the given default.
func SanitizeFileName(value, fallback string) string {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	base = unsafeFileChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = fallback
	}
	if len(base) > maxFileNameBase {
		base = base[:maxFileNameBase]
	}
	return base
}

// ArchiveEntryName builds the deterministic, sortable archive filename for
// row index (zero-based): a 3-digit sequence number plus the sanitized
// recipient identifier, falling back to recipient_<n>.
func ArchiveEntryName(index int, row DataRow, ext string) string {
	fallback := fmt.Sprintf("recipient_%d", index+1)
	name := SanitizeFileName(RecipientName(row), fallback)
	return fmt.Sprintf("%03d_%s.%s", index+1, name, ext)
}
