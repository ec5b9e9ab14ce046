package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ImportRow is one normalized row of an imported file, expressed in the
// canonical fields every import format maps into.
type ImportRow struct {
	Date        time.Time
	Extra       map[string]string // Unmapped source columns, keyed by header; stored with the transaction
	Description string
	Tags        string // Free-text, comma-separated tag names
	Notes       string
	Amount      decimal.Decimal
}

// TagNames splits the free-text Tags field on commas and trims each name.
// Empty names are dropped; duplicates are kept out.
func (r *ImportRow) TagNames() []string {
	if strings.TrimSpace(r.Tags) == "" {
		return nil
	}

	parts := strings.Split(r.Tags, ",")
	names := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
