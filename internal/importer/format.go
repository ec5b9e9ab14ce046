package importer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Veraticus/house-money/internal/common"
)

// Format identifies how the columns of an uploaded CSV are named.
type Format string

// Supported formats.
const (
	FormatStandard Format = "standard"
	FormatBank     Format = "bank"
	FormatCustom   Format = "custom"
)

// Canonical column names every format maps into.
const (
	ColumnDate        = "Date"
	ColumnDescription = "Description"
	ColumnAmount      = "Amount"
	ColumnTags        = "Tags"
	ColumnNotes       = "Notes"
)

// ParseFormat maps a user-supplied name onto a Format. The empty string is
// the standard format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return FormatStandard, nil
	case FormatStandard, FormatBank, FormatCustom:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownFormat, name)
	}
}

// ColumnMapping names the source columns holding the canonical fields.
type ColumnMapping struct {
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount,omitempty"`
}

// StandardMapping is the identity mapping.
var StandardMapping = ColumnMapping{
	Date:        ColumnDate,
	Description: ColumnDescription,
	Amount:      ColumnAmount,
}

// BankMapping matches the export layout of common bank statements.
var BankMapping = ColumnMapping{
	Date:        "Transaction Date",
	Description: "Details",
	Amount:      "Transaction Amount",
}

// ResolveMapping returns the column mapping for format. For the custom format
// each unset field of custom falls back to the standard name.
func ResolveMapping(format Format, custom ColumnMapping) (ColumnMapping, error) {
	switch format {
	case FormatStandard, "":
		return StandardMapping, nil
	case FormatBank:
		return BankMapping, nil
	case FormatCustom:
		m := ColumnMapping{
			Date:        strings.TrimSpace(custom.Date),
			Description: strings.TrimSpace(custom.Description),
			Amount:      strings.TrimSpace(custom.Amount),
		}
		if m.Date == "" {
			m.Date = ColumnDate
		}
		if m.Description == "" {
			m.Description = ColumnDescription
		}
		if m.Amount == "" {
			m.Amount = ColumnAmount
		}
		return m, nil
	default:
		return ColumnMapping{}, fmt.Errorf("%w: %q", common.ErrUnknownFormat, format)
	}
}

// sources lists the mapped source columns in date, description, amount order.
func (m ColumnMapping) sources() []string {
	return []string{m.Date, m.Description, m.Amount}
}

// Missing lists every mapped column absent from header, in mapping order.
func (m ColumnMapping) Missing(header []string) []string {
	var missing []string
	for _, col := range m.sources() {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// MissingColumnsError rejects a file that lacks required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnsError) Unwrap() error {
	return common.ErrMalformedInput
}
