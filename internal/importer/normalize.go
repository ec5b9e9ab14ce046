package importer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
)

// MalformedPolicy decides what happens to rows whose date or amount cannot
// be parsed.
type MalformedPolicy string

// Malformed row policies.
const (
	// PolicyDrop skips the row and counts it.
	PolicyDrop MalformedPolicy = "drop"
	// PolicyReject fails the whole file at the first bad row.
	PolicyReject MalformedPolicy = "reject"
)

// ParsePolicy maps a configured name onto a policy; empty means drop.
func ParsePolicy(name string) (MalformedPolicy, error) {
	switch p := MalformedPolicy(strings.ToLower(strings.TrimSpace(name))); p {
	case "":
		return PolicyDrop, nil
	case PolicyDrop, PolicyReject:
		return p, nil
	default:
		return "", fmt.Errorf("%w: malformed row policy %q", common.ErrInvalidConfig, name)
	}
}

// dateLayouts are tried in order.
var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// ParseDate parses s with the first accepted layout that fits.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

var (
	amountCleaner = strings.NewReplacer("$", "", "€", "", "£", "", " ", "", "\u00a0", "")

	// Commas are only accepted as thousands separators.
	thousandsGrouping = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// ParseAmount parses a signed decimal amount. Currency symbols and thousands
// separators are ignored; "(12.50)" and "12.50-" are negative. A comma used
// any other way, such as the decimal comma in "4,50", is an error.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}

	s = amountCleaner.Replace(s)
	s = strings.TrimPrefix(s, "+")
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}

	if strings.Contains(s, ",") {
		if !thousandsGrouping.MatchString(s) {
			return decimal.Zero, fmt.Errorf("invalid amount %q", s)
		}
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// MalformedRowError rejects a file because one row could not be parsed.
type MalformedRowError struct {
	Fields []string // Canonical names of the unparseable fields
	Line   int      // 1-based line in the file, counting the header
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("line %d: invalid %s", e.Line, strings.Join(e.Fields, " and "))
}

func (e *MalformedRowError) Unwrap() error {
	return common.ErrMalformedInput
}

// Normalized is the result of normalizing one file.
type Normalized struct {
	Rows    []model.ImportRow
	Dropped int
}

// columnRole is what a source column becomes in the canonical row.
type columnRole int

const (
	roleDiscard columnRole = iota
	roleDate
	roleDescription
	roleAmount
	roleTags
	roleNotes
	roleExtra
)

// Normalize renames mapped columns to their canonical names and converts
// every record to an ImportRow. Unmapped columns pass through unless their
// name is a canonical name already filled by the mapping.
func Normalize(table *Table, mapping ColumnMapping, policy MalformedPolicy) (*Normalized, error) {
	if missing := mapping.Missing(table.Header); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	roles := assignRoles(table.Header, mapping)

	result := &Normalized{Rows: make([]model.ImportRow, 0, len(table.Records))}
	for i, record := range table.Records {
		row, bad := buildRow(table.Header, roles, record)
		if len(bad) > 0 {
			if policy == PolicyReject {
				return nil, &MalformedRowError{Line: table.Line(i), Fields: bad}
			}
			result.Dropped++
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

func assignRoles(header []string, mapping ColumnMapping) []columnRole {
	roles := make([]columnRole, len(header))
	assigned := make(map[columnRole]bool)

	// Mapped columns first; the first occurrence of a name wins.
	mapped := []struct {
		source string
		role   columnRole
	}{
		{mapping.Date, roleDate},
		{mapping.Description, roleDescription},
		{mapping.Amount, roleAmount},
	}
	for _, m := range mapped {
		for i, name := range header {
			if name == m.source && roles[i] == roleDiscard {
				roles[i] = m.role
				break
			}
		}
	}

	for i, name := range header {
		if roles[i] != roleDiscard {
			continue
		}
		switch name {
		case ColumnDate, ColumnDescription, ColumnAmount:
			// Collides with a canonical column already in use.
		case ColumnTags:
			if !assigned[roleTags] {
				roles[i] = roleTags
				assigned[roleTags] = true
			}
		case ColumnNotes:
			if !assigned[roleNotes] {
				roles[i] = roleNotes
				assigned[roleNotes] = true
			}
		case "":
		default:
			roles[i] = roleExtra
		}
	}
	return roles
}

func buildRow(header []string, roles []columnRole, record []string) (model.ImportRow, []string) {
	var (
		row model.ImportRow
		bad []string
	)
	for i, role := range roles {
		value := record[i]
		switch role {
		case roleDate:
			d, err := ParseDate(value)
			if err != nil {
				bad = append(bad, ColumnDate)
				continue
			}
			row.Date = d
		case roleDescription:
			row.Description = strings.TrimSpace(value)
		case roleAmount:
			a, err := ParseAmount(value)
			if err != nil {
				bad = append(bad, ColumnAmount)
				continue
			}
			row.Amount = a
		case roleTags:
			row.Tags = strings.TrimSpace(value)
		case roleNotes:
			row.Notes = strings.TrimSpace(value)
		case roleExtra:
			if row.Extra == nil {
				row.Extra = make(map[string]string)
			}
			row.Extra[header[i]] = value
		}
	}
	return row, bad
}
