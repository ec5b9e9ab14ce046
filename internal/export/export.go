// Package export writes transaction listings as CSV or XLSX. The CSV layout
// is the standard import layout, so an export can be imported again.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/house-money/internal/common"
	"github.com/Veraticus/house-money/internal/model"
)

// Format is an export file format.
type Format string

// Supported export formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet holding the rows of an XLSX export.
const SheetName = "Transactions"

// ParseFormat maps a name onto a format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: export format %q", common.ErrInvalidConfig, name)
	}
}

// FormatForPath picks the format from the extension of path, defaulting to CSV.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

type record struct {
	Date        string `csv:"Date"`
	Description string `csv:"Description"`
	Amount      string `csv:"Amount"`
	Tags        string `csv:"Tags"`
	Notes       string `csv:"Notes"`
	Source      string `csv:"Source"`
}

var headers = []string{"Date", "Description", "Amount", "Tags", "Notes", "Source"}

func toRecord(t *model.Transaction) record {
	return record{
		Date:        t.Date.Format(time.DateOnly),
		Description: t.Description,
		Amount:      t.Amount.StringFixed(2),
		Tags:        strings.Join(t.Tags, ", "),
		Notes:       t.Notes,
		Source:      t.SourceFile,
	}
}

// Write writes txns to w in format.
func Write(w io.Writer, format Format, txns []model.Transaction) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, txns)
	case FormatXLSX:
		return WriteXLSX(w, txns)
	default:
		return fmt.Errorf("%w: export format %q", common.ErrInvalidConfig, format)
	}
}

// WriteCSV writes txns as CSV with a header line.
func WriteCSV(w io.Writer, txns []model.Transaction) error {
	records := make([]record, 0, len(txns))
	for i := range txns {
		records = append(records, toRecord(&txns[i]))
	}
	if len(records) == 0 {
		// Header only.
		_, err := io.WriteString(w, strings.Join(headers, ",")+"\n")
		return err
	}
	if err := gocsv.Marshal(&records, w); err != nil {
		return fmt.Errorf("failed to write CSV export: %w", err)
	}
	return nil
}

// WriteXLSX writes txns as a single-sheet workbook. Amounts are numeric cells.
func WriteXLSX(w io.Writer, txns []model.Transaction) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	for i := range txns {
		t := &txns[i]
		rec := toRecord(t)
		row := []any{rec.Date, rec.Description, t.Amount.InexactFloat64(), rec.Tags, rec.Notes, rec.Source}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if len(txns) > 0 {
		last := fmt.Sprintf("C%d", len(txns)+1)
		if err := f.SetCellStyle(SheetName, "C2", last, money); err != nil {
			return fmt.Errorf("failed to style amounts: %w", err)
		}
	}
	if err := f.SetColWidth(SheetName, "B", "B", 40); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write XLSX export: %w", err)
	}
	return nil
}
