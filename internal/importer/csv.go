package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/Veraticus/house-money/internal/common"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a CSV file split into its header and data records. Every record
// has exactly len(Header) fields.
type Table struct {
	Header  []string
	Records [][]string
	Lines   []int // Source line where each record starts, 1-based
}

// Line returns the source line of record i. Tables built without line
// information count one line per record after the header.
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// decoderFor returns the decoder for a configured charset name, or nil for UTF-8.
func decoderFor(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported encoding %q", common.ErrInvalidConfig, name)
	}
}

// ReadCSV decodes data from charset and reads it as a headed CSV table.
func ReadCSV(data []byte, charset string) (*Table, error) {
	decoder, err := decoderFor(charset)
	if err != nil {
		return nil, err
	}

	var in io.Reader = bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))
	if decoder != nil {
		in = transform.NewReader(in, decoder)
	}

	reader := gocsv.LazyCSVReader(in)
	csvReader, _ := reader.(*csv.Reader)
	if csvReader != nil {
		csvReader.FieldsPerRecord = -1
	}

	var table *Table
	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: line %d: %w", common.ErrMalformedInput, parseErr.Line, parseErr.Err)
			}
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		if table == nil {
			header := make([]string, len(record))
			for i, name := range record {
				header[i] = strings.TrimSpace(name)
			}
			table = &Table{Header: header}
			continue
		}
		if isBlank(record) {
			continue
		}

		line := n
		if csvReader != nil {
			line, _ = csvReader.FieldPos(0)
		}
		table.Records = append(table.Records, fitRecord(record, len(table.Header)))
		table.Lines = append(table.Lines, line)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: file is empty", common.ErrMalformedInput)
	}
	return table, nil
}

// fitRecord pads short records and truncates long ones to width.
func fitRecord(record []string, width int) []string {
	if len(record) == width {
		return record
	}
	out := make([]string, width)
	copy(out, record)
	return out
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
