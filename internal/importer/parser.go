// Package importer turns tabular uploads into validated, typed records.
//
// A document is parsed into rows keyed by normalized header, each row is
// passed to the validator registered for the import type, and the outcomes
// are folded into a Report. Nothing in this package touches storage or the
// database; the caller owns both.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadable is returned when the document cannot be parsed as a sheet.
var ErrUnreadable = errors.New("unreadable spreadsheet")

// xmlPartLimit caps a single decompressed xlsx part.
const xmlPartLimit = 16 << 20

// Format identifies the on-disk layout of a tabular document.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat picks a parser from the file name and declared mime type.
// Anything that is not CSV is treated as an Office Open XML workbook.
func DetectFormat(filename, mimeType string) Format {
	if strings.EqualFold(path.Ext(filename), ".csv") || strings.HasPrefix(mimeType, "text/csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// Row maps normalized column headers to trimmed cell values.
type Row map[string]string

// Get returns the trimmed value for a column, or "" when absent.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// GetOr returns the column value, or fallback when it is blank.
func (r Row) GetOr(column, fallback string) string {
	if v := r.Get(column); v != "" {
		return v
	}
	return fallback
}

// Blank reports whether every cell in the row is empty.
func (r Row) Blank() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseOptions bounds parser resource usage.
type ParseOptions struct {
	// MaxUnzipSize caps the total decompressed size of an xlsx workbook.
	// Zero keeps the excelize default.
	MaxUnzipSize int64
}

// Parse reads the first sheet of a document. The first row supplies the
// headers; every following row becomes a Row, blank rows included.
func Parse(r io.Reader, format Format, opts ParseOptions) ([]Row, error) {
	var (
		grid [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		grid, err = readCSV(r)
	default:
		grid, err = readXLSX(r, opts)
	}
	if err != nil {
		return nil, err
	}
	return rowsFromGrid(grid), nil
}

func readXLSX(r io.Reader, opts ParseOptions) ([][]string, error) {
	var xo excelize.Options
	if opts.MaxUnzipSize > 0 {
		xo.UnzipSizeLimit = opts.MaxUnzipSize
		xo.UnzipXMLSizeLimit = min(opts.MaxUnzipSize, xmlPartLimit)
	}

	f, err := excelize.OpenReader(r, xo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", ErrUnreadable, sheets[0], err)
	}
	return grid, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(NormalizeText(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	grid, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return grid, nil
}

// rowsFromGrid keys each data row by the header row. Short rows are padded
// with empty values; cells beyond the last header are dropped.
func rowsFromGrid(grid [][]string) []Row {
	if len(grid) == 0 {
		return nil
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = NormalizeHeader(h)
	}

	rows := make([]Row, 0, len(grid)-1)
	for _, cells := range grid[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(cells) {
				row[h] = strings.TrimSpace(cells[i])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// NormalizeHeader lower-cases a header and joins its words with '_', so
// "Registration No" and "registration_no" address the same column.
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), "_")
}
