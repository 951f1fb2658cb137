// Package dataset loads uploaded spreadsheets into the flat, column-
// homogeneous row set the generation pipeline consumes.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/binding"
)

// ErrEmpty reports a spreadsheet with no data rows.
var ErrEmpty = errors.New("dataset: no data found")

// Dataset is one uploaded, immutable row set. Columns keeps the sheet's
// header order; every row answers every column, missing cells as "".
type Dataset struct {
	Columns []string
	Rows    []binding.DataRow
}

// Load reads a dataset, choosing the parser from the file extension.
// Supported: .xlsx, .xlsm, .xltx, .csv.
func Load(r io.Reader, filename string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return LoadCSV(r)
	case ".xlsx", ".xlsm", ".xltx":
		return LoadWorkbook(r)
	default:
		return nil, fmt.Errorf("dataset: unsupported file type %q", filepath.Ext(filename))
	}
}

// LoadWorkbook reads the first sheet of an Excel workbook. The first row is
// the column header; subsequent rows become data rows.
func LoadWorkbook(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("dataset: open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmpty
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("dataset: read sheet %q: %w", sheet, err)
	}
	return fromCells(rows)
}

// LoadCSV reads a comma-separated dataset with a header row.
func LoadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may be ragged; short rows pad with ""
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv: %w", err)
	}
	return fromCells(records)
}

func fromCells(cells [][]string) (*Dataset, error) {
	if len(cells) < 2 {
		return nil, ErrEmpty
	}

	// Header cells can be blank (unnamed columns are dropped); remember the
	// source cell index of each surviving column.
	var columns []string
	var indices []int
	for i, h := range cells[0] {
		h = strings.TrimSpace(h)
		if h != "" {
			columns = append(columns, h)
			indices = append(indices, i)
		}
	}
	if len(columns) == 0 {
		return nil, ErrEmpty
	}

	ds := &Dataset{Columns: columns, Rows: make([]binding.DataRow, 0, len(cells)-1)}
	for _, cell := range cells[1:] {
		row := make(binding.DataRow, len(columns))
		for c, col := range columns {
			idx := indices[c]
			if idx < len(cell) {
				row[col] = strings.TrimSpace(cell[idx])
			} else {
				row[col] = ""
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	if len(ds.Rows) == 0 {
		return nil, ErrEmpty
	}
	return ds, nil
}
