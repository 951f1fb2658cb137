package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/binding"
)

func workbookBytes(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestLoadWorkbook(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Name", "Course", "Date"},
		{"Ada", "Go 101", "2024-01-15"},
		{"Bob", "", "2024-02-01"},
	})

	ds, err := LoadWorkbook(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Course", "Date"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, binding.DataRow{"Name": "Ada", "Course": "Go 101", "Date": "2024-01-15"}, ds.Rows[0])
	assert.Equal(t, "", ds.Rows[1]["Course"], "missing cells become empty strings")
}

func TestLoadWorkbookShortRowsPadded(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{
		{"Name", "Course"},
		{"Ada"},
	})

	ds, err := LoadWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, binding.DataRow{"Name": "Ada", "Course": ""}, ds.Rows[0])
}

func TestLoadWorkbookEmpty(t *testing.T) {
	data := workbookBytes(t, [][]interface{}{{"Name"}})
	_, err := LoadWorkbook(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoadCSV(t *testing.T) {
	in := "Name,Course\nAda,Go 101\nBob,\n"

	ds, err := LoadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Course"}, ds.Columns)
	require.Len(t, ds.Rows, 2)
	assert.Equal(t, "Go 101", ds.Rows[0]["Course"])
	assert.Equal(t, "", ds.Rows[1]["Course"])
}

func TestLoadCSVRaggedRows(t *testing.T) {
	in := "Name,Course\nAda\n"
	ds, err := LoadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, binding.DataRow{"Name": "Ada", "Course": ""}, ds.Rows[0])
}

func TestLoadDispatchesOnExtension(t *testing.T) {
	ds, err := Load(strings.NewReader("Name\nAda\n"), "people.CSV")
	require.NoError(t, err)
	assert.Len(t, ds.Rows, 1)

	_, err = Load(strings.NewReader("x"), "people.txt")
	assert.Error(t, err)
}

func TestBlankHeaderColumnsDropped(t *testing.T) {
	in := "Name,,Course\nAda,ignored,Go 101\n"
	ds, err := LoadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Course"}, ds.Columns)
	assert.Equal(t, "Go 101", ds.Rows[0]["Course"], "values stay aligned with their header cell")
}
