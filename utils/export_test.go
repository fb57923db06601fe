package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jing2uo/finfo2db/model"
)

func sampleRecords() []model.PriceRecord {
	return []model.PriceRecord{
		{
			Code:     "VNM",
			Date:     time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
			Time:     null.StringFrom("15:00:00"),
			Floor:    null.StringFrom("HOSE"),
			Close:    null.FloatFrom(66.5),
			NmVolume: null.FloatFrom(1234500),
		},
		{
			Code: "VCB",
			Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestExportPricesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := ExportPrices(dir, "stock_price", FormatCSV, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "stock_price.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	header := strings.Split(lines[0], ",")
	assert.Equal(t, []string{"code", "date", "time", "floor"}, header[:4])
	assert.Equal(t, "pct_change", header[len(header)-1])

	first := strings.Split(lines[1], ",")
	assert.Equal(t, "VNM", first[0])
	assert.Equal(t, "2024-06-03", first[1])
	assert.Equal(t, "15:00:00", first[2])
	assert.Equal(t, "66.5", first[indexOf(header, "close")])
	assert.Equal(t, "1234500", first[indexOf(header, "nm_volume")])

	second := strings.Split(lines[2], ",")
	assert.Equal(t, "VCB", second[0])
	assert.Equal(t, "", second[2])
	assert.Equal(t, "", second[indexOf(header, "close")])
}

func TestExportPricesParquet(t *testing.T) {
	dir := t.TempDir()

	path, err := ExportPrices(dir, "stock_price", FormatParquet, sampleRecords())
	require.NoError(t, err)

	rows, err := parquet.ReadFile[PriceRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "VNM", rows[0].Code)
	assert.True(t, rows[0].Date.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, rows[0].Close)
	assert.Equal(t, 66.5, *rows[0].Close)
	assert.Nil(t, rows[0].Open)
	assert.Nil(t, rows[1].Time)
}

func TestExportPricesUnknownFormat(t *testing.T) {
	_, err := ExportPrices(t.TempDir(), "stock_price", "xlsx", sampleRecords())
	assert.Error(t, err)
}

func TestCheckOutputDirRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0644))
	assert.Error(t, CheckOutputDir(f))
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
