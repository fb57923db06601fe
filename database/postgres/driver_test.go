package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jing2uo/finfo2db/model"
)

func TestInsertStatement(t *testing.T) {
	stmt := insertStatement(model.TablePrices)
	assert.True(t, strings.HasPrefix(stmt, "INSERT INTO stock_price (code, date, time, floor, type, basic_price"))
	assert.Contains(t, stmt, "$25)")
	assert.NotContains(t, stmt, "$26")
	assert.True(t, strings.HasSuffix(stmt, "ON CONFLICT (code, date) DO NOTHING"))
}

func TestSelectColumns(t *testing.T) {
	cols := selectColumns(model.TablePrices)
	assert.True(t, strings.HasPrefix(cols, "code, date, time::text AS time, floor"))
}

func TestMapType(t *testing.T) {
	d := NewDriver(model.DBConfig{})
	assert.Equal(t, "DOUBLE PRECISION", d.mapType(model.TypeFloat64))
	assert.Equal(t, "DATE", d.mapType(model.TypeDate))
	assert.Equal(t, "TIME", d.mapType(model.TypeTime))
	assert.Equal(t, "TIMESTAMPTZ", d.mapType(model.TypeDateTime))
	assert.Equal(t, model.DefaultBatchSize, d.batchSize)
}

// 设置 FINFO_TEST_POSTGRES_URI 后才会连接真实数据库
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("FINFO_TEST_POSTGRES_URI")
	if dsn == "" {
		t.Skip("FINFO_TEST_POSTGRES_URI not set")
	}
	ctx := context.Background()

	d := NewDriver(model.DBConfig{Type: model.DBTypePostgres, DSN: dsn})
	require.NoError(t, d.Connect(ctx))
	defer d.Close()
	require.NoError(t, d.InitSchema(ctx))

	_, err := d.pool.Exec(ctx, "TRUNCATE stock_price")
	require.NoError(t, err)

	recs := []model.PriceRecord{
		{Code: "VNM", Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Time: null.StringFrom("15:00:00"), Close: null.FloatFrom(69)},
		{Code: "VNM", Date: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), Close: null.FloatFrom(70)},
	}
	n, err := d.AppendPrices(ctx, recs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = d.AppendPrices(ctx, recs)
	require.NoError(t, err)
	assert.Zero(t, n)

	latest, err := d.GetLatestDate(ctx, model.TablePrices.TableName, "date")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), latest)

	got, err := d.QueryPrices(ctx, "VNM", nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "15:00:00", got[0].Time.String)
	assert.False(t, got[1].Time.Valid)
}
