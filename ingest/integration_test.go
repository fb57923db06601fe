package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jing2uo/finfo2db/database/duckdb"
	"github.com/jing2uo/finfo2db/model"
)

func newDuckStore(t *testing.T) *duckdb.DuckDBDriver {
	t.Helper()
	d := duckdb.NewDriver(model.DBConfig{Type: model.DBTypeDuckDB, BatchSize: 2})
	require.NoError(t, d.Connect(context.Background()))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func priced(code, date string, px float64) model.PriceRecord {
	r := rec(code, date)
	r.Floor = null.StringFrom("HOSE")
	r.Type = null.StringFrom("STOCK")
	r.Close = null.FloatFrom(px)
	r.Time = null.StringFrom("15:00:00")
	return r
}

func TestSyncAgainstDuckDBIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newDuckStore(t)
	fetcher := &staticFetcher{records: []model.PriceRecord{
		priced("VNM", "2024-05-30", 66.1),
		priced("VCB", "2024-05-30", 90.2),
		priced("VNM", "2024-05-31", 66.5),
	}}
	orch := NewOrchestrator(fetcher, store, nil)

	first, err := orch.Run(ctx, defaultOptions())
	require.NoError(t, err)
	assert.False(t, first.Watermark.Valid)
	assert.Equal(t, 3, first.Accepted)

	second, err := orch.Run(ctx, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, day("2024-05-31"), second.Watermark.Date)
	assert.Zero(t, second.Accepted)
	assert.Zero(t, second.Written)

	n, err := store.CountRows(ctx, model.TablePrices.TableName)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestSyncAgainstDuckDBWatermarkAdvances(t *testing.T) {
	ctx := context.Background()
	store := newDuckStore(t)

	fetcher := &staticFetcher{records: []model.PriceRecord{priced("VNM", "2024-06-01", 67)}}
	orch := NewOrchestrator(fetcher, store, nil)
	_, err := orch.Run(ctx, defaultOptions())
	require.NoError(t, err)

	// 上游返回的区间与已存数据重叠
	fetcher.records = []model.PriceRecord{
		priced("VNM", "2024-05-30", 65),
		priced("VNM", "2024-06-01", 99),
		priced("VNM", "2024-06-02", 68),
	}
	out, err := orch.Run(ctx, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", out.Watermark.String())
	assert.Equal(t, []string{"VNM@2024-06-02"}, dates(out.Records))

	latest, err := store.GetLatestDate(ctx, model.TablePrices.TableName, "date")
	require.NoError(t, err)
	assert.Equal(t, day("2024-06-02"), latest.UTC())

	rows, err := store.QueryPrices(ctx, "VNM", nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// 已存在的 06-01 不会被覆盖
	assert.Equal(t, 67.0, rows[0].Close.Float64)
	assert.Equal(t, "15:00:00", rows[1].Time.String)
}

func TestSyncAgainstDuckDBConcurrentRuns(t *testing.T) {
	ctx := context.Background()
	store := newDuckStore(t)
	require.NoError(t, store.InitSchema(ctx))

	records := []model.PriceRecord{
		priced("VNM", "2024-06-03", 68),
		priced("VCB", "2024-06-03", 91),
		priced("HPG", "2024-06-03", 28),
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			orch := NewOrchestrator(&staticFetcher{records: records}, store, nil)
			_, errs[i] = orch.Run(ctx, defaultOptions())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.GreaterOrEqual(t, succeeded, 1)

	n, err := store.CountRows(ctx, model.TablePrices.TableName)
	require.NoError(t, err)
	assert.Equal(t, int64(len(records)), n)
}
