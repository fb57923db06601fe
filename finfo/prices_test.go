package finfo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jing2uo/finfo2db/model"
)

var (
	from = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
)

func row(code, date string, px float64) string {
	return fmt.Sprintf(`{"code":%q,"date":%q,"time":"15:00:00","floor":"HOSE","type":"STOCK",`+
		`"basicPrice":69.5,"open":70,"high":71,"low":69,"close":%v,"nmVolume":1200300,"pctChange":null}`,
		code, date, px)
}

func TestPricesURL(t *testing.T) {
	c := NewClient("https://example.test/", WithPageSize(9990))
	raw := c.PricesURL([]string{"VNM", "VCB"}, from, to, 1)

	req, err := http.NewRequest(http.MethodGet, raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "/v4/stock_prices", req.URL.Path)

	q := req.URL.Query()
	assert.Equal(t, "date", q.Get("sort"))
	assert.Equal(t, "code:VNM,VCB~date:gte:2024-06-01~date:lte:2024-06-03", q.Get("q"))
	assert.Equal(t, "9990", q.Get("size"))
	assert.Equal(t, "1", q.Get("page"))
}

func TestFetchPrices(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":[%s,%s],"currentPage":1,"size":1000,"totalElements":2,"totalPages":1}`,
			row("VNM", "2024-06-03", 70.5), row("VCB", "2024-06-03", 91))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithUserAgent("finfo-test"))
	recs, err := c.FetchPrices(context.Background(), []string{"VNM", "VCB"}, from, to)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "finfo-test", gotUA)
	assert.Equal(t, "VNM", recs[0].Code)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), recs[0].Date)
	assert.Equal(t, "15:00:00", recs[0].Time.String)
	assert.Equal(t, "HOSE", recs[0].Floor.String)
	assert.Equal(t, 70.5, recs[0].Close.Float64)
	assert.Equal(t, 1200300.0, recs[0].NmVolume.Float64)
	assert.False(t, recs[0].PctChange.Valid)
	assert.False(t, recs[0].AdClose.Valid)
	assert.Equal(t, "VCB", recs[1].Code)
}

func TestFetchPricesPagination(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			fmt.Fprintf(w, `{"data":[%s,%s]}`, row("VNM", "2024-06-01", 1), row("VNM", "2024-06-02", 2))
		case 2:
			fmt.Fprintf(w, `{"data":[%s]}`, row("VNM", "2024-06-03", 3))
		default:
			t.Errorf("unexpected page %d", page)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithPageSize(2))
	recs, err := c.FetchPrices(context.Background(), []string{"VNM"}, from, to)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 3.0, recs[2].Close.Float64)
}

func TestFetchPricesStopsAtTotalPages(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprintf(w, `{"data":[%s],"totalPages":1}`, row("VNM", "2024-06-01", 1))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithPageSize(1))
	recs, err := c.FetchPrices(context.Background(), []string{"VNM"}, from, to)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchPricesMaxPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":[%s]}`, row("VNM", "2024-06-01", 1))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithPageSize(1), WithMaxPages(3))
	_, err := c.FetchPrices(context.Background(), []string{"VNM"}, from, to)

	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Error(), "page limit 3")
}

func TestFetchPricesEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[],"totalPages":0}`)
	}))
	defer srv.Close()

	recs, err := NewClient(srv.URL).FetchPrices(context.Background(), []string{"VNM"}, from, to)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestFetchPricesParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"not json", `<html>blocked</html>`, ""},
		{"missing data", `{"error":"quota"}`, "data"},
		{"data not array", `{"data":{"code":"VNM"}}`, "data"},
		{"bad date", `{"data":[{"code":"VNM","date":"03/06/2024"}]}`, "date"},
		{"wrong type", `{"data":[{"code":"VNM","date":"2024-06-03","close":"n/a"}]}`, "data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).FetchPrices(context.Background(), []string{"VNM"}, from, to)
			var pe *model.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestFetchPricesHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 500), http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchPrices(context.Background(), []string{"VNM"}, from, to)
	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)
	assert.Less(t, len(fe.Err.Error()), 210)
}

func TestFetchPricesTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.FetchPrices(context.Background(), []string{"VNM"}, from, to)

	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Zero(t, fe.StatusCode)
}

func TestFetchPricesArguments(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")

	_, err := c.FetchPrices(context.Background(), nil, from, to)
	assert.Error(t, err)

	_, err = c.FetchPrices(context.Background(), []string{"VNM"}, to, from)
	assert.Error(t, err)
	assert.False(t, errors.As(err, new(*model.FetchError)))
}
