package finfo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/guregu/null/v6"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/jing2uo/finfo2db/model"
)

const dateLayout = "2006-01-02"

// pricePayload 接口返回的单条记录, 数值字段可能为 null
type pricePayload struct {
	Code         string   `json:"code"`
	Date         string   `json:"date"`
	Time         *string  `json:"time"`
	Floor        *string  `json:"floor"`
	Type         *string  `json:"type"`
	BasicPrice   *float64 `json:"basicPrice"`
	CeilingPrice *float64 `json:"ceilingPrice"`
	FloorPrice   *float64 `json:"floorPrice"`
	Open         *float64 `json:"open"`
	High         *float64 `json:"high"`
	Low          *float64 `json:"low"`
	Close        *float64 `json:"close"`
	Average      *float64 `json:"average"`
	AdOpen       *float64 `json:"adOpen"`
	AdHigh       *float64 `json:"adHigh"`
	AdLow        *float64 `json:"adLow"`
	AdClose      *float64 `json:"adClose"`
	AdAverage    *float64 `json:"adAverage"`
	NmVolume     *float64 `json:"nmVolume"`
	NmValue      *float64 `json:"nmValue"`
	PtVolume     *float64 `json:"ptVolume"`
	PtValue      *float64 `json:"ptValue"`
	Change       *float64 `json:"change"`
	AdChange     *float64 `json:"adChange"`
	PctChange    *float64 `json:"pctChange"`
}

func (p pricePayload) toRecord() (model.PriceRecord, error) {
	date, err := time.Parse(dateLayout, p.Date)
	if err != nil {
		return model.PriceRecord{}, &model.ParseError{Field: "date", Err: err}
	}
	if p.Code == "" {
		return model.PriceRecord{}, &model.ParseError{Field: "code", Err: errors.New("empty code")}
	}

	return model.PriceRecord{
		Code:         p.Code,
		Date:         date,
		Time:         null.StringFromPtr(p.Time),
		Floor:        null.StringFromPtr(p.Floor),
		Type:         null.StringFromPtr(p.Type),
		BasicPrice:   null.FloatFromPtr(p.BasicPrice),
		CeilingPrice: null.FloatFromPtr(p.CeilingPrice),
		FloorPrice:   null.FloatFromPtr(p.FloorPrice),
		Open:         null.FloatFromPtr(p.Open),
		High:         null.FloatFromPtr(p.High),
		Low:          null.FloatFromPtr(p.Low),
		Close:        null.FloatFromPtr(p.Close),
		Average:      null.FloatFromPtr(p.Average),
		AdOpen:       null.FloatFromPtr(p.AdOpen),
		AdHigh:       null.FloatFromPtr(p.AdHigh),
		AdLow:        null.FloatFromPtr(p.AdLow),
		AdClose:      null.FloatFromPtr(p.AdClose),
		AdAverage:    null.FloatFromPtr(p.AdAverage),
		NmVolume:     null.FloatFromPtr(p.NmVolume),
		NmValue:      null.FloatFromPtr(p.NmValue),
		PtVolume:     null.FloatFromPtr(p.PtVolume),
		PtValue:      null.FloatFromPtr(p.PtValue),
		Change:       null.FloatFromPtr(p.Change),
		AdChange:     null.FloatFromPtr(p.AdChange),
		PctChange:    null.FloatFromPtr(p.PctChange),
	}, nil
}

// PricesURL 构造单页查询地址, 日期区间为闭区间 [from, to]
func (c *Client) PricesURL(symbols []string, from, to time.Time, page int) string {
	q := fmt.Sprintf("code:%s~date:gte:%s~date:lte:%s",
		strings.Join(symbols, ","), from.Format(dateLayout), to.Format(dateLayout))

	params := url.Values{}
	params.Set("sort", "date")
	params.Set("q", q)
	params.Set("size", strconv.Itoa(c.pageSize))
	params.Set("page", strconv.Itoa(page))

	return c.baseURL + pricesPath + "?" + params.Encode()
}

// FetchPrices 拉取 symbols 在 [from, to] 内的全部日线, 按接口返回顺序
func (c *Client) FetchPrices(ctx context.Context, symbols []string, from, to time.Time) ([]model.PriceRecord, error) {
	if len(symbols) == 0 {
		return nil, errors.New("at least one symbol is required")
	}
	if to.Before(from) {
		return nil, fmt.Errorf("invalid window: to %s is before from %s", to.Format(dateLayout), from.Format(dateLayout))
	}

	var records []model.PriceRecord
	for page := 1; ; page++ {
		rawURL := c.PricesURL(symbols, from, to, page)

		items, totalPages, err := c.fetchPage(ctx, rawURL)
		if err != nil {
			return nil, err
		}

		for i, item := range items {
			rec, err := item.toRecord()
			if err != nil {
				return nil, fmt.Errorf("page %d item %d: %w", page, i, err)
			}
			records = append(records, rec)
		}

		c.logger.Debug("fetched price page",
			zap.Int("page", page),
			zap.Int("rows", len(items)),
			zap.Int("total_pages", totalPages))

		if len(items) < c.pageSize || (totalPages > 0 && page >= totalPages) {
			break
		}
		if page >= c.maxPages {
			return nil, &model.FetchError{
				URL: rawURL,
				Err: fmt.Errorf("page limit %d reached before the last page", c.maxPages),
			}
		}
	}

	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, rawURL string) ([]pricePayload, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &model.FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &model.FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, 0, &model.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        errors.New(truncate(string(body), 200)),
		}
	}

	return parsePage(body)
}

func parsePage(body []byte) ([]pricePayload, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, &model.ParseError{Err: errors.New("response is not valid JSON")}
	}

	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return nil, 0, &model.ParseError{Field: "data", Err: errors.New("missing data array")}
	}

	var items []pricePayload
	if err := json.Unmarshal([]byte(data.Raw), &items); err != nil {
		return nil, 0, &model.ParseError{Field: "data", Err: err}
	}

	totalPages := int(gjson.GetBytes(body, "totalPages").Int())
	return items, totalPages, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
