package ingest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jing2uo/finfo2db/model"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func rec(code, date string) model.PriceRecord {
	return model.PriceRecord{Code: code, Date: day(date)}
}

func dates(recs []model.PriceRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Code + "@" + r.Date.Format("2006-01-02")
	}
	return out
}

type staticFetcher struct {
	records []model.PriceRecord
	err     error
	calls   int
}

func (f *staticFetcher) FetchPrices(ctx context.Context, symbols []string, from, to time.Time) ([]model.PriceRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

// memStore 内存实现, 记录每个方法的调用次数
type memStore struct {
	mu       sync.Mutex
	created  bool
	rows     map[string]model.PriceRecord
	calls    map[string]int
	failOn   map[string]error
	appended [][]model.PriceRecord
}

func newMemStore() *memStore {
	return &memStore{
		rows:   make(map[string]model.PriceRecord),
		calls:  make(map[string]int),
		failOn: make(map[string]error),
	}
}

func (s *memStore) hit(name string) error {
	s.calls[name]++
	return s.failOn[name]
}

func (s *memStore) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *memStore) seed(recs ...model.PriceRecord) {
	s.created = true
	for _, r := range recs {
		s.rows[r.Code+r.Date.Format("2006-01-02")] = r
	}
}

func (s *memStore) InitSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("InitSchema"); err != nil {
		return err
	}
	s.created = true
	return nil
}

func (s *memStore) TableExists(ctx context.Context, tableName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("TableExists"); err != nil {
		return false, err
	}
	return s.created, nil
}

func (s *memStore) GetLatestDate(ctx context.Context, tableName string, dateCol string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("GetLatestDate"); err != nil {
		return time.Time{}, err
	}
	var latest time.Time
	for _, r := range s.rows {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest, nil
}

func (s *memStore) GetLatestDatesByCode(ctx context.Context) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("GetLatestDatesByCode"); err != nil {
		return nil, err
	}
	out := make(map[string]time.Time)
	for _, r := range s.rows {
		if r.Date.After(out[r.Code]) {
			out[r.Code] = r.Date
		}
	}
	return out, nil
}

func (s *memStore) AppendPrices(ctx context.Context, records []model.PriceRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit("AppendPrices"); err != nil {
		return 0, err
	}
	s.appended = append(s.appended, records)
	written := 0
	for _, r := range records {
		key := r.Code + r.Date.Format("2006-01-02")
		if _, ok := s.rows[key]; ok {
			continue
		}
		s.rows[key] = r
		written++
	}
	return written, nil
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, r := range s.rows {
		out = append(out, r.Code+"@"+r.Date.Format("2006-01-02"))
	}
	sort.Strings(out)
	return out
}
