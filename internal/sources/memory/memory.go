package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/sources"
)

var (
	_ sources.SalesWriter  = (*Store)(nil)
	_ sources.SalesLister  = (*Store)(nil)
	_ sources.SalesDeleter = (*Store)(nil)
	_ sources.SeriesReader = (*Store)(nil)
	_ sources.Pinger       = (*Store)(nil)
)

// Store is an in-process ledger used for development and tests.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.SalesRecord
}

func New(records ...core.SalesRecord) *Store {
	s := &Store{}
	for _, r := range records {
		_, _ = s.add(r)
	}
	return s
}

// NewFromFiles seeds the store from base/seed_sales.csv when present.
// Rows are "year,month,product,category,amount"; blank lines, comments and
// rows that do not parse are skipped.
func NewFromFiles(base string) *Store {
	var records []core.SalesRecord
	for _, line := range readLines(filepath.Join(base, "seed_sales.csv")) {
		if r, ok := parseSeedLine(line); ok {
			records = append(records, r)
		}
	}
	return New(records...)
}

// AddSale stores the record and assigns it the next ID.
func (s *Store) AddSale(_ context.Context, r core.SalesRecord) (core.SalesRecord, error) {
	return s.add(r)
}

func (s *Store) add(r core.SalesRecord) (core.SalesRecord, error) {
	if err := r.Validate(); err != nil {
		return core.SalesRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.items = append(s.items, r)
	return r, nil
}

func (s *Store) ListSales(_ context.Context, year int) ([]core.SalesRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SalesRecord, 0, len(s.items))
	for _, r := range s.items {
		if year == 0 || r.Year == year {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) DeleteSale(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.items {
		if r.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) MonthlySeries(_ context.Context, q core.SeriesQuery) ([]core.SalesObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.MonthlySeries(s.items, q), nil
}

func (s *Store) Categories(_ context.Context, year int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Categories(s.items, year), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func parseSeedLine(line string) (core.SalesRecord, bool) {
	cols := strings.Split(line, ",")
	if len(cols) != 5 {
		return core.SalesRecord{}, false
	}
	year, err := strconv.Atoi(strings.TrimSpace(cols[0]))
	if err != nil {
		return core.SalesRecord{}, false
	}
	month, err := core.ParseMonth(cols[1])
	if err != nil {
		return core.SalesRecord{}, false
	}
	amount, err := core.ParseAmount(cols[4])
	if err != nil {
		return core.SalesRecord{}, false
	}
	r := core.SalesRecord{
		Year:     year,
		Month:    month,
		Product:  strings.TrimSpace(cols[2]),
		Category: strings.TrimSpace(cols[3]),
		Amount:   amount,
	}
	return r, r.Validate() == nil
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
