package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"salesdash/internal/anomaly"
	"salesdash/internal/cache"
	"salesdash/internal/core"
	"salesdash/internal/metrics"
	"salesdash/internal/sources"
)

const (
	DefaultReadTimeout     = 7 * time.Second
	DefaultSeriesCacheTTL  = time.Minute
	DefaultMaxSeriesLength = 50000
	defaultSeriesCacheSize = 256
	maxCategoryWorkers     = 4
)

// AnomalyService reads monthly series from the ledger and scores them.
type AnomalyService struct {
	reader      sources.SeriesReader
	detector    anomaly.Detector
	cache       cache.Cache[[]core.SalesObservation]
	reads       singleflight.Group
	metrics     *metrics.Collectors
	maxLen      int
	readTimeout time.Duration
	source      string
}

type AnomalyOption func(*AnomalyService)

func WithSeriesCache(c cache.Cache[[]core.SalesObservation]) AnomalyOption {
	return func(s *AnomalyService) { s.cache = c }
}

func WithMetrics(m *metrics.Collectors) AnomalyOption {
	return func(s *AnomalyService) { s.metrics = m }
}

func WithMaxSeriesLength(n int) AnomalyOption {
	return func(s *AnomalyService) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

func WithReadTimeout(d time.Duration) AnomalyOption {
	return func(s *AnomalyService) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// WithSourceName sets the name reported in UpstreamUnavailableError.
func WithSourceName(name string) AnomalyOption {
	return func(s *AnomalyService) { s.source = name }
}

func NewAnomalyService(reader sources.SeriesReader, detector anomaly.Detector, opts ...AnomalyOption) *AnomalyService {
	s := &AnomalyService{
		reader:      reader,
		detector:    detector,
		cache:       cache.NewLRUCache[[]core.SalesObservation](defaultSeriesCacheSize, DefaultSeriesCacheTTL),
		maxLen:      DefaultMaxSeriesLength,
		readTimeout: DefaultReadTimeout,
		source:      "sales ledger",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold is the configured default threshold.
func (s *AnomalyService) Threshold() float64 { return s.detector.Threshold }

// DetectForQuery scores the monthly series selected by q. A threshold of 0
// uses the configured default.
func (s *AnomalyService) DetectForQuery(ctx context.Context, q core.SeriesQuery, threshold float64) (core.AnomalySeries, error) {
	obs, err := s.series(ctx, q)
	if err != nil {
		return core.AnomalySeries{}, err
	}
	return s.detect(ctx, obs, threshold)
}

// DetectSeries scores a caller-supplied series.
func (s *AnomalyService) DetectSeries(ctx context.Context, obs []core.SalesObservation, threshold float64) (core.AnomalySeries, error) {
	return s.detect(ctx, obs, threshold)
}

// DetectByCategory scores one series per category of year. When categories is
// empty the ledger's categories are used. The first failure cancels the rest.
func (s *AnomalyService) DetectByCategory(ctx context.Context, year int, categories []string, threshold float64) (map[string]core.AnomalySeries, error) {
	if len(categories) == 0 {
		var err error
		categories, err = s.categories(ctx, year)
		if err != nil {
			return nil, err
		}
	}

	var (
		mu  sync.Mutex
		out = make(map[string]core.AnomalySeries, len(categories))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxCategoryWorkers)
	for _, category := range categories {
		g.Go(func() error {
			res, err := s.DetectForQuery(gctx, core.SeriesQuery{Year: year, Category: category}, threshold)
			if err != nil {
				return fmt.Errorf("category %q: %w", category, err)
			}
			mu.Lock()
			out[category] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Categories lists the ledger's categories for year.
func (s *AnomalyService) Categories(ctx context.Context, year int) ([]string, error) {
	return s.categories(ctx, year)
}

// Invalidate drops cached series of year and of the all-years query.
func (s *AnomalyService) Invalidate(year int) {
	n := s.cache.DeletePrefix(fmt.Sprintf("%d|", year))
	if year != 0 {
		n += s.cache.DeletePrefix("0|")
	}
	slog.Debug("Series cache invalidated", "year", year, "entries", n)
}

// InvalidateAll drops every cached series.
func (s *AnomalyService) InvalidateAll() {
	n := s.cache.DeletePrefix("")
	slog.Debug("Series cache cleared", "entries", n)
}

func (s *AnomalyService) series(ctx context.Context, q core.SeriesQuery) ([]core.SalesObservation, error) {
	key := seriesKey(q)
	if obs, ok := s.cache.Get(key); ok {
		s.metrics.CacheHit()
		return obs, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Concurrent misses for one key share a single ledger read. The read is
	// detached from the first caller so its cancellation cannot fail the others.
	ch := s.reads.DoChan(key, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.readTimeout)
		defer cancel()
		obs, err := s.reader.MonthlySeries(rctx, q)
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, obs)
		return obs, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, s.upstream(ctx, "monthly series", res.Err)
		}
		return res.Val.([]core.SalesObservation), nil
	}
}

func (s *AnomalyService) categories(ctx context.Context, year int) ([]string, error) {
	rctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()
	cats, err := s.reader.Categories(rctx, year)
	if err != nil {
		return nil, s.upstream(ctx, "categories", err)
	}
	sort.Strings(cats)
	return cats, nil
}

func (s *AnomalyService) upstream(ctx context.Context, op string, err error) error {
	// A caller that gave up is not an outage.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var up *core.UpstreamUnavailableError
	if errors.As(err, &up) {
		return err
	}
	s.metrics.UpstreamError()
	slog.ErrorContext(ctx, "Sales ledger read failed", "operation", op, "source", s.source, "error", err)
	return &core.UpstreamUnavailableError{Source: s.source, Err: err}
}

func (s *AnomalyService) detect(ctx context.Context, obs []core.SalesObservation, threshold float64) (core.AnomalySeries, error) {
	if len(obs) > s.maxLen {
		return core.AnomalySeries{}, fmt.Errorf("%w: %d observations, limit %d", core.ErrSeriesTooLong, len(obs), s.maxLen)
	}
	d := s.detector
	if threshold != 0 {
		d = d.WithThreshold(threshold)
	}

	start := time.Now()
	res, err := d.Detect(obs)
	if err != nil {
		s.metrics.InvalidInput()
		return core.AnomalySeries{}, err
	}
	anomalies := res.AnomalyCount()
	s.metrics.ObserveDetection(res.Len(), anomalies, time.Since(start))
	slog.DebugContext(ctx, "Series scored",
		"series_len", res.Len(),
		"anomalies", anomalies,
		"threshold", res.Threshold)
	return res, nil
}

func seriesKey(q core.SeriesQuery) string {
	return fmt.Sprintf("%d|%s", q.Year, strings.ToLower(strings.TrimSpace(q.Category)))
}
