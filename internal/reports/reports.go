// Package reports stores the anomaly reports computed by the worker so the
// dashboard can fetch the latest one without rescoring.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"salesdash/internal/anomaly"
	"salesdash/internal/core"
)

const (
	keyPrefix    = "reports:anomalies"
	// HistoryLimit is how many past reports are kept per year.
	HistoryLimit = 24
)

// Report is a scored year plus one scored series per category.
type Report struct {
	Year        int                      `json:"year"`
	Threshold   float64                  `json:"threshold"`
	GeneratedAt time.Time                `json:"generated_at"`
	Data        []anomaly.Row            `json:"data"`
	Summary     anomaly.Summary          `json:"summary"`
	Categories  map[string][]anomaly.Row `json:"categories,omitempty"`
}

// NewReport builds a report from the whole-year series and the per-category results.
func NewReport(year int, overall core.AnomalySeries, byCategory map[string]core.AnomalySeries, now time.Time) Report {
	r := Report{
		Year:        year,
		Threshold:   overall.Threshold,
		GeneratedAt: now.UTC(),
		Data:        anomaly.Rows(overall),
		Summary:     anomaly.Summarize(overall),
	}
	if len(byCategory) > 0 {
		r.Categories = make(map[string][]anomaly.Row, len(byCategory))
		for name, s := range byCategory {
			r.Categories[name] = anomaly.Rows(s)
		}
	}
	return r
}

// Store persists reports.
type Store interface {
	Save(ctx context.Context, r Report) error
	Latest(ctx context.Context, year int) (Report, error)
	History(ctx context.Context, year, n int) ([]Report, error)
	Ping(ctx context.Context) error
	Close() error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects using a redis:// URL. Reports expire after ttl (0 keeps them).
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStoreFromClient(redis.NewClient(opts), ttl), nil
}

func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Save writes the report as the year's latest and prepends it to the year's history.
func (s *RedisStore) Save(ctx context.Context, r Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, latestKey(r.Year), payload, s.ttl)
	pipe.LPush(ctx, historyKey(r.Year), payload)
	pipe.LTrim(ctx, historyKey(r.Year), 0, HistoryLimit-1)
	if s.ttl > 0 {
		pipe.Expire(ctx, historyKey(r.Year), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis exec: %w", err)
	}
	return nil
}

// Latest returns the newest report of year, core.ErrNotFound when none is stored.
func (s *RedisStore) Latest(ctx context.Context, year int) (Report, error) {
	data, err := s.client.Get(ctx, latestKey(year)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Report{}, fmt.Errorf("report for %d: %w", year, core.ErrNotFound)
	}
	if err != nil {
		return Report{}, fmt.Errorf("redis get: %w", err)
	}
	return decode(data)
}

// History returns up to n past reports of year, newest first.
func (s *RedisStore) History(ctx context.Context, year, n int) ([]Report, error) {
	if n <= 0 || n > HistoryLimit {
		n = HistoryLimit
	}
	items, err := s.client.LRange(ctx, historyKey(year), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	out := make([]Report, 0, len(items))
	for _, item := range items {
		r, err := decode([]byte(item))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func decode(data []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return r, nil
}

func latestKey(year int) string {
	return fmt.Sprintf("%s:%d", keyPrefix, year)
}

func historyKey(year int) string {
	return fmt.Sprintf("%s:%d:history", keyPrefix, year)
}
