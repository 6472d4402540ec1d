package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/sources"

	_ "modernc.org/sqlite"
)

var (
	_ sources.SalesLister  = (*SQLiteRepository)(nil)
	_ sources.SeriesReader = (*SQLiteRepository)(nil)
	_ sources.Pinger       = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// PendingSyncSale identifies a sale not yet mirrored to the spreadsheet.
type PendingSyncSale struct {
	ID        int64
	Version   int64
	Year      int
	CreatedAt time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AddSale inserts the record with sync status pending.
func (r *SQLiteRepository) AddSale(ctx context.Context, rec core.SalesRecord) (core.SalesRecord, error) {
	if err := rec.Validate(); err != nil {
		return core.SalesRecord{}, err
	}
	id, err := r.queries.CreateSale(ctx, CreateSaleParams{
		Year:     int64(rec.Year),
		Month:    int64(rec.Month),
		Product:  rec.Product,
		Category: rec.Category,
		Amount:   rec.Amount,
	})
	if err != nil {
		return core.SalesRecord{}, fmt.Errorf("create sale: %w", err)
	}

	saved, err := r.GetSale(ctx, id)
	if err != nil {
		return core.SalesRecord{}, err
	}

	slog.InfoContext(ctx, "Sale saved to SQLite",
		"id", saved.ID,
		"product", saved.Product,
		"category", saved.Category,
		"amount", saved.Amount,
		"year", saved.Year,
		"month", saved.Month)

	return saved, nil
}

// GetSale returns a live sale, core.ErrNotFound when absent or deleted.
func (r *SQLiteRepository) GetSale(ctx context.Context, id int64) (core.SalesRecord, error) {
	s, err := r.queries.GetSale(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SalesRecord{}, fmt.Errorf("sale %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.SalesRecord{}, fmt.Errorf("get sale %d: %w", id, err)
	}
	return toRecord(s), nil
}

func (r *SQLiteRepository) ListSales(ctx context.Context, year int) ([]core.SalesRecord, error) {
	rows, err := r.queries.ListSales(ctx, int64(year))
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	out := make([]core.SalesRecord, len(rows))
	for i, s := range rows {
		out[i] = toRecord(s)
	}
	return out, nil
}

// SoftDeleteSale marks a sale deleted, core.ErrNotFound when there is nothing to delete.
func (r *SQLiteRepository) SoftDeleteSale(ctx context.Context, id int64) error {
	n, err := r.queries.SoftDeleteSale(ctx, id)
	if err != nil {
		return fmt.Errorf("soft delete sale: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sale %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Sale soft deleted", "id", id)
	return nil
}

// MonthlySeries aggregates in SQL; labels and ordering follow core.MonthlySeries.
func (r *SQLiteRepository) MonthlySeries(ctx context.Context, q core.SeriesQuery) ([]core.SalesObservation, error) {
	rows, err := r.queries.MonthlyTotals(ctx, MonthlyTotalsParams{
		Year:     int64(q.Year),
		Category: q.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	out := make([]core.SalesObservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.SalesObservation{
			Period: core.MonthLabel(int(row.Month)),
			Amount: row.Total,
		})
	}
	return out, nil
}

func (r *SQLiteRepository) Categories(ctx context.Context, year int) ([]string, error) {
	cats, err := r.queries.ListCategories(ctx, int64(year))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// GetPendingSyncSales returns sales that still need to reach Google Sheets.
func (r *SQLiteRepository) GetPendingSyncSales(ctx context.Context, limit int) ([]PendingSyncSale, error) {
	rows, err := r.queries.GetPendingSyncSales(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync sales: %w", err)
	}

	out := make([]PendingSyncSale, len(rows))
	for i, s := range rows {
		out[i] = PendingSyncSale{
			ID:        s.ID,
			Version:   s.Version,
			Year:      int(s.Year),
			CreatedAt: s.CreatedAt,
		}
	}
	return out, nil
}

// MarkSynced marks a sale as successfully synced
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkSaleSynced(ctx, id); err != nil {
		return fmt.Errorf("mark sale synced: %w", err)
	}
	slog.InfoContext(ctx, "Sale marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a sale as having sync errors
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkSaleSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark sale sync error: %w", err)
	}
	slog.WarnContext(ctx, "Sale marked with sync error", "id", id)
	return nil
}

func toRecord(s Sale) core.SalesRecord {
	return core.SalesRecord{
		ID:        s.ID,
		Year:      int(s.Year),
		Month:     int(s.Month),
		Product:   s.Product,
		Category:  s.Category,
		Amount:    s.Amount,
		CreatedAt: s.CreatedAt,
	}
}
