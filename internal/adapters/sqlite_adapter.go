package adapters

import (
	"context"

	"salesdash/internal/core"
	"salesdash/internal/services"
	"salesdash/internal/sources"
	"salesdash/internal/storage"
)

var (
	_ sources.SalesWriter  = (*SQLiteAdapter)(nil)
	_ sources.SalesLister  = (*SQLiteAdapter)(nil)
	_ sources.SalesDeleter = (*SQLiteAdapter)(nil)
	_ sources.SeriesReader = (*SQLiteAdapter)(nil)
	_ sources.Pinger       = (*SQLiteAdapter)(nil)
)

// SQLiteAdapter exposes SQLiteRepository and SalesService through the source
// ports so the HTTP handlers work unchanged on the SQLite + AMQP backend.
// Writes go through the service, which publishes sync messages; reads hit SQLite.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.SalesService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.SalesService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

func (a *SQLiteAdapter) AddSale(ctx context.Context, r core.SalesRecord) (core.SalesRecord, error) {
	return a.service.CreateSale(ctx, r)
}

func (a *SQLiteAdapter) DeleteSale(ctx context.Context, id int64) error {
	_, err := a.service.DeleteSale(ctx, id)
	return err
}

func (a *SQLiteAdapter) ListSales(ctx context.Context, year int) ([]core.SalesRecord, error) {
	return a.storage.ListSales(ctx, year)
}

func (a *SQLiteAdapter) MonthlySeries(ctx context.Context, q core.SeriesQuery) ([]core.SalesObservation, error) {
	return a.storage.MonthlySeries(ctx, q)
}

func (a *SQLiteAdapter) Categories(ctx context.Context, year int) ([]string, error) {
	return a.storage.Categories(ctx, year)
}

func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}

// Close releases the repository and the AMQP connection.
func (a *SQLiteAdapter) Close() error {
	return a.service.Close()
}
