package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"salesdash/internal/core"
	"salesdash/internal/metrics"
)

// SaleStore is the local ledger the service writes to first.
type SaleStore interface {
	AddSale(ctx context.Context, r core.SalesRecord) (core.SalesRecord, error)
	GetSale(ctx context.Context, id int64) (core.SalesRecord, error)
	SoftDeleteSale(ctx context.Context, id int64) error
	Close() error
}

// Publisher announces ledger changes to the worker.
type Publisher interface {
	PublishSaleSync(ctx context.Context, id, version int64, year int) error
	PublishSaleDelete(ctx context.Context, id int64, year, month int, category string) error
	Close() error
}

// SalesService orchestrates sale writes across SQLite and AMQP.
type SalesService struct {
	store     SaleStore
	publisher Publisher
	metrics   *metrics.Collectors
}

// NewSalesService wires the store and an optional publisher (nil disables messaging).
func NewSalesService(store SaleStore, publisher Publisher, m *metrics.Collectors) *SalesService {
	return &SalesService{
		store:     store,
		publisher: publisher,
		metrics:   m,
	}
}

// CreateSale saves a sale locally and publishes a sync message.
func (s *SalesService) CreateSale(ctx context.Context, r core.SalesRecord) (core.SalesRecord, error) {
	saved, err := s.store.AddSale(ctx, r)
	if err != nil {
		return core.SalesRecord{}, fmt.Errorf("save sale: %w", err)
	}
	s.metrics.SaleAdded()

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "id", saved.ID)
		return saved, nil
	}
	// Version 1 for a new sale.
	if err := s.publisher.PublishSaleSync(ctx, saved.ID, 1, saved.Year); err != nil {
		s.metrics.PublishError()
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", saved.ID, "error", err)
	}
	return saved, nil
}

// DeleteSale soft deletes a sale locally and publishes a delete message.
// It returns the deleted record.
func (s *SalesService) DeleteSale(ctx context.Context, id int64) (core.SalesRecord, error) {
	rec, err := s.store.GetSale(ctx, id)
	if err != nil {
		return core.SalesRecord{}, err
	}
	if err := s.store.SoftDeleteSale(ctx, id); err != nil {
		return core.SalesRecord{}, fmt.Errorf("soft delete sale: %w", err)
	}
	s.metrics.SaleDeleted()

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message", "id", id)
		return rec, nil
	}
	if err := s.publisher.PublishSaleDelete(ctx, id, rec.Year, rec.Month, rec.Category); err != nil {
		s.metrics.PublishError()
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	return rec, nil
}

// Close closes both storage and AMQP connections.
func (s *SalesService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close sales service: %w", errors.Join(errs...))
	}
	return nil
}
