package sources

import (
	"context"

	"salesdash/internal/core"
)

// Ports for outbound adapters.
type (
	SalesWriter interface {
		// AddSale stores r and returns it with ID and CreatedAt assigned.
		AddSale(ctx context.Context, r core.SalesRecord) (core.SalesRecord, error)
	}

	SalesLister interface {
		// ListSales returns the records of year (all years when 0), oldest first.
		ListSales(ctx context.Context, year int) ([]core.SalesRecord, error)
	}

	SalesDeleter interface {
		// DeleteSale removes a record, core.ErrNotFound when id is unknown.
		DeleteSale(ctx context.Context, id int64) error
	}

	// SeriesReader is the upstream collaborator the anomaly service depends on.
	SeriesReader interface {
		// MonthlySeries returns the monthly totals selected by q in calendar order.
		MonthlySeries(ctx context.Context, q core.SeriesQuery) ([]core.SalesObservation, error)

		// Categories returns the distinct categories recorded in year.
		Categories(ctx context.Context, year int) ([]string, error)
	}

	// Pinger reports whether a backend is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)
