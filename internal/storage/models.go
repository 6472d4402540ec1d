package storage

import (
	"database/sql"
	"time"
)

const (
	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
	SyncStatusError   = "error"
)

type Sale struct {
	ID         int64
	Year       int64
	Month      int64
	Product    string
	Category   string
	Amount     float64
	Version    int64
	SyncStatus string
	SyncedAt   sql.NullTime
	CreatedAt  time.Time
	DeletedAt  sql.NullTime
}

type CreateSaleParams struct {
	Year     int64
	Month    int64
	Product  string
	Category string
	Amount   float64
}

type MonthlyTotalsParams struct {
	Year     int64
	Category string
}

type MonthlyTotalsRow struct {
	Month int64
	Total float64
}

type GetPendingSyncSalesRow struct {
	ID        int64
	Version   int64
	Year      int64
	CreatedAt time.Time
}
