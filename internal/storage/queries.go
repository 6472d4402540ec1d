package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

const saleColumns = `id, year, month, product, category, amount, version, sync_status, synced_at, created_at, deleted_at`

func scanSale(row interface{ Scan(...interface{}) error }) (Sale, error) {
	var i Sale
	err := row.Scan(
		&i.ID,
		&i.Year,
		&i.Month,
		&i.Product,
		&i.Category,
		&i.Amount,
		&i.Version,
		&i.SyncStatus,
		&i.SyncedAt,
		&i.CreatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const createSale = `
INSERT INTO sales (year, month, product, category, amount)
VALUES (?, ?, ?, ?, ?)
`

// CreateSale inserts a sale and returns its row ID.
func (q *Queries) CreateSale(ctx context.Context, arg CreateSaleParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createSale,
		arg.Year,
		arg.Month,
		arg.Product,
		arg.Category,
		arg.Amount,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getSale = `
SELECT ` + saleColumns + ` FROM sales
WHERE id = ? AND deleted_at IS NULL
`

func (q *Queries) GetSale(ctx context.Context, id int64) (Sale, error) {
	return scanSale(q.db.QueryRowContext(ctx, getSale, id))
}

const listSales = `
SELECT ` + saleColumns + ` FROM sales
WHERE deleted_at IS NULL AND (? = 0 OR year = ?)
ORDER BY year, month, id
`

// ListSales returns live sales of year, all years when year is 0.
func (q *Queries) ListSales(ctx context.Context, year int64) ([]Sale, error) {
	rows, err := q.db.QueryContext(ctx, listSales, year, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Sale
	for rows.Next() {
		i, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const monthlyTotals = `
SELECT month, SUM(amount) AS total FROM sales
WHERE deleted_at IS NULL
  AND (? = 0 OR year = ?)
  AND (? = '' OR LOWER(TRIM(category)) = LOWER(TRIM(?)))
GROUP BY month
ORDER BY month
`

func (q *Queries) MonthlyTotals(ctx context.Context, arg MonthlyTotalsParams) ([]MonthlyTotalsRow, error) {
	rows, err := q.db.QueryContext(ctx, monthlyTotals, arg.Year, arg.Year, arg.Category, arg.Category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlyTotalsRow
	for rows.Next() {
		var i MonthlyTotalsRow
		if err := rows.Scan(&i.Month, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCategories = `
SELECT MIN(TRIM(category)) AS category FROM sales
WHERE deleted_at IS NULL AND (? = 0 OR year = ?) AND TRIM(category) != ''
GROUP BY LOWER(TRIM(category))
ORDER BY category
`

func (q *Queries) ListCategories(ctx context.Context, year int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, year, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		items = append(items, category)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const softDeleteSale = `
UPDATE sales SET deleted_at = CURRENT_TIMESTAMP, version = version + 1
WHERE id = ? AND deleted_at IS NULL
`

// SoftDeleteSale returns the number of rows it marked deleted.
func (q *Queries) SoftDeleteSale(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteSale, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getPendingSyncSales = `
SELECT id, version, year, created_at FROM sales
WHERE sync_status = 'pending' AND deleted_at IS NULL
ORDER BY created_at, id
LIMIT ?
`

func (q *Queries) GetPendingSyncSales(ctx context.Context, limit int64) ([]GetPendingSyncSalesRow, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncSales, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetPendingSyncSalesRow
	for rows.Next() {
		var i GetPendingSyncSalesRow
		if err := rows.Scan(&i.ID, &i.Version, &i.Year, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markSaleSynced = `
UPDATE sales SET sync_status = 'synced', synced_at = CURRENT_TIMESTAMP
WHERE id = ?
`

func (q *Queries) MarkSaleSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markSaleSynced, id)
	return err
}

const markSaleSyncError = `
UPDATE sales SET sync_status = 'error'
WHERE id = ?
`

func (q *Queries) MarkSaleSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markSaleSyncError, id)
	return err
}
