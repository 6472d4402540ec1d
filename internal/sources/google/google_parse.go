package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"salesdash/internal/core"
)

// Column indexes of the sales tab.
const (
	colID = iota
	colYear
	colMonth
	colProduct
	colCategory
	colAmount
	colCreatedAt
)

func rowValues(r core.SalesRecord) []any {
	created := ""
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []any{r.ID, r.Year, r.Month, r.Product, r.Category, r.Amount, created}
}

// parseSales converts a values matrix into records, skipping the header and
// any row that does not describe a valid sale. Year 0 keeps every year.
func parseSales(values [][]any, year int) []core.SalesRecord {
	var out []core.SalesRecord
	for _, row := range values {
		r, ok := parseSaleRow(row)
		if !ok {
			continue
		}
		if year != 0 && r.Year != year {
			continue
		}
		out = append(out, r)
	}
	return out
}

func parseSaleRow(row []any) (core.SalesRecord, bool) {
	if len(row) <= colAmount {
		return core.SalesRecord{}, false
	}
	year, ok := cellInt(row[colYear])
	if !ok {
		return core.SalesRecord{}, false
	}
	month, err := core.ParseMonth(cellString(row[colMonth]))
	if err != nil {
		return core.SalesRecord{}, false
	}
	amount, ok := cellAmount(row[colAmount])
	if !ok {
		return core.SalesRecord{}, false
	}
	id, _ := cellInt(row[colID])

	r := core.SalesRecord{
		ID:       int64(id),
		Year:     year,
		Month:    month,
		Product:  cellString(row[colProduct]),
		Category: cellString(row[colCategory]),
		Amount:   amount,
	}
	if len(row) > colCreatedAt {
		if t, err := time.Parse(time.RFC3339, cellString(row[colCreatedAt])); err == nil {
			r.CreatedAt = t
		}
	}
	if r.Validate() != nil {
		return core.SalesRecord{}, false
	}
	return r, true
}

func cellString(v any) string {
	return strings.TrimSpace(fmt.Sprint(v))
}

// cellInt accepts numbers (UNFORMATTED_VALUE returns float64) and numeric text.
func cellInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case int:
		return x, true
	case int64:
		return int(x), true
	default:
		n, err := strconv.Atoi(cellString(v))
		return n, err == nil
	}
}

func cellAmount(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, core.ValidateAmount(x) == nil
	case int:
		return float64(x), x >= 0
	case int64:
		return float64(x), x >= 0
	default:
		f, err := core.ParseAmount(cellString(v))
		return f, err == nil
	}
}
