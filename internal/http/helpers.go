package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"salesdash/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// saleView is the record shape the dashboard table renders.
type saleView struct {
	ID        int64   `json:"id"`
	Year      int     `json:"year"`
	Month     string  `json:"month"`
	Product   string  `json:"product"`
	Category  string  `json:"category"`
	Sales     float64 `json:"sales"`
	Timestamp string  `json:"timestamp"`
}

func newSaleView(r core.SalesRecord) saleView {
	v := saleView{
		ID:       r.ID,
		Year:     r.Year,
		Month:    core.MonthLabel(r.Month),
		Product:  r.Product,
		Category: r.Category,
		Sales:    r.Amount,
	}
	if !r.CreatedAt.IsZero() {
		v.Timestamp = r.CreatedAt.UTC().Format(time.RFC3339)
	}
	return v
}

// ledgerError keeps domain errors as they are and reports anything else as
// the ledger being unavailable.
func ledgerError(source string, err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrUnsupported),
		errors.Is(err, core.ErrUpstreamUnavailable),
		errors.Is(err, context.Canceled):
		return err
	}
	return &core.UpstreamUnavailableError{Source: source, Err: err}
}
