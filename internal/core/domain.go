package core

import (
	"math"
	"strings"
	"time"
)

type (
	// SalesObservation is one period of a sales series.
	SalesObservation struct {
		Period string  // e.g. "Jan"; unique within a series
		Amount float64 // non-negative, finite
	}

	// ScoredObservation is an observation annotated by the detector.
	ScoredObservation struct {
		SalesObservation
		ZScore    float64
		IsAnomaly bool
	}

	// AnomalySeries is the detector output, same length and order as its input.
	AnomalySeries struct {
		Points    []ScoredObservation
		Threshold float64
	}

	// SalesRecord is a single ledger entry as entered through the dashboard.
	SalesRecord struct {
		ID        int64
		Year      int
		Month     int // 1-12
		Product   string
		Category  string
		Amount    float64
		CreatedAt time.Time
	}

	// SeriesQuery selects the ledger slice a monthly series is built from.
	// A zero Year means all years, an empty Category means all categories.
	SeriesQuery struct {
		Year     int
		Category string
	}
)

// Len returns the number of points.
func (s AnomalySeries) Len() int {
	return len(s.Points)
}

// AnomalyCount returns how many points are flagged.
func (s AnomalySeries) AnomalyCount() int {
	n := 0
	for _, p := range s.Points {
		if p.IsAnomaly {
			n++
		}
	}
	return n
}

// MeanAmount returns the arithmetic mean of the amounts, 0 for an empty series.
func (s AnomalySeries) MeanAmount() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range s.Points {
		sum += p.Amount
	}
	return sum / float64(len(s.Points))
}

func (r SalesRecord) Validate() error {
	if r.Month < 1 || r.Month > 12 {
		return ErrInvalidMonth
	}
	if r.Year < 1900 || r.Year > 9999 {
		return ErrInvalidYear
	}
	if len(strings.TrimSpace(r.Product)) == 0 {
		return ErrEmptyProduct
	}
	if len(r.Product) > 200 {
		return ErrProductTooLong
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) || r.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}
