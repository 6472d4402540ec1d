package core

import (
	"sort"
	"strings"
)

// MonthlySeries aggregates ledger records into an ordered monthly series.
//
// Amounts are summed per month. Only months with at least one matching
// record appear, in calendar order, labelled with MonthLabel. Category
// matching ignores case and surrounding whitespace.
func MonthlySeries(records []SalesRecord, q SeriesQuery) []SalesObservation {
	var totals [12]float64
	var present [12]bool
	for _, r := range records {
		if !q.Matches(r) {
			continue
		}
		if r.Month < 1 || r.Month > 12 {
			continue
		}
		totals[r.Month-1] += r.Amount
		present[r.Month-1] = true
	}

	out := make([]SalesObservation, 0, 12)
	for i := 0; i < 12; i++ {
		if !present[i] {
			continue
		}
		out = append(out, SalesObservation{Period: monthLabels[i], Amount: totals[i]})
	}
	return out
}

// Matches reports whether r falls inside the query.
func (q SeriesQuery) Matches(r SalesRecord) bool {
	if q.Year != 0 && r.Year != q.Year {
		return false
	}
	if c := strings.TrimSpace(q.Category); c != "" && !strings.EqualFold(c, strings.TrimSpace(r.Category)) {
		return false
	}
	return true
}

// Categories returns the distinct categories used in year (all years when 0), sorted.
func Categories(records []SalesRecord, year int) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, r := range records {
		if year != 0 && r.Year != year {
			continue
		}
		c := strings.TrimSpace(r.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(c)]; ok {
			continue
		}
		seen[strings.ToLower(c)] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
