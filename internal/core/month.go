package core

import (
	"strconv"
	"strings"
)

var monthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// MonthLabel returns the short English label for month m (1-12), or "" when out of range.
func MonthLabel(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthLabels[m-1]
}

// ParseMonth accepts a month number ("4"), a short label ("Apr") or a full name ("april").
func ParseMonth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMonth
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, ErrInvalidMonth
		}
		return n, nil
	}
	if len(s) < 3 {
		return 0, ErrInvalidMonth
	}
	lower := strings.ToLower(s)
	for i, label := range monthLabels {
		short := strings.ToLower(label)
		if lower == short || (strings.HasPrefix(lower, short) && fullMonthNames[i] == lower) {
			return i + 1, nil
		}
	}
	return 0, ErrInvalidMonth
}

var fullMonthNames = [12]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}
