// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// query parameters, JSON bodies and the flexible number fields the dashboard
// sends.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"salesdash/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// ParseYear reads the year query parameter. Missing means the current year,
// "all" or 0 selects every year.
func ParseYear(query url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	switch v {
	case "":
		return now.Year(), nil
	case "all", "0":
		return 0, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1900 || y > 9999 {
		return 0, fmt.Errorf("%w: year %q", core.ErrInvalidYear, v)
	}
	return y, nil
}

// ParseThreshold reads the threshold query parameter; 0 means "use the
// configured default".
func ParseThreshold(query url.Values) (float64, error) {
	v := strings.TrimSpace(query.Get("threshold"))
	if v == "" {
		return 0, nil
	}
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: threshold %q is not a number", core.ErrInvalidInput, v)
	}
	return validThreshold(t)
}

func validThreshold(t float64) (float64, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return 0, fmt.Errorf("%w: threshold must be a positive number", core.ErrInvalidInput)
	}
	return t, nil
}

// ParseID parses a path identifier.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrInvalidInput, s)
	}
	return id, nil
}

// ParseLimit reads ?n=, defaulting to def and bounded to 1..max.
func ParseLimit(query url.Values, def, max int) (int, error) {
	raw := strings.TrimSpace(query.Get("n"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("%w: n must be between 1 and %d", core.ErrInvalidInput, max)
	}
	return n, nil
}

// DecodeJSON reads a bounded JSON body into dst. Bodies over the limit yield
// *http.MaxBytesError, empty or malformed bodies errMalformedBody.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", errMalformedBody)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			return err
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("%w: field %q has the wrong type", core.ErrInvalidInput, typeErr.Field)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// FlexNumber accepts a JSON number or a numeric string such as "1200" or
// "99,90". Strings go through core.ParseAmount.
type FlexNumber struct {
	Value float64
	Set   bool
}

func (n *FlexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := core.ParseAmount(s)
		if err != nil {
			return err
		}
		n.Value, n.Set = v, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: not a number", core.ErrInvalidAmount)
	}
	n.Value, n.Set = v, true
	return nil
}

// FlexMonth accepts a month as a number (3) or a label ("Mar", "March", "3").
type FlexMonth struct {
	Value int
	Set   bool
}

func (m *FlexMonth) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		raw = string(data)
	}
	v, err := core.ParseMonth(raw)
	if err != nil {
		return err
	}
	m.Value, m.Set = v, true
	return nil
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}
