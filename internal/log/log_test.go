package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogger_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentAnomaly, Output: &buf})

	logger.WithFields(NewFields().
		WithOperation(OpDetect).
		WithDetection(12, 1, 2).
		WithError(errors.New("boom"))).
		Info("scored")

	out := buf.String()
	for _, want := range []string{"component=anomaly", "operation=detect", "series_len=12", "anomalies=1", "threshold=2", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
	if logger.Component() != ComponentAnomaly {
		t.Errorf("Component() = %q", logger.Component())
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %s", buf.String())
	}
}

func TestFields_WithQueryOmitsEmptyCategory(t *testing.T) {
	f := NewFields().WithQuery(2024, "")
	if _, ok := f[FieldCategory]; ok {
		t.Error("empty category must not be logged")
	}
	f = NewFields().WithSale(7, 2024, 5, "Phone", "Electronics", 499)
	if f[FieldSaleID] != int64(7) || f[FieldCategory] != "Electronics" {
		t.Errorf("unexpected sale fields: %v", f)
	}
	if len(NewFields().WithError(nil)) != 0 {
		t.Error("nil error must add no field")
	}
}

func TestMiddleware_StoresRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf, Component: ComponentHTTP})

	h := Middleware(base, func(*http.Request) string { return "req_abc" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Errorf("request id missing: %s", buf.String())
	}
}

func TestFromContext_Fallback(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Logger == nil {
		t.Fatal("FromContext must never return nil")
	}
	if l.Component() != "unknown" {
		t.Errorf("Component() = %q, want unknown", l.Component())
	}
}
