package http

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"salesdash/internal/anomaly"
	"salesdash/internal/core"
	applog "salesdash/internal/log"
	"salesdash/internal/reports"
)

// anomalyPayload is the body the dashboard chart consumes.
type anomalyPayload struct {
	Data    []anomaly.Row   `json:"data"`
	Summary anomaly.Summary `json:"summary"`
}

func newAnomalyPayload(s core.AnomalySeries) anomalyPayload {
	return anomalyPayload{Data: anomaly.Rows(s), Summary: anomaly.Summarize(s)}
}

// detectRequest is the POST /anomalies body. Numbers are labelled
// "Month 1".."Month n"; series points carry their own labels, which are
// scored and returned byte for byte.
type detectRequest struct {
	Numbers   []float64     `json:"numbers"`
	Series    []seriesPoint `json:"series"`
	Threshold *float64      `json:"threshold"`
}

type seriesPoint struct {
	Month string  `json:"month"`
	Sales float64 `json:"sales"`
}

func (req detectRequest) observations() ([]core.SalesObservation, error) {
	if len(req.Numbers) > 0 && len(req.Series) > 0 {
		return nil, fmt.Errorf("%w: send either numbers or series, not both", core.ErrInvalidInput)
	}
	if len(req.Numbers) > 0 {
		obs := make([]core.SalesObservation, len(req.Numbers))
		for i, v := range req.Numbers {
			obs[i] = core.SalesObservation{Period: fmt.Sprintf("Month %d", i+1), Amount: v}
		}
		return obs, nil
	}

	obs := make([]core.SalesObservation, len(req.Series))
	seen := make(map[string]bool, len(req.Series))
	for i, p := range req.Series {
		label := p.Month
		if label == "" {
			label = fmt.Sprintf("Month %d", i+1)
		}
		if seen[label] {
			return nil, &core.InvalidInputError{Index: i, Period: label, Reason: "duplicate period"}
		}
		seen[label] = true
		obs[i] = core.SalesObservation{Period: label, Amount: p.Sales}
	}
	return obs, nil
}

func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.handleLedgerAnomalies(w, r)
	case http.MethodPost:
		s.handleSeriesAnomalies(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

// handleLedgerAnomalies scores the monthly series of the ledger.
func (s *Server) handleLedgerAnomalies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	year, err := ParseYear(query, s.now())
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}
	threshold, err := ParseThreshold(query)
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}
	category := sanitizeInput(query.Get("category"))

	res, err := s.anomalies.DetectForQuery(r.Context(), core.SeriesQuery{Year: year, Category: category}, threshold)
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}
	applog.FromContext(r.Context()).Debug("Anomalies served",
		applog.NewFields().
			WithQuery(year, category).
			WithDetection(res.Len(), res.AnomalyCount(), res.Threshold).
			ToSlice()...)
	NewJSONResponse().Body(newAnomalyPayload(res)).Write(w)
}

// handleSeriesAnomalies scores a series supplied in the request body.
func (s *Server) handleSeriesAnomalies(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}
	var threshold float64
	if req.Threshold != nil {
		t, err := validThreshold(*req.Threshold)
		if err != nil {
			s.writeError(w, r, applog.OpDetect, err)
			return
		}
		threshold = t
	}
	obs, err := req.observations()
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}

	res, err := s.anomalies.DetectSeries(r.Context(), obs, threshold)
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}
	NewJSONResponse().Body(newAnomalyPayload(res)).Write(w)
}

// handleCategoryAnomalies scores one series per category of a year.
func (s *Server) handleCategoryAnomalies(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	query := r.URL.Query()
	year, err := ParseYear(query, s.now())
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}
	threshold, err := ParseThreshold(query)
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}
	var categories []string
	if v := strings.TrimSpace(query.Get("categories")); v != "" {
		for _, c := range strings.Split(v, ",") {
			if c = sanitizeInput(c); c != "" {
				categories = append(categories, c)
			}
		}
	}

	byCategory, err := s.anomalies.DetectByCategory(r.Context(), year, categories, threshold)
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}

	data := make(map[string]anomalyPayload, len(byCategory))
	names := make([]string, 0, len(byCategory))
	for name, res := range byCategory {
		data[name] = newAnomalyPayload(res)
		names = append(names, name)
	}
	sort.Strings(names)
	NewJSONResponse().Body(map[string]any{
		"year":       year,
		"categories": names,
		"data":       data,
	}).Write(w)
}

// handleLatestReport returns the report the worker stored for a year.
func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.reports == nil {
		ServiceUnavailableError("anomaly reports are not enabled", 0).Write(w)
		return
	}
	year, err := ParseYear(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}

	report, err := s.reports.Latest(r.Context(), year)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			err = ledgerError("report store", err)
		}
		s.writeError(w, r, applog.OpDetect, err)
		return
	}
	NewJSONResponse().Body(report).Write(w)
}

const defaultHistoryLen = 10

// handleReportHistory returns the last n reports of a year, newest first.
func (s *Server) handleReportHistory(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.reports == nil {
		ServiceUnavailableError("anomaly reports are not enabled", 0).Write(w)
		return
	}
	query := r.URL.Query()
	year, err := ParseYear(query, s.now())
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}
	n, err := ParseLimit(query, defaultHistoryLen, reports.HistoryLimit)
	if err != nil {
		s.writeError(w, r, applog.OpDetect, err)
		return
	}

	history, err := s.reports.History(r.Context(), year, n)
	if err != nil {
		s.writeError(w, r, applog.OpDetect, ledgerError("report store", err))
		return
	}
	if history == nil {
		history = []reports.Report{}
	}
	NewJSONResponse().Body(map[string]any{
		"year":    year,
		"count":   len(history),
		"reports": history,
	}).Write(w)
}
