package http

import (
	"net/http"
	"strings"

	"salesdash/internal/core"
	applog "salesdash/internal/log"
)

// addSaleRequest is the body the dashboard form posts. Sales may be a number
// or a string, month a number or a label.
type addSaleRequest struct {
	Product  string     `json:"product"`
	Sales    FlexNumber `json:"sales"`
	Month    FlexMonth  `json:"month"`
	Category string     `json:"category"`
	Year     int        `json:"year"`
}

func (req addSaleRequest) record(defaultYear int) (core.SalesRecord, error) {
	if !req.Sales.Set {
		return core.SalesRecord{}, core.ErrInvalidAmount
	}
	if !req.Month.Set {
		return core.SalesRecord{}, core.ErrInvalidMonth
	}
	year := req.Year
	if year == 0 {
		year = defaultYear
	}
	rec := core.SalesRecord{
		Year:     year,
		Month:    req.Month.Value,
		Product:  sanitizeInput(req.Product),
		Category: sanitizeInput(req.Category),
		Amount:   req.Sales.Value,
	}
	return rec, rec.Validate()
}

// handleListSales returns the ledger records, every year unless ?year= is set.
func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	year := 0
	if strings.TrimSpace(r.URL.Query().Get("year")) != "" {
		y, err := ParseYear(r.URL.Query(), s.now())
		if err != nil {
			s.writeError(w, r, applog.OpList, err)
			return
		}
		year = y
	}

	records, err := s.ledger.ListSales(r.Context(), year)
	if err != nil {
		s.writeError(w, r, applog.OpList, ledgerError(s.source, err))
		return
	}
	views := make([]saleView, len(records))
	for i, rec := range records {
		views[i] = newSaleView(rec)
	}
	SuccessResponse(map[string]any{"data": views}).Write(w)
}

func (s *Server) handleAddSale(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	var req addSaleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}
	rec, err := req.record(s.now().Year())
	if err != nil {
		s.writeError(w, r, applog.OpCreate, err)
		return
	}

	saved, err := s.ledger.AddSale(r.Context(), rec)
	if err != nil {
		s.writeError(w, r, applog.OpCreate, ledgerError(s.source, err))
		return
	}
	s.anomalies.Invalidate(saved.Year)

	applog.FromContext(r.Context()).Info("Sale recorded",
		applog.NewFields().
			WithOperation(applog.OpCreate).
			WithSale(saved.ID, saved.Year, saved.Month, saved.Product, saved.Category, saved.Amount).
			ToSlice()...)
	SuccessResponse(map[string]any{
		"id":   saved.ID,
		"data": newSaleView(saved),
	}).Status(http.StatusCreated).Write(w)
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodDelete); resp != nil {
		resp.Write(w)
		return
	}
	id, err := ParseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, applog.OpDelete, err)
		return
	}

	if err := s.ledger.DeleteSale(r.Context(), id); err != nil {
		s.writeError(w, r, applog.OpDelete, ledgerError(s.source, err))
		return
	}
	s.anomalies.InvalidateAll()

	applog.FromContext(r.Context()).Info("Sale deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldSaleID, id)
	SuccessResponse(map[string]any{"id": id}).Write(w)
}

// handleSummarize returns the short preview of a free-text note.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpSummarize, err)
		return
	}
	summary, err := s.summaries.Summarize(req.Text)
	if err != nil {
		s.writeError(w, r, applog.OpSummarize, err)
		return
	}
	SuccessResponse(map[string]any{"summary": summary}).Write(w)
}
