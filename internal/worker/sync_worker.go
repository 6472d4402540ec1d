package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"salesdash/internal/amqp"
	"salesdash/internal/core"
	"salesdash/internal/metrics"
	"salesdash/internal/reports"
	"salesdash/internal/services"
	"salesdash/internal/storage"
)

// Ledger is the slice of the SQLite repository the worker needs.
type Ledger interface {
	GetSale(ctx context.Context, id int64) (core.SalesRecord, error)
	GetPendingSyncSales(ctx context.Context, limit int) ([]storage.PendingSyncSale, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// SheetAppender mirrors a stored sale to the spreadsheet.
type SheetAppender interface {
	AppendSale(ctx context.Context, r core.SalesRecord) (string, error)
}

type Config struct {
	BatchSize    int
	PollInterval time.Duration
}

// SyncWorker mirrors sales from SQLite to Google Sheets and keeps the stored
// anomaly reports current.
type SyncWorker struct {
	ledger    Ledger
	sheets    SheetAppender
	anomalies *services.AnomalyService
	reports   reports.Store
	metrics   *metrics.Collectors
	config    Config
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncWorker wires the worker. sheets and store may be nil to disable
// spreadsheet sync and report storage respectively.
func NewSyncWorker(ledger Ledger, sheets SheetAppender, anomalies *services.AnomalyService, store reports.Store, m *metrics.Collectors, cfg Config) *SyncWorker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	return &SyncWorker{
		ledger:    ledger,
		sheets:    sheets,
		anomalies: anomalies,
		reports:   store,
		metrics:   m,
		config:    cfg,
		now:       time.Now,
	}
}

// HandleSyncMessage processes a single sale sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SaleSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version,
		"year", msg.Year)

	rec, err := w.ledger.GetSale(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before the worker saw it; the delete message refreshes the report.
		slog.WarnContext(ctx, "Sale no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get sale from storage: %w", err)
	}

	if err := w.syncSale(ctx, rec); err != nil {
		return fmt.Errorf("sync sale to sheets: %w", err)
	}

	w.refreshLogged(ctx, rec.Year)
	return nil
}

// HandleDeleteMessage processes a sale delete message. Spreadsheet rows are
// left in place; only the year's report is recomputed.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.SaleDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message",
		"id", msg.ID,
		"year", msg.Year,
		"month", msg.Month,
		"category", msg.Category)

	if w.sheets != nil {
		slog.WarnContext(ctx, "Google Sheets row deletion not supported, row kept", "id", msg.ID)
	}
	w.refreshLogged(ctx, msg.Year)
	return nil
}

// ProcessPending syncs sales whose messages were lost. It is a backup for
// the AMQP path and returns how many sales reached the spreadsheet.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.config.BatchSize)
}

// StartupSyncCheck runs a larger pending sweep when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.config.BatchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	if w.sheets == nil {
		return 0, nil
	}
	pending, err := w.ledger.GetPendingSyncSales(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending sales: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending sales", "count", len(pending))

	synced := 0
	years := map[int]struct{}{}
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		rec, err := w.ledger.GetSale(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get sale", "id", p.ID, "error", err)
			if err := w.ledger.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}
		if err := w.syncSale(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to sync sale", "id", p.ID, "error", err)
			continue
		}
		synced++
		years[rec.Year] = struct{}{}
	}

	for _, year := range sortedYears(years) {
		w.refreshLogged(ctx, year)
	}
	return synced, nil
}

// RefreshReport rescans year and stores its report. A nil report store
// makes it a no-op.
func (w *SyncWorker) RefreshReport(ctx context.Context, year int) error {
	if w.reports == nil || w.anomalies == nil {
		return nil
	}
	w.anomalies.Invalidate(year)

	overall, err := w.anomalies.DetectForQuery(ctx, core.SeriesQuery{Year: year}, 0)
	if err != nil {
		return fmt.Errorf("detect %d: %w", year, err)
	}
	byCategory, err := w.anomalies.DetectByCategory(ctx, year, nil, 0)
	if err != nil {
		return fmt.Errorf("detect %d by category: %w", year, err)
	}

	report := reports.NewReport(year, overall, byCategory, w.now())
	if err := w.reports.Save(ctx, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	w.metrics.ReportSaved()
	slog.InfoContext(ctx, "Anomaly report stored",
		"year", year,
		"series_len", report.Summary.Count,
		"anomalies", report.Summary.Anomalies,
		"categories", len(report.Categories))
	return nil
}

func (w *SyncWorker) refreshLogged(ctx context.Context, year int) {
	if err := w.RefreshReport(ctx, year); err != nil {
		slog.ErrorContext(ctx, "Failed to refresh anomaly report", "year", year, "error", err)
	}
}

func (w *SyncWorker) syncSale(ctx context.Context, rec core.SalesRecord) error {
	if w.sheets == nil {
		slog.DebugContext(ctx, "Google Sheets not configured, sale stays local", "id", rec.ID)
		return nil
	}

	ref, err := w.sheets.AppendSale(ctx, rec)
	if err != nil {
		w.metrics.Synced(false)
		if markErr := w.ledger.MarkSyncError(ctx, rec.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.metrics.Synced(true)

	// The row is written; a failed status update only means a later re-sync.
	if err := w.ledger.MarkSynced(ctx, rec.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", rec.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced sale",
		"id", rec.ID,
		"sheets_ref", ref,
		"product", rec.Product,
		"amount", rec.Amount)
	return nil
}

// Start runs the pending sweep every PollInterval until Stop or ctx ends.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Pending sync sweep started",
		"poll_interval", w.config.PollInterval,
		"batch_size", w.config.BatchSize)
	return nil
}

// Stop signals the sweep to end and waits for it or for ctx.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Pending sync sweep stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Pending sync sweep stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sync sweep failed", "error", err)
			}
		}
	}
}

func sortedYears(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}
