package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"salesdash/internal/core"
	"salesdash/internal/sources"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSheetName   = "Sales"
	defaultRowCacheTTL = 5 * time.Minute
	headerRows         = 1
	valueInputOption   = "USER_ENTERED"
	unformattedValue   = "UNFORMATTED_VALUE"
)

// Client is a sales ledger kept in one Google Sheets tab.
// Columns A:G hold ID, Year, Month, Product, Category, Amount, CreatedAt.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	salesSheet    string

	// appendMu is held from reserving a row until it is written.
	appendMu sync.Mutex

	// Row count cache; appends reuse it instead of reading column A each time.
	mu                 sync.Mutex
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

var (
	_ sources.SalesWriter  = (*Client)(nil)
	_ sources.SalesLister  = (*Client)(nil)
	_ sources.SalesDeleter = (*Client)(nil)
	_ sources.SeriesReader = (*Client)(nil)
	_ sources.Pinger       = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Sales").
func NewFromEnv(ctx context.Context) (*Client, error) {
	return Open(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), os.Getenv("GOOGLE_SHEET_NAME"))
}

// Open creates a Sheets client for the given spreadsheet with service
// account credentials taken from the environment.
func Open(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetName), nil
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		salesSheet:         sheetName,
		cacheValidDuration: defaultRowCacheTTL,
	}
}

// newSheetsService initializes a Sheets Service. Service account credentials
// (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS) win; otherwise an OAuth client plus the
// token saved by oauth-init is used.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err == nil {
		slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
			"credentials_size", len(credentialsJSON),
			"scope", gsheet.SpreadsheetsScope)
		service, err := gsheet.NewService(ctx,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}
	if !errors.Is(err, errNoServiceAccount) {
		return nil, err
	}

	cfg, tok, oauthErr := oauthCredentials()
	if errors.Is(oauthErr, ErrNoOAuthCredentials) {
		return nil, err
	}
	if oauthErr != nil {
		return nil, oauthErr
	}
	slog.InfoContext(ctx, "Creating Google Sheets service with OAuth token",
		"scope", gsheet.SpreadsheetsScope,
		"has_refresh_token", tok.RefreshToken != "")
	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

var errNoServiceAccount = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS, or configure OAuth)")

func serviceAccountCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errNoServiceAccount
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// AddSale appends a new row; the record ID becomes its data row number.
func (c *Client) AddSale(ctx context.Context, r core.SalesRecord) (core.SalesRecord, error) {
	if err := r.Validate(); err != nil {
		return core.SalesRecord{}, err
	}
	if c.svc == nil {
		return core.SalesRecord{}, errors.New("sheets service not initialized")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	c.appendMu.Lock()
	defer c.appendMu.Unlock()
	next, err := c.nextRow(ctx)
	if err != nil {
		return core.SalesRecord{}, err
	}
	r.ID = int64(next - headerRows)
	if _, err := c.writeRow(ctx, next, r); err != nil {
		return core.SalesRecord{}, err
	}
	return r, nil
}

// AppendSale mirrors a record stored elsewhere, keeping its ID.
// It returns the A1 reference of the written row.
func (c *Client) AppendSale(ctx context.Context, r core.SalesRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.appendMu.Lock()
	defer c.appendMu.Unlock()
	next, err := c.nextRow(ctx)
	if err != nil {
		return "", err
	}
	return c.writeRow(ctx, next, r)
}

// writeRow must be called with appendMu held.
func (c *Client) writeRow(ctx context.Context, row int, r core.SalesRecord) (string, error) {
	ref := fmt.Sprintf("%s!A%d:G%d", c.salesSheet, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{rowValues(r)}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption(valueInputOption).Context(ctx).Do()
	if err != nil {
		c.invalidateRowCache()
		return "", fmt.Errorf("failed to update %s: %w", ref, err)
	}

	c.mu.Lock()
	c.cachedRowCount = row
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()

	slog.InfoContext(ctx, "Sale written to Google Sheets", "ref", ref, "id", r.ID)
	return ref, nil
}

// nextRow returns the first empty row, reading column A only when the
// cached row count has expired.
func (c *Client) nextRow(ctx context.Context) (int, error) {
	c.mu.Lock()
	if time.Now().Before(c.cacheExpiresAt) {
		n := c.cachedRowCount
		c.mu.Unlock()
		return n + 1, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", c.salesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get sheet dimensions for %s: %w", c.salesSheet, err)
	}
	count := len(resp.Values)
	if count < headerRows {
		count = headerRows
	}

	c.mu.Lock()
	c.cachedRowCount = count
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	c.mu.Unlock()
	return count + 1, nil
}

func (c *Client) invalidateRowCache() {
	c.mu.Lock()
	c.cacheExpiresAt = time.Time{}
	c.mu.Unlock()
}

// ListSales scans the sales tab; year 0 lists every year.
func (c *Client) ListSales(ctx context.Context, year int) ([]core.SalesRecord, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:G", c.salesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption(unformattedValue).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseSales(resp.Values, year), nil
}

func (c *Client) MonthlySeries(ctx context.Context, q core.SeriesQuery) ([]core.SalesObservation, error) {
	records, err := c.ListSales(ctx, q.Year)
	if err != nil {
		return nil, err
	}
	return core.MonthlySeries(records, q), nil
}

func (c *Client) Categories(ctx context.Context, year int) ([]string, error) {
	records, err := c.ListSales(ctx, year)
	if err != nil {
		return nil, err
	}
	return core.Categories(records, year), nil
}

// DeleteSale is not supported: rows carry no stable key once users edit the sheet.
// Deletions go through the SQLite backend.
func (c *Client) DeleteSale(context.Context, int64) error {
	return fmt.Errorf("google sheets delete: %w", core.ErrUnsupported)
}

func (c *Client) Ping(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	return nil
}
