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

	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultCacheDuration = 2 * time.Minute

// Options configures the Sheets mirror.
type Options struct {
	SpreadsheetID string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
	// CacheDuration bounds how long a tab's key-to-row index is trusted.
	CacheDuration time.Duration
}

// Client mirrors ledger rows into a spreadsheet. Only one writer per
// spreadsheet is expected; the row index is a cache, refreshed on expiry and
// after structural changes.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu                 sync.Mutex
	cacheValidDuration time.Duration
	indexes            map[string]*rowIndex
	sheetIDs           map[string]int64
}

var _ ports.Mirror = (*Client)(nil)

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentials, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	cacheDuration := opts.CacheDuration
	if cacheDuration <= 0 {
		cacheDuration = defaultCacheDuration
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready", "spreadsheet_id", spreadsheetID)
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		cacheValidDuration: cacheDuration,
		indexes:            map[string]*rowIndex{},
	}, nil
}

func loadCredentials(opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// EnsureTabs creates missing mirror tabs and writes their header rows.
func (c *Client) EnsureTabs(ctx context.Context) error {
	ids, err := c.loadSheetIDs(ctx)
	if err != nil {
		return err
	}

	var requests []*gsheet.Request
	for _, tab := range ports.Tabs() {
		if _, ok := ids[tab]; !ok {
			requests = append(requests, &gsheet.Request{
				AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
			})
		}
	}
	if len(requests) > 0 {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID,
			&gsheet.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add mirror tabs: %w", err)
		}
		slog.InfoContext(ctx, "Created mirror tabs", "count", len(requests))
		c.mu.Lock()
		c.sheetIDs = nil
		c.mu.Unlock()
	}

	for _, tab := range ports.Tabs() {
		header := ports.Headers(tab)
		values := make([]any, len(header))
		for i, h := range header {
			values[i] = h
		}
		rng := fmt.Sprintf("%s!A1:%s1", tab, columnLetter(len(header)))
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
			&gsheet.ValueRange{Values: [][]any{values}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header of %s: %w", tab, err)
		}
	}
	return nil
}

// Upsert overwrites the row whose first cell equals row.Key, or appends it.
func (c *Client) Upsert(ctx context.Context, tab string, row ports.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	idx, err := c.index(ctx, tab)
	if err != nil {
		return err
	}

	c.mu.Lock()
	n, found := idx.keys[row.Key]
	if !found {
		n = idx.rows + 1
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A%d:%s%d", tab, n, columnLetter(len(row.Values)), n)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: [][]any{row.Values}}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.InvalidateRowCache(tab)
		return fmt.Errorf("update %s: %w", rng, err)
	}

	if !found {
		c.mu.Lock()
		idx.record(row.Key, n)
		c.mu.Unlock()
	}

	slog.InfoContext(ctx, "Mirrored row", "tab", tab, "key", row.Key, "row", n, "appended", !found)
	return nil
}

// Delete removes the row whose first cell equals key.
func (c *Client) Delete(ctx context.Context, tab, key string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	idx, err := c.index(ctx, tab)
	if err != nil {
		return err
	}
	c.mu.Lock()
	n, found := idx.keys[key]
	c.mu.Unlock()
	if !found {
		slog.DebugContext(ctx, "Row not in mirror, nothing to delete", "tab", tab, "key", key)
		return nil
	}

	ids, err := c.loadSheetIDs(ctx)
	if err != nil {
		return err
	}
	sheetID, ok := ids[tab]
	if !ok {
		return fmt.Errorf("tab %q not found in spreadsheet", tab)
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(n - 1),
					EndIndex:   int64(n),
				},
			},
		}},
	}).Context(ctx).Do()

	// Rows below shifted up either way.
	c.InvalidateRowCache(tab)
	if err != nil {
		return fmt.Errorf("delete row %d of %s: %w", n, tab, err)
	}

	slog.InfoContext(ctx, "Deleted mirrored row", "tab", tab, "key", key, "row", n)
	return nil
}

// InvalidateRowCache forgets the row index of tab, or of every tab when tab is empty.
func (c *Client) InvalidateRowCache(tab string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tab == "" {
		c.indexes = map[string]*rowIndex{}
		return
	}
	delete(c.indexes, tab)
}

// index returns a fresh key-to-row index of tab, reading column A on expiry.
func (c *Client) index(ctx context.Context, tab string) (*rowIndex, error) {
	c.mu.Lock()
	if idx, ok := c.indexes[tab]; ok && time.Now().Before(idx.expiresAt) {
		c.mu.Unlock()
		return idx, nil
	}
	c.mu.Unlock()

	rng := fmt.Sprintf("%s!A:A", tab)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	idx := buildRowIndex(resp.Values)
	idx.expiresAt = time.Now().Add(c.cacheValidDuration)

	c.mu.Lock()
	if c.indexes == nil {
		c.indexes = map[string]*rowIndex{}
	}
	c.indexes[tab] = idx
	c.mu.Unlock()
	return idx, nil
}

func (c *Client) loadSheetIDs(ctx context.Context) (map[string]int64, error) {
	c.mu.Lock()
	if c.sheetIDs != nil {
		ids := c.sheetIDs
		c.mu.Unlock()
		return ids, nil
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	ids := make(map[string]int64, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			ids[s.Properties.Title] = s.Properties.SheetId
		}
	}

	c.mu.Lock()
	c.sheetIDs = ids
	c.mu.Unlock()
	return ids, nil
}
