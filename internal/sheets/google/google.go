package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

// valuesAPI is the slice of the Sheets values service the client needs.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

type Client struct {
	values        valuesAPI
	spreadsheetID string
	// Base name without year (e.g. "Snapshots"); the snapshot's year is prefixed.
	sheetBase string
	logger    *log.Logger

	// serialises read-then-write row placement
	mu sync.Mutex
}

// Ensure interface conformance
var (
	_ ports.SnapshotWriter = (*Client)(nil)
	_ ports.SnapshotLister = (*Client)(nil)
)

// NewClient creates a Sheets client authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func NewClient(ctx context.Context, spreadsheetID, sheetBase string, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentExport)

	svc, err := newSheetsService(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceValues{svc: svc}, spreadsheetID, sheetBase, logger), nil
}

func newClient(values valuesAPI, spreadsheetID, sheetBase string, logger *log.Logger) *Client {
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = "Snapshots"
	}
	return &Client{
		values:        values,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		logger:        logger,
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendSnapshot writes the snapshot row into the sheet for its year. An
// existing row for the same month and user is overwritten in place.
func (c *Client) AppendSnapshot(ctx context.Context, s core.MonthSnapshot) error {
	if s.UserID == "" {
		return errors.New("snapshot has no user")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	sheet := yearPrefixedName(c.sheetBase, s.Month.Year())
	keys, err := c.values.Get(ctx, c.spreadsheetID, fmt.Sprintf("%s!A:B", sheet))
	if err != nil {
		return fmt.Errorf("failed to read keys from %s: %w", sheet, err)
	}

	if len(keys) == 0 {
		rng := fmt.Sprintf("%s!A1:I1", sheet)
		if err := c.values.Update(ctx, c.spreadsheetID, rng, [][]any{toAny(ports.Header)}); err != nil {
			return fmt.Errorf("failed to write header in %s: %w", sheet, err)
		}
		keys = [][]any{toAny(ports.Header)}
	}

	row := ports.Row(s)
	target := findRow(keys, row[0], row[1])
	if target == 0 {
		target = len(keys) + 1
	}

	rng := fmt.Sprintf("%s!A%d:I%d", sheet, target, target)
	if err := c.values.Update(ctx, c.spreadsheetID, rng, [][]any{toAny(row)}); err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}

	c.logger.InfoContext(ctx, "Snapshot exported",
		log.FieldUserID, s.UserID,
		log.FieldMonth, row[0],
		"range", rng)
	return nil
}

// ListSnapshotRows returns every data row of the sheet for year.
func (c *Client) ListSnapshotRows(ctx context.Context, year int) ([][]string, error) {
	sheet := yearPrefixedName(c.sheetBase, year)
	values, err := c.values.Get(ctx, c.spreadsheetID, fmt.Sprintf("%s!A:I", sheet))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}
	if len(values) < 2 {
		return nil, nil
	}
	out := make([][]string, 0, len(values)-1)
	for _, r := range values[1:] {
		out = append(out, toStrings(r))
	}
	return out, nil
}

// findRow returns the 1-based sheet row holding month and user, or 0.
func findRow(values [][]any, month, user string) int {
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if safeGet(row, 0) == month && safeGet(row, 1) == user {
			return i + 1
		}
	}
	return 0
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if len(base) >= 5 && base[4] == ' ' {
		if _, err := strconv.Atoi(base[:4]); err == nil {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// serviceValues adapts the generated Sheets service to valuesAPI.
type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
