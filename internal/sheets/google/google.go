package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"saldos/internal/core"
	ports "saldos/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.BalanceWriter = (*Client)(nil)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Saldos"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Inline JSON wins over the file; GOOGLE_APPLICATION_CREDENTIALS is the fallback.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

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

func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
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

// AppendBalance appends the entry below the last row of the sheet. When the
// key is already present (a redelivered message) the existing row is reported
// and nothing is written.
func (c *Client) AppendBalance(ctx context.Context, e core.BalanceEntry) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:B", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read keys from %s: %w", c.sheetName, err)
	}
	if row := findKey(resp.Values, e.Key); row > 0 {
		slog.InfoContext(ctx, "Balance already mirrored", "key", e.Key.String(), "row", row)
		return fmt.Sprintf("%s!A%d:E%d", c.sheetName, row, row), nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{rowValues(e)}}

	out, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:E", c.sheetName), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	if out.Updates != nil && out.Updates.UpdatedRange != "" {
		return out.Updates.UpdatedRange, nil
	}
	next := len(resp.Values) + 1
	return fmt.Sprintf("%s!A%d:E%d", c.sheetName, next, next), nil
}

// rowValues converts the mirror row for USER_ENTERED input. The sequence is
// forced to text so the sheet does not round it to a float.
func rowValues(e core.BalanceEntry) []any {
	cells := ports.Row(e)
	values := make([]any, len(cells))
	for i, v := range cells {
		values[i] = v
	}
	values[1] = "'" + cells[1]
	return values
}

// findKey returns the 1-based row holding key in columns A:B, or 0.
func findKey(values [][]any, key core.BalanceKey) int {
	seq := strconv.FormatInt(key.Seq, 10)
	for i, row := range values {
		if len(row) < 2 {
			continue
		}
		code := strings.TrimSpace(fmt.Sprint(row[0]))
		s := strings.TrimSpace(fmt.Sprint(row[1]))
		if code == key.AccountCode && s == seq {
			return i + 1
		}
	}
	return 0
}
