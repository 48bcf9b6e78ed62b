package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"finanquest/internal/core"
	applog "finanquest/internal/log"
	ports "finanquest/internal/sheets"

	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Reports"); the report's year is prefixed.
	sheetBase string
	logger    *applog.Logger
}

// Ensure interface conformance
var _ ports.Exporter = (*Client)(nil)

// Options selects the spreadsheet and the service account credentials.
type Options struct {
	SpreadsheetID string
	SheetName     string
	// Extra client options, e.g. an endpoint override in tests.
	ClientOptions []goption.ClientOption
}

// New creates a Sheets client. Credentials come from the environment (see
// credentialsFromEnv) unless ClientOptions already configure them.
func New(ctx context.Context, opts Options, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Reports"
	}

	clientOpts := opts.ClientOptions
	if len(clientOpts) == 0 {
		data, err := credentialsFromEnv(ctx, logger)
		if err != nil {
			return nil, err
		}
		creds, err := oauthgoogle.CredentialsFromJSON(ctx, data, gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account credentials: %w", err)
		}
		clientOpts = []goption.ClientOption{goption.WithCredentials(creds)}
	}

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     base,
		logger:        logger,
	}, nil
}

// credentialsFromEnv reads Service Account credentials from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func credentialsFromEnv(ctx context.Context, logger *applog.Logger) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// AppendReport appends the summary rows to the sheet of the summary's year.
func (c *Client) AppendReport(ctx context.Context, s core.MonthlySummary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, s.Period.Year)
	rng := fmt.Sprintf("%s!A:F", quoteSheet(sheet))
	vr := &gsheet.ValueRange{Values: ports.ReportRows(s)}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		c.logger.LogError(ctx, "Failed to append report", err, applog.ErrorTypeRemote, applog.OpExport)
		return "", fmt.Errorf("append report to sheet %s: %w", sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Exported monthly report",
		applog.FieldOperation, applog.OpExport,
		"period", s.Period.String(),
		"range", ref)
	return ref, nil
}

// ExportedPeriods reads the year's sheet and returns periods that already
// have a totals row.
func (c *Client) ExportedPeriods(ctx context.Context, year int) (map[core.Period]bool, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, year)
	rng := fmt.Sprintf("%s!A:B", quoteSheet(sheet))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return ports.ExportedPeriods(resp.Values), nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// quoteSheet quotes a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
