// Package gsheet appends breakdown summaries to a Google spreadsheet, so
// a household budget sheet can track the top spending buckets over time.
package gsheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerview/internal/core"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Breakdowns").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Breakdowns"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendSummary appends one row per bucket: export timestamp, account,
// dimension, rank, key, name, total, percentage.
func (c *Client) AppendSummary(ctx context.Context, accountName string, summary core.BreakdownSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	exportedAt := time.Now().Format("2006-01-02 15:04")
	values := summaryRows(exportedAt, accountName, summary)
	if len(values) == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A:H", c.sheetName)
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	return nil
}

func summaryRows(exportedAt, accountName string, summary core.BreakdownSummary) [][]any {
	values := make([][]any, 0, len(summary.Buckets))
	for i, b := range summary.Buckets {
		total, _ := b.Total.Float64()
		values = append(values, []any{
			exportedAt,
			accountName,
			string(summary.Dimension),
			i + 1,
			b.Key,
			b.Name,
			total,
			b.Percentage,
		})
	}
	return values
}
