package export

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

const (
	ratesSheet   = "RATES"
	historySheet = "HISTORY"
)

// SheetsWriter implements SheetWriter using the Google Sheets API.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	if credentialsJSON == "" {
		return nil, fmt.Errorf("google credentials are required for spreadsheet %s", spreadsheetID)
	}
	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write rewrites the RATES sheet and appends the quote to HISTORY.
func (w *SheetsWriter) Write(ctx context.Context, card RateCard) error {
	if err := w.ensureSheets(ctx, ratesSheet, historySheet); err != nil {
		return err
	}

	values := w.svc.Spreadsheets.Values
	if _, err := values.Clear(w.spreadsheetID, ratesSheet+"!A:C", &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clearing %s: %w", ratesSheet, err)
	}

	// RAW keeps "0.00001" from being reinterpreted by the sheet locale
	update := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{Range: ratesSheet + "!A1", Values: rateValues(card)},
		},
	}
	if _, err := values.BatchUpdate(w.spreadsheetID, update).Context(ctx).Do(); err != nil {
		return fmt.Errorf("writing %s: %w", ratesSheet, err)
	}

	return w.appendHistory(ctx, card)
}

// appendHistory writes the header if HISTORY is empty, then appends one row.
func (w *SheetsWriter) appendHistory(ctx context.Context, card RateCard) error {
	header, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, historySheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", historySheet, err)
	}

	rows := [][]any{historyRow(card)}
	if len(header.Values) == 0 {
		rows = slices.Insert(rows, 0, historyHeader)
	}

	call := w.svc.Spreadsheets.Values.Append(w.spreadsheetID, historySheet+"!A:C", &sheets.ValueRange{Values: rows})
	if _, err := call.ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do(); err != nil {
		return fmt.Errorf("appending %s row: %w", historySheet, err)
	}
	return nil
}

// ensureSheets adds whichever of names the spreadsheet lacks.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) error {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	titles := lo.Keyify(lo.Map(spreadsheet.Sheets, func(s *sheets.Sheet, _ int) string {
		return s.Properties.Title
	}))
	requests := lo.FilterMap(names, func(name string, _ int) (*sheets.Request, bool) {
		_, ok := titles[name]
		return &sheets.Request{AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{Title: name},
		}}, !ok
	})
	if len(requests) == 0 {
		return nil
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}
	if _, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("adding sheets %v: %w", names, err)
	}
	return nil
}
