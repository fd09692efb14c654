package records

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"intake/internal/logger"
	"intake/pkg/models"
)

// sheetHeaders label columns A to G.
var sheetHeaders = []interface{}{
	"Claim Number", "File Name", "Policy Holder", "Policy ID", "Date of Accident", "Deductible", "Updated",
}

// sheetValues is the part of the Sheets API the store needs.
type sheetValues interface {
	ensureSheet(ctx context.Context, title string) (sheetID int64, created bool, err error)
	get(ctx context.Context, rng string) ([][]interface{}, error)
	update(ctx context.Context, rng string, rows [][]interface{}) error
	append(ctx context.Context, rng string, rows [][]interface{}) error
	formatHeaders(ctx context.Context, sheetID int64) error
}

// SheetsStore keeps records in a Google Sheet, one row per record. Rows are
// matched on columns A and B; writes are serialized.
type SheetsStore struct {
	api       sheetValues
	worksheet string
	log       zerolog.Logger

	mu    sync.Mutex
	ready bool
}

// NewSheetsStore creates a store for the worksheet of the spreadsheet at sheetURL.
func NewSheetsStore(ctx context.Context, sheetURL, worksheet string) (*SheetsStore, error) {
	const op = "NewSheetsStore"

	log := logger.WithComponent("sheets-records")

	// Extract spreadsheet ID from URL
	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, WrapRecordError(op, err, sheetURL)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	// Get Google credentials
	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, WrapRecordError(op, err, "failed to read credentials file")
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, WrapRecordError(op, fmt.Errorf("neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set"), "")
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, WrapRecordError(op, err, "failed to parse credentials")
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, WrapRecordError(op, err, "failed to create sheets service")
	}

	return newSheetsStore(&sheetsAPI{svc: svc, spreadsheetID: spreadsheetID}, worksheet), nil
}

func newSheetsStore(api sheetValues, worksheet string) *SheetsStore {
	return &SheetsStore{
		api:       api,
		worksheet: worksheet,
		log:       logger.WithComponent("sheets-records"),
	}
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", ErrInvalidSheetURL
	}
	return matches[1], nil
}

func (s *SheetsStore) Put(ctx context.Context, rec models.CanonicalRecord) error {
	const op = "Put"

	rec, err := prepare(rec)
	if err != nil {
		return WrapRecordError(op, err, rec.FileName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureReady(ctx); err != nil {
		return WrapRecordError(op, err, s.worksheet)
	}

	keys, err := s.api.get(ctx, s.worksheet+"!A2:B")
	if err != nil {
		return WrapRecordError(op, err, "failed to read key columns")
	}

	row := recordRow(rec)
	for i, k := range keys {
		if len(k) >= 2 && fmt.Sprint(k[0]) == rec.ClaimNumber && fmt.Sprint(k[1]) == rec.FileName {
			n := i + 2
			rng := fmt.Sprintf("%s!A%d:G%d", s.worksheet, n, n)
			if err := s.api.update(ctx, rng, [][]interface{}{row}); err != nil {
				return WrapRecordError(op, err, "failed to update row")
			}
			s.log.Debug().Str("claim_number", rec.ClaimNumber).Int("row", n).Msg("Record row replaced")
			return nil
		}
	}

	if err := s.api.append(ctx, s.worksheet+"!A:G", [][]interface{}{row}); err != nil {
		return WrapRecordError(op, err, "failed to append row")
	}
	s.log.Debug().Str("claim_number", rec.ClaimNumber).Msg("Record row appended")
	return nil
}

func (s *SheetsStore) List(ctx context.Context) ([]models.CanonicalRecord, error) {
	const op = "List"

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.api.get(ctx, s.worksheet+"!A2:G")
	if err != nil {
		return nil, WrapRecordError(op, err, s.worksheet)
	}

	var out []models.CanonicalRecord
	for _, r := range rows {
		cells := make([]string, 7)
		for i := 0; i < len(r) && i < len(cells); i++ {
			cells[i] = fmt.Sprint(r[i])
		}
		if cells[0] == "" {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, cells[6])
		out = append(out, recordFrom(cells[0], cells[1], cells[2:6], ts))
	}
	return out, nil
}

func (s *SheetsStore) Close() error { return nil }

// ensureReady creates the worksheet and header row once.
func (s *SheetsStore) ensureReady(ctx context.Context) error {
	if s.ready {
		return nil
	}

	sheetID, created, err := s.api.ensureSheet(ctx, s.worksheet)
	if err != nil {
		return err
	}
	if created {
		s.log.Info().Str("sheet", s.worksheet).Msg("Created new sheet")
	}

	headerRange := s.worksheet + "!A1:G1"
	header, err := s.api.get(ctx, headerRange)
	if err != nil {
		return err
	}
	if len(header) == 0 || len(header[0]) == 0 {
		s.log.Info().Str("sheet", s.worksheet).Msg("Adding headers to sheet")
		if err := s.api.update(ctx, headerRange, [][]interface{}{sheetHeaders}); err != nil {
			return err
		}
		if err := s.api.formatHeaders(ctx, sheetID); err != nil {
			s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
		}
	}

	s.ready = true
	return nil
}

func recordRow(rec models.CanonicalRecord) []interface{} {
	row := []interface{}{rec.ClaimNumber, rec.FileName}
	for _, v := range attributeValues(rec) {
		row = append(row, v)
	}
	return append(row, rec.UpdatedAt.UTC().Format(time.RFC3339))
}

// sheetsAPI implements sheetValues on the Sheets v4 service.
type sheetsAPI struct {
	svc           *sheets.Service
	spreadsheetID string
}

func (a *sheetsAPI) ensureSheet(ctx context.Context, title string) (int64, bool, error) {
	spreadsheet, err := a.svc.Spreadsheets.Get(a.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == title {
			return sheet.Properties.SheetId, false, nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}}},
		},
	}
	resp, err := a.svc.Spreadsheets.BatchUpdate(a.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sheet: %w", err)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, true, nil
}

func (a *sheetsAPI) get(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(a.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (a *sheetsAPI) update(ctx context.Context, rng string, rows [][]interface{}) error {
	_, err := a.svc.Spreadsheets.Values.Update(a.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (a *sheetsAPI) append(ctx context.Context, rng string, rows [][]interface{}) error {
	_, err := a.svc.Spreadsheets.Values.Append(a.spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// formatHeaders makes the header row bold on a grey background.
func (a *sheetsAPI) formatHeaders(ctx context.Context, sheetID int64) error {
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(sheetHeaders)),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
	}

	_, err := a.svc.Spreadsheets.BatchUpdate(a.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return err
}
