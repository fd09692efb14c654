package records

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"testing"

	"intake/pkg/models"
)

// memorySheet is an in-memory worksheet addressed by A1 ranges.
type memorySheet struct {
	rows    [][]interface{}
	created bool
}

var rowRange = regexp.MustCompile(`!A(\d+):[A-Z](\d*)$`)

func (m *memorySheet) ensureSheet(ctx context.Context, title string) (int64, bool, error) {
	created := !m.created
	m.created = true
	return 7, created, nil
}

func (m *memorySheet) get(ctx context.Context, rng string) ([][]interface{}, error) {
	match := rowRange.FindStringSubmatch(rng)
	if match == nil {
		return nil, fmt.Errorf("unsupported range %s", rng)
	}
	start, _ := strconv.Atoi(match[1])
	end := len(m.rows)
	if match[2] != "" {
		end, _ = strconv.Atoi(match[2])
	}
	var out [][]interface{}
	for i := start; i <= end && i <= len(m.rows); i++ {
		out = append(out, m.rows[i-1])
	}
	return out, nil
}

func (m *memorySheet) update(ctx context.Context, rng string, rows [][]interface{}) error {
	match := rowRange.FindStringSubmatch(rng)
	if match == nil {
		return fmt.Errorf("unsupported range %s", rng)
	}
	n, _ := strconv.Atoi(match[1])
	for len(m.rows) < n {
		m.rows = append(m.rows, nil)
	}
	m.rows[n-1] = rows[0]
	return nil
}

func (m *memorySheet) append(ctx context.Context, rng string, rows [][]interface{}) error {
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memorySheet) formatHeaders(ctx context.Context, sheetID int64) error {
	return errors.New("formatting unsupported")
}

func TestSheetsStoreUpsert(t *testing.T) {
	ctx := context.Background()
	sheet := &memorySheet{}
	store := newSheetsStore(sheet, "Claims")

	puts := []models.CanonicalRecord{
		claimRecord("1", "a", map[models.Attribute]string{models.AttrPolicyHolder: "Jane"}),
		claimRecord("2", "b", map[models.Attribute]string{models.AttrDeductible: "500"}),
		claimRecord("1", "a", map[models.Attribute]string{models.AttrPolicyHolder: "Janet"}),
	}
	for _, rec := range puts {
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	if len(sheet.rows) != 3 {
		t.Fatalf("sheet has %d rows, want header + 2", len(sheet.rows))
	}
	if sheet.rows[0][0] != "Claim Number" {
		t.Fatalf("header row = %v", sheet.rows[0])
	}

	recs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("List() returned %d records", len(recs))
	}
	if recs[0].ClaimNumber != "1" || recs[0].Get(models.AttrPolicyHolder) != "Janet" {
		t.Fatalf("first record = %+v", recs[0])
	}
	if recs[1].Get(models.AttrDeductible) != "500" {
		t.Fatalf("second record = %+v", recs[1])
	}
}

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9/edit#gid=0")
	if err != nil || id != "1AbC-d_9" {
		t.Fatalf("extractSpreadsheetID() = %q, %v", id, err)
	}
	if _, err := extractSpreadsheetID("https://example.com/sheet"); !errors.Is(err, ErrInvalidSheetURL) {
		t.Fatalf("extractSpreadsheetID(bad) error = %v", err)
	}
}
