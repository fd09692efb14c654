package records

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"intake/pkg/models"
)

const exportSheet = "Claims"

// ExportXLSX renders records as a workbook with one row per record.
func ExportXLSX(recs []models.CanonicalRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range sheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheet, cell, h)
	}

	for r, rec := range recs {
		row := r + 2
		for c, v := range recordRow(rec) {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(exportSheet, cell, v)
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "B", 22)
	_ = f.SetColWidth(exportSheet, "C", "C", 28)
	_ = f.SetColWidth(exportSheet, "D", "F", 16)
	_ = f.SetColWidth(exportSheet, "G", "G", 24)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// Export lists every record of the store and renders it as a workbook.
func Export(ctx context.Context, lister Lister) ([]byte, int, error) {
	recs, err := lister.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	data, err := ExportXLSX(recs)
	if err != nil {
		return nil, 0, WrapRecordError("Export", err, "")
	}
	return data, len(recs), nil
}
