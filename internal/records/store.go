// Package records persists canonical claim records.
//
// Every backend upserts on (claimNumber, fileName): writing a record with an
// existing identity replaces the stored row, so the last write wins.
package records

import (
	"context"
	"time"

	"intake/pkg/models"
)

// Store persists canonical records.
type Store interface {
	Put(ctx context.Context, rec models.CanonicalRecord) error
	Close() error
}

// Lister is implemented by stores that can read their records back.
type Lister interface {
	List(ctx context.Context) ([]models.CanonicalRecord, error)
}

// Columns is the column layout shared by the SQL tables, the sheet and exports.
var Columns = []string{
	"claim_number",
	"file_name",
	"policy_holder",
	"policy_id",
	"accident_date",
	"deductible",
	"updated_at",
}

// prepare validates identity and stamps the update time.
func prepare(rec models.CanonicalRecord) (models.CanonicalRecord, error) {
	if rec.ClaimNumber == "" || rec.FileName == "" {
		return rec, ErrMissingIdentity
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	return rec, nil
}

// attributeValues returns the record's attributes in models.RecordAttributes order.
func attributeValues(rec models.CanonicalRecord) []string {
	values := make([]string, len(models.RecordAttributes))
	for i, attr := range models.RecordAttributes {
		values[i] = rec.Get(attr)
	}
	return values
}

// nullable maps empty attributes to SQL NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func recordFrom(claimNumber, fileName string, attrs []string, updatedAt time.Time) models.CanonicalRecord {
	rec := models.CanonicalRecord{ClaimNumber: claimNumber, FileName: fileName, UpdatedAt: updatedAt}
	for i, attr := range models.RecordAttributes {
		if i < len(attrs) && attrs[i] != "" {
			rec.Set(attr, attrs[i])
		}
	}
	return rec
}
