package records

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"intake/internal/logger"
	"intake/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS claim_records (
	claim_number  TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	policy_holder TEXT,
	policy_id     TEXT,
	accident_date TEXT,
	deductible    TEXT,
	updated_at    TEXT NOT NULL,
	PRIMARY KEY (claim_number, file_name)
)`

const sqliteUpsert = `
INSERT INTO claim_records (claim_number, file_name, policy_holder, policy_id, accident_date, deductible, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (claim_number, file_name) DO UPDATE SET
	policy_holder = excluded.policy_holder,
	policy_id     = excluded.policy_id,
	accident_date = excluded.accident_date,
	deductible    = excluded.deductible,
	updated_at    = excluded.updated_at`

// SQLiteStore keeps records in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the table exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	const op = "NewSQLiteStore"

	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, WrapRecordError(op, err, path)
	}
	// One writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, WrapRecordError(op, err, "failed to create schema")
	}

	log := logger.WithComponent("sqlite-records")
	log.Debug().Str("path", path).Msg("SQLite record store ready")
	return &SQLiteStore{db: db, log: log}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec models.CanonicalRecord) error {
	const op = "Put"

	rec, err := prepare(rec)
	if err != nil {
		return WrapRecordError(op, err, rec.FileName)
	}

	args := []interface{}{rec.ClaimNumber, rec.FileName}
	for _, v := range attributeValues(rec) {
		args = append(args, nullable(v))
	}
	args = append(args, rec.UpdatedAt.UTC().Format(time.RFC3339Nano))

	if _, err := s.db.ExecContext(ctx, sqliteUpsert, args...); err != nil {
		return WrapRecordError(op, err, fmt.Sprintf("claim %s / %s", rec.ClaimNumber, rec.FileName))
	}

	s.log.Debug().
		Str("claim_number", rec.ClaimNumber).
		Str("file_name", rec.FileName).
		Msg("Record stored")
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.CanonicalRecord, error) {
	const op = "List"

	rows, err := s.db.QueryContext(ctx, `
SELECT claim_number, file_name, policy_holder, policy_id, accident_date, deductible, updated_at
FROM claim_records
ORDER BY claim_number, file_name`)
	if err != nil {
		return nil, WrapRecordError(op, err, "")
	}
	defer rows.Close()

	var out []models.CanonicalRecord
	for rows.Next() {
		var claimNumber, fileName, updatedAt string
		attrs := make([]sql.NullString, len(models.RecordAttributes))
		dest := []interface{}{&claimNumber, &fileName}
		for i := range attrs {
			dest = append(dest, &attrs[i])
		}
		dest = append(dest, &updatedAt)

		if err := rows.Scan(dest...); err != nil {
			return nil, WrapRecordError(op, err, "")
		}

		values := make([]string, len(attrs))
		for i, a := range attrs {
			values[i] = a.String
		}
		ts, _ := time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, recordFrom(claimNumber, fileName, values, ts))
	}
	if err := rows.Err(); err != nil {
		return nil, WrapRecordError(op, err, "")
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
