package records

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"intake/internal/logger"
	"intake/pkg/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS claim_records (
	claim_number  TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	policy_holder TEXT,
	policy_id     TEXT,
	accident_date TEXT,
	deductible    TEXT,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (claim_number, file_name)
)`

const postgresUpsert = `
INSERT INTO claim_records (claim_number, file_name, policy_holder, policy_id, accident_date, deductible, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (claim_number, file_name) DO UPDATE SET
	policy_holder = EXCLUDED.policy_holder,
	policy_id     = EXCLUDED.policy_id,
	accident_date = EXCLUDED.accident_date,
	deductible    = EXCLUDED.deductible,
	updated_at    = EXCLUDED.updated_at`

// PostgresConfig tunes the connection pool.
type PostgresConfig struct {
	DSN              string
	MaxConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DefaultPostgresConfig returns pool settings suited to a batch worker pool.
func DefaultPostgresConfig(dsn string) PostgresConfig {
	return PostgresConfig{
		DSN:              dsn,
		MaxConns:         8,
		MaxConnLifetime:  30 * time.Minute,
		MaxConnIdleTime:  5 * time.Minute,
		DialTimeout:      10 * time.Second,
		StatementTimeout: 30 * time.Second,
	}
}

// PostgresStore keeps records in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresStore connects and ensures the table exists.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	const op = "NewPostgresStore"
	log := logger.WithComponent("postgres-records")

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, WrapRecordError(op, err, "failed to parse DATABASE_URL")
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "intake"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, WrapRecordError(op, err, "failed to connect to database")
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, WrapRecordError(op, err, "failed to ping database")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, WrapRecordError(op, err, "failed to create schema")
	}

	log.Info().Msg("Connected to PostgreSQL record store")
	return &PostgresStore{pool: pool, log: log}, nil
}

func (s *PostgresStore) Put(ctx context.Context, rec models.CanonicalRecord) error {
	const op = "Put"

	rec, err := prepare(rec)
	if err != nil {
		return WrapRecordError(op, err, rec.FileName)
	}

	args := []interface{}{rec.ClaimNumber, rec.FileName}
	for _, v := range attributeValues(rec) {
		args = append(args, nullable(v))
	}
	args = append(args, rec.UpdatedAt)

	if _, err := s.pool.Exec(ctx, postgresUpsert, args...); err != nil {
		return WrapRecordError(op, err, fmt.Sprintf("claim %s / %s", rec.ClaimNumber, rec.FileName))
	}

	s.log.Debug().
		Str("claim_number", rec.ClaimNumber).
		Str("file_name", rec.FileName).
		Msg("Record stored")
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.CanonicalRecord, error) {
	const op = "List"

	rows, err := s.pool.Query(ctx, `
SELECT claim_number, file_name, policy_holder, policy_id, accident_date, deductible, updated_at
FROM claim_records
ORDER BY claim_number, file_name`)
	if err != nil {
		return nil, WrapRecordError(op, err, "")
	}
	defer rows.Close()

	var out []models.CanonicalRecord
	for rows.Next() {
		var claimNumber, fileName string
		var updatedAt time.Time
		attrs := make([]*string, len(models.RecordAttributes))
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
			if a != nil {
				values[i] = *a
			}
		}
		out = append(out, recordFrom(claimNumber, fileName, values, updatedAt))
	}
	if err := rows.Err(); err != nil {
		return nil, WrapRecordError(op, err, "")
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
