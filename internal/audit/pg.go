package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS scan_history (
	scan_id      TEXT PRIMARY KEY,
	ts           TIMESTAMPTZ NOT NULL,
	target       TEXT NOT NULL,
	status       TEXT NOT NULL,
	total        INT NOT NULL,
	patches      INT NOT NULL,
	record       JSONB NOT NULL
)`

// PGStore writes scan history rows to Postgres.
type PGStore struct{ Pool *pgxpool.Pool }

// OpenPG connects to url.
func OpenPG(ctx context.Context, url string) (*PGStore, error) {
	p, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect history db: %w", err)
	}
	return &PGStore{Pool: p}, nil
}

// EnsureSchema creates the history table when missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}

// Insert stores r, replacing an earlier row with the same scan ID.
func (s *PGStore) Insert(ctx context.Context, r ScanRecord) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO scan_history (scan_id, ts, target, status, total, patches, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (scan_id) DO UPDATE SET
			ts = EXCLUDED.ts, status = EXCLUDED.status, total = EXCLUDED.total,
			patches = EXCLUDED.patches, record = EXCLUDED.record
	`, r.ScanID, r.Timestamp, r.Target, r.Status, r.TotalFindings, r.Patches, body)
	return err
}

// Recent returns up to limit records, newest first.
func (s *PGStore) Recent(ctx context.Context, limit int) ([]ScanRecord, error) {
	rows, err := s.Pool.Query(ctx, `SELECT record FROM scan_history ORDER BY ts DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScanRecord
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var r ScanRecord
		if err := json.Unmarshal(body, &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (s *PGStore) Close() { s.Pool.Close() }
