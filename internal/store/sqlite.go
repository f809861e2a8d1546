package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/seller-scout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS searches (
	id           TEXT PRIMARY KEY,
	term         TEXT NOT NULL,
	region       TEXT NOT NULL,
	status       TEXT NOT NULL,
	result_count INTEGER NOT NULL DEFAULT 0,
	params       TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_searches_created_at ON searches(created_at);
CREATE INDEX IF NOT EXISTS idx_searches_term_region ON searches(term, region);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordSearch(ctx context.Context, rec model.SearchRecord) error {
	rec = prepareRecord(rec)
	params, err := marshalParams(rec.Params)
	if err != nil {
		return err
	}

	var paramsText sql.NullString
	if params != nil {
		paramsText = sql.NullString{String: string(params), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO searches (id, term, region, status, result_count, params, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Term, rec.Region, string(rec.Status), rec.ResultCount, paramsText, rec.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert search")
}

func (s *SQLiteStore) ListSearches(ctx context.Context, filter SearchFilter) ([]model.SearchRecord, error) {
	query := `SELECT id, term, region, status, result_count, params, created_at FROM searches WHERE 1=1`
	var args []any

	if filter.Term != "" {
		query += ` AND term = ?`
		args = append(args, filter.Term)
	}
	if filter.Region != "" {
		query += ` AND region = ?`
		args = append(args, filter.Region)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close()

	var out []model.SearchRecord
	for rows.Next() {
		var (
			rec    model.SearchRecord
			params sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Term, &rec.Region, &rec.Status, &rec.ResultCount, &params, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan search")
		}
		if params.Valid {
			if rec.Params, err = unmarshalParams([]byte(params.String)); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list searches iterate")
}

// prepareRecord fills the id and timestamp when the caller left them empty.
func prepareRecord(rec model.SearchRecord) model.SearchRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec
}

func marshalParams(params map[string]any) ([]byte, error) {
	if len(params) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal params")
	}
	return b, nil
}

func unmarshalParams(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var params map[string]any
	if err := json.Unmarshal(b, &params); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal params")
	}
	return params, nil
}
