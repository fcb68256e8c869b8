package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/rezonia/docintel/internal/model"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL UNIQUE,
	data       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLStore keeps records as JSON documents in a SQL table. It runs on
// SQLite (modernc.org/sqlite) and Postgres (pgx).
type SQLStore struct {
	db       *sql.DB
	pool     *pgxpool.Pool
	postgres bool
	now      func() time.Time
}

// OpenSQLite opens or creates a SQLite database at path
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	return newSQLStore(ctx, db, nil, false)
}

// OpenPostgres connects to Postgres through a pgx pool
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "docintel"

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return newSQLStore(ctx, stdlib.OpenDBFromPool(pool), pool, true)
}

func newSQLStore(ctx context.Context, db *sql.DB, pool *pgxpool.Pool, postgres bool) (*SQLStore, error) {
	s := &SQLStore{db: db, pool: pool, postgres: postgres, now: time.Now}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		s.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

// Save implements Store
func (s *SQLStore) Save(ctx context.Context, rec *model.Record) error {
	name, err := CleanFilename(rec.Filename)
	if err != nil {
		return err
	}
	rec.Filename = name

	return s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.get(ctx, tx, name)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		stamp(rec, existing, s.now())
		return s.upsert(ctx, tx, rec)
	})
}

// Get implements Store
func (s *SQLStore) Get(ctx context.Context, filename string) (*model.Record, error) {
	name, err := CleanFilename(filename)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.db, name)
}

// SaveFields implements Store
func (s *SQLStore) SaveFields(ctx context.Context, filename string, fields *model.ExtractionResult) error {
	name, err := CleanFilename(filename)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		rec, err := s.get(ctx, tx, name)
		switch {
		case errors.Is(err, ErrNotFound):
			rec = &model.Record{Filename: name}
		case err != nil:
			return err
		}

		existing := *rec
		rec.Fields = fields
		stamp(rec, &existing, s.now())
		return s.upsert(ctx, tx, rec)
	})
}

// List implements Store
func (s *SQLStore) List(ctx context.Context) ([]*model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM documents ORDER BY filename`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*model.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close implements Store
func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLStore) get(ctx context.Context, q querier, name string) (*model.Record, error) {
	var data string
	err := q.QueryRowContext(ctx, s.rebind(`SELECT data FROM documents WHERE filename = ?`), name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return decodeRecord(data)
}

func (s *SQLStore) upsert(ctx context.Context, tx *sql.Tx, rec *model.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	query := s.rebind(`INSERT INTO documents (id, filename, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (filename) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`)
	_, err = tx.ExecContext(ctx, query,
		rec.ID,
		rec.Filename,
		string(data),
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// rebind rewrites ? placeholders to $n for Postgres
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func decodeRecord(data string) (*model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}
