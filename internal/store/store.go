// Package store persists processed document records keyed by filename.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rezonia/docintel/internal/model"
)

// ErrNotFound is returned when no record exists for a filename
var ErrNotFound = errors.New("record not found")

// Store persists document records
type Store interface {
	// Save inserts or replaces the record for rec.Filename. The ID and
	// creation time of an existing record are kept.
	Save(ctx context.Context, rec *model.Record) error
	Get(ctx context.Context, filename string) (*model.Record, error)
	// SaveFields replaces only the extracted fields, creating a bare record
	// when none exists.
	SaveFields(ctx context.Context, filename string, fields *model.ExtractionResult) error
	List(ctx context.Context) ([]*model.Record, error)
	Close() error
}

// Kind names a store backend
type Kind string

const (
	KindFile     Kind = "file"
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// Config selects and configures a backend
type Config struct {
	Kind Kind
	// Dir is the FileStore directory and the default SQLite location
	Dir string
	// DSN is the SQLite path or Postgres connection string
	DSN string
}

// Open creates the store described by cfg
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Kind {
	case KindFile, "":
		return NewFileStore(cfg.Dir)
	case KindSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.Dir, "docintel.db")
		}
		return OpenSQLite(ctx, dsn)
	case KindPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres store requires a DSN")
		}
		return OpenPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

// CleanFilename reduces an upload name to a safe base name
func CleanFilename(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", model.NewValidationError("filename", name, "required", "filename is required")
	}
	return base, nil
}
