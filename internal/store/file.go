package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/docintel/internal/model"
)

const recordExt = ".json"

// FileStore keeps one indented JSON file per document: <dir>/<filename>.json
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates dir if needed and returns a store over it
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store requires a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Path returns the JSON file backing filename
func (s *FileStore) Path(filename string) (string, error) {
	name, err := CleanFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+recordExt), nil
}

// Save implements Store
func (s *FileStore) Save(_ context.Context, rec *model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := CleanFilename(rec.Filename)
	if err != nil {
		return err
	}
	rec.Filename = name

	existing, err := s.read(name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	stamp(rec, existing, s.now())
	return s.write(rec)
}

// Get implements Store
func (s *FileStore) Get(_ context.Context, filename string) (*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := CleanFilename(filename)
	if err != nil {
		return nil, err
	}
	return s.read(name)
}

// SaveFields implements Store
func (s *FileStore) SaveFields(_ context.Context, filename string, fields *model.ExtractionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := CleanFilename(filename)
	if err != nil {
		return err
	}

	rec, err := s.read(name)
	switch {
	case errors.Is(err, ErrNotFound):
		rec = &model.Record{Filename: name}
	case err != nil:
		return err
	}

	existing := *rec
	rec.Fields = fields
	stamp(rec, &existing, s.now())
	return s.write(rec)
}

// List implements Store
func (s *FileStore) List(_ context.Context) ([]*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list store dir: %w", err)
	}

	var out []*model.Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) {
			continue
		}
		rec, err := s.read(strings.TrimSuffix(e.Name(), recordExt))
		if err != nil {
			// skip files that are not records
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// Close implements Store
func (s *FileStore) Close() error { return nil }

func (s *FileStore) read(name string) (*model.Record, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+recordExt))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var rec model.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", name, err)
	}
	return &rec, nil
}

func (s *FileStore) write(rec *model.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".record-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, rec.Filename+recordExt))
}

// stamp carries the identity of existing over to rec and updates timestamps
func stamp(rec, existing *model.Record, now time.Time) {
	now = now.UTC()
	if existing != nil && existing.ID != "" {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
}
