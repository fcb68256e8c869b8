// Package watch processes documents dropped into an inbox directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/rezonia/docintel/internal/processor"
	"github.com/rezonia/docintel/internal/store"
)

// DefaultExts are the extensions picked up when Config.Exts is empty
var DefaultExts = []string{"pdf", "png", "jpg", "jpeg", "tif", "tiff", "txt", "xml"}

// Handler processes one settled file
type Handler func(ctx context.Context, path string) error

// Config holds watcher settings
type Config struct {
	Dir string
	// Exts are lowercase extensions without the dot
	Exts []string
	// Debounce is how long a file must stay quiet before it is handled
	Debounce time.Duration
	// InitialScan handles files already present at start
	InitialScan bool
}

// Watcher feeds new files in Dir to a Handler
type Watcher struct {
	cfg    Config
	exts   map[string]struct{}
	handle Handler
	log    zerolog.Logger
}

// New creates a watcher
func New(cfg Config, handle Handler, log zerolog.Logger) *Watcher {
	if len(cfg.Exts) == 0 {
		cfg.Exts = DefaultExts
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	exts := make(map[string]struct{}, len(cfg.Exts))
	for _, e := range cfg.Exts {
		exts[strings.TrimPrefix(strings.ToLower(e), ".")] = struct{}{}
	}
	return &Watcher{cfg: cfg, exts: exts, handle: handle, log: log}
}

// Run watches until ctx is cancelled. Files are handled one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	if w.cfg.Dir == "" {
		return errors.New("no inbox directory")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	w.log.Info().Str("dir", w.cfg.Dir).Msg("watching inbox")

	pending := make(map[string]time.Time)
	if w.cfg.InitialScan {
		existing, err := w.scan()
		if err != nil {
			return err
		}
		for _, p := range existing {
			w.run(ctx, p)
		}
	}

	tick := w.cfg.Debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 || !w.allowed(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Msg("watcher error")

		case now := <-ticker.C:
			var ready []string
			for p, seen := range pending {
				if now.Sub(seen) >= w.cfg.Debounce {
					ready = append(ready, p)
				}
			}
			sort.Strings(ready)
			for _, p := range ready {
				delete(pending, p)
				w.run(ctx, p)
			}
		}
	}
}

func (w *Watcher) run(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// renamed away or removed before it settled
		return
	}
	if err := w.handle(ctx, path); err != nil {
		w.log.Error().Str("path", path).Err(err).Msg("failed to process file")
	}
}

func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", w.cfg.Dir, err)
	}
	var out []string
	for _, e := range entries {
		p := filepath.Join(w.cfg.Dir, e.Name())
		if !e.IsDir() && w.allowed(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (w *Watcher) allowed(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	_, ok := w.exts[strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), ".")]
	return ok
}

// ProcessInto returns a Handler that runs files through p and saves the
// records in st. Failed extractions are saved too so they show up in listings.
func ProcessInto(p *processor.Pipeline, st store.Store, log zerolog.Logger) Handler {
	return func(ctx context.Context, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		result := p.ProcessDocument(ctx, filepath.Base(path), data)
		if result.Error != nil {
			log.Warn().Str("path", path).Err(result.Error).Msg("extraction failed")
		}

		rec := result.Record()
		if err := st.Save(ctx, rec); err != nil {
			return fmt.Errorf("save %s: %w", rec.Filename, err)
		}
		log.Info().Str("path", path).Str("id", rec.ID).Int("warnings", len(rec.Warnings)).Msg("document stored")
		return nil
	}
}
