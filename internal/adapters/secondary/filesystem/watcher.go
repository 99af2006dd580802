package filesystem

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"diamond-price-service/internal/config"
	ports "diamond-price-service/internal/core/ports/output"
)

type watcher struct {
	fs   afero.Fs
	dir  string
	file string
}

// NewWatcher watches the registry directory for metadata replacements.
// The directory is watched rather than the file because every publication
// renames a new file over the old one. fsnotify only sees the real OS
// filesystem, so fs must be backed by it.
func NewWatcher(fs afero.Fs, cfg *config.RegistryConfig) ports.RegistryWatcher {
	name := cfg.MetadataFile
	if name == "" {
		name = "modelsettings.json"
	}
	return &watcher{fs: fs, dir: cfg.Dir, file: name}
}

// Watch calls onChange after the metadata file is created or written, until
// ctx is done. Events arriving while onChange runs collapse into one more
// call.
func (w *watcher) Watch(ctx context.Context, onChange func()) error {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	notify, stop := coalesce(ctx, onChange)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != w.file {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			log.WithField("event", ev.Op.String()).Debug("registry metadata changed")
			notify()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("registry watcher error")
		}
	}
}

// coalesce runs fn on a single goroutine. notify never blocks: while fn is
// running at most one further call is queued. stop waits for the goroutine
// to exit.
func coalesce(ctx context.Context, fn func()) (notify func(), stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	pending := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
				fn()
			}
		}
	}()

	notify = func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}
	stop = func() {
		cancel()
		<-done
	}
	return notify, stop
}
