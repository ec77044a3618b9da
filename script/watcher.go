package script

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rhsrobot/logging"
)

// DefaultSettle is how long a script file must stay quiet before a change is reported.
const DefaultSettle = 250 * time.Millisecond

// Watcher reports changes to a script file. Editors often replace files instead of writing
// them, so the containing directory is watched and events are filtered by name.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce func(func())
	onChange func()
	logger   logging.Logger
}

// NewWatcher watches path and calls onChange once writes have settled.
func NewWatcher(path string, settle time.Duration, onChange func(), logger logging.Logger) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create file watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "cannot watch %s", filepath.Dir(abs)), fw.Close())
	}
	return &Watcher{
		path:     abs,
		watcher:  fw,
		debounce: debounce.New(settle),
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Run delivers change notifications until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.logger.Debugw("error closing file watcher", "error", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debugw("script changed", "path", w.path, "op", ev.Op.String())
			w.debounce(w.onChange)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("file watcher error", "path", w.path, "error", err)
		}
	}
}
