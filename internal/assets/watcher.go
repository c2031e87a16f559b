package assets

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/bus"
	"github.com/reggie-martin-labs/AI-Pumpkin/internal/metrics"
)

// reloadDelay coalesces the burst of events an editor emits on save.
const reloadDelay = 250 * time.Millisecond

// Watcher reloads the Store when files in the assets directory change.
type Watcher struct {
	dir     string
	store   *Store
	watcher *fsnotify.Watcher
	clock   clockwork.Clock
	events  bus.Publisher
	log     zerolog.Logger

	mu      sync.Mutex
	pending clockwork.Timer
	done    chan struct{}
}

// NewWatcher starts watching dir.
func NewWatcher(dir string, store *Store, clock clockwork.Clock, events bus.Publisher, log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	if events == nil {
		events = bus.Discard{}
	}

	w := &Watcher{
		dir:     dir,
		store:   store,
		watcher: fw,
		clock:   clock,
		events:  events,
		log:     log,
		done:    make(chan struct{}),
	}
	go w.watchLoop()
	return w, nil
}

func relevant(name string) bool {
	base := filepath.Base(name)
	return base == MetaFile || strings.EqualFold(filepath.Ext(base), ".png")
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if relevant(event.Name) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("asset watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = w.clock.AfterFunc(reloadDelay, w.Reload)
}

// Reload loads the directory again and swaps the Store's Set.
func (w *Watcher) Reload() {
	set, err := Load(w.dir)
	if err != nil {
		w.log.Warn().Err(err).Msg("asset reload incomplete")
		metrics.AssetReloads.WithLabelValues("partial").Inc()
	} else {
		metrics.AssetReloads.WithLabelValues("ok").Inc()
	}
	w.store.Replace(set)

	w.log.Info().Int("mouths", len(set.Mouths)).Bool("head", set.Head != nil).Msg("assets reloaded")
	w.events.Publish(bus.Event{
		Type: bus.EventAssetsReloaded,
		Data: map[string]any{"mouths": set.Catalog(), "head": set.Head != nil},
	})
}

// Close stops the watcher
func (w *Watcher) Close() error {
	close(w.done)
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
