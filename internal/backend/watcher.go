// Package backend keeps the HUD in step with the observed window's menu.
package backend

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/atomicstack/menu-hud/internal/logging"
	"github.com/atomicstack/menu-hud/internal/logging/events"
	"github.com/atomicstack/menu-hud/internal/menu"
)

// DefaultInterval is the polling period used when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Source is the menu state polled by the watcher.
type Source interface {
	Refresh(ctx context.Context) error
	Stale() bool
	Items() []menu.Item
	Accels() map[menu.ActionID]string
}

// Event carries a changed menu snapshot.
type Event struct {
	Items  []menu.Item
	Accels map[menu.ActionID]string
	Err    error
}

// Watcher polls a Source and publishes an Event whenever its items change.
// Change signals patch the source in place; a source that reports itself
// stale is refreshed first, at most once per refresh interval.
type Watcher struct {
	source   Source
	interval time.Duration
	refresh  *throttle

	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	wg     sync.WaitGroup

	lastItems  []menu.Item
	lastAccels map[menu.ActionID]string
}

// NewWatcher starts polling source every interval.
func NewWatcher(source Source, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		source:     source,
		interval:   interval,
		refresh:    newThrottle(4 * interval),
		ctx:        ctx,
		cancel:     cancel,
		events:     make(chan Event, 4),
		lastItems:  source.Items(),
		lastAccels: source.Accels(),
	}

	w.wg.Add(1)
	go w.poll()

	go func() {
		w.wg.Wait()
		close(w.events)
	}()

	return w
}

// Events returns the channel of menu changes. It is closed after Stop once
// polling has ended.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop cancels the watcher.
func (w *Watcher) Stop() {
	w.cancel()
}

// Wait blocks until polling has ended and the events channel is closed.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) poll() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			evt, changed := w.check()
			if !changed {
				continue
			}
			select {
			case <-w.ctx.Done():
				return
			case w.events <- evt:
			}
		}
	}
}

func (w *Watcher) check() (Event, bool) {
	var err error
	if w.source.Stale() && w.refresh.wait(w.ctx) {
		err = w.source.Refresh(w.ctx)
		events.Watcher.Refresh(err)
		if err != nil {
			logging.Error(err)
		}
	}
	items := w.source.Items()
	accels := w.source.Accels()
	if err == nil && reflect.DeepEqual(items, w.lastItems) && reflect.DeepEqual(accels, w.lastAccels) {
		return Event{}, false
	}
	w.lastItems = items
	w.lastAccels = accels
	events.Watcher.Changed(len(items))
	return Event{Items: items, Accels: accels, Err: err}, true
}
