package filesync

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rjeczalik/notify"

	"retro-sync/internal/util"
)

// saveWatcher turns filesystem write events under the cache root into save
// events for the manager. Uploads run on the watcher goroutine; the manager's
// upload guard keeps overlapping saves of one path from stacking.
type saveWatcher struct {
	manager   *Manager
	watchChan chan notify.EventInfo
	done      chan struct{}
	stopped   chan struct{}
}

func newSaveWatcher(m *Manager) (*saveWatcher, error) {
	w := &saveWatcher{
		manager:   m,
		watchChan: make(chan notify.EventInfo, 100),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	watchPattern := filepath.Join(m.cacheRoot, "...")
	if err := notify.Watch(watchPattern, w.watchChan, notify.Write, notify.Create); err != nil {
		return nil, fmt.Errorf("failed to watch cache root: %v", err)
	}

	go w.loop()
	util.Default.Printf("🔍 Watching cache root for saves: %s\n", m.cacheRoot)
	return w, nil
}

func (w *saveWatcher) loop() {
	defer close(w.stopped)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watchChan:
			if !ok {
				return
			}
			// errors are already reported by HandleSave; the loop
			// keeps running regardless
			_ = w.manager.HandleSave(context.Background(), ev.Path())
		}
	}
}

func (w *saveWatcher) stop() {
	notify.Stop(w.watchChan)
	close(w.done)
	<-w.stopped
}
