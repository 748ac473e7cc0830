package notify

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventWatcher consumes event files from the shared events directory and
// hands each decoded Event to a callback. Consuming is destructive: the
// file is removed before dispatch, so exactly one watcher sees each event
// even when a CLI session and the daemon both listen.
type EventWatcher struct {
	dir      string
	callback func(Event)
	fsw      *fsnotify.Watcher
	done     chan struct{}
}

// NewEventWatcher creates a watcher over {dataPath}/events/.
func NewEventWatcher(dataPath string, callback func(Event)) *EventWatcher {
	return &EventWatcher{
		dir:      filepath.Join(dataPath, "events"),
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start consumes events already waiting in the directory, then follows new
// arrivals until Stop is called.
func (ew *EventWatcher) Start() error {
	if err := os.MkdirAll(ew.dir, 0o700); err != nil {
		return err
	}

	// Events written while nobody was listening are still owed a dispatch.
	if entries, err := os.ReadDir(ew.dir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && isEventFile(entry.Name()) {
				ew.consume(filepath.Join(ew.dir, entry.Name()))
			}
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(ew.dir); err != nil {
		_ = fsw.Close()
		return err
	}
	ew.fsw = fsw

	go ew.follow()
	log.Printf("notify: watching %s for events", ew.dir)
	return nil
}

// Stop shuts down the watcher and waits for the dispatch loop to exit.
func (ew *EventWatcher) Stop() {
	if ew.fsw != nil {
		_ = ew.fsw.Close()
	}
	<-ew.done
}

func (ew *EventWatcher) follow() {
	defer close(ew.done)
	for {
		select {
		case fe, ok := <-ew.fsw.Events:
			if !ok {
				return
			}
			if fe.Op&fsnotify.Create != 0 && isEventFile(filepath.Base(fe.Name)) {
				ew.consume(fe.Name)
			}
		case err, ok := <-ew.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

// consume claims one event file. A read failure means another process got
// there first; that is the intended race, not an error.
func (ew *EventWatcher) consume(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = os.Remove(path)

	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		log.Printf("notify: discarding malformed event %s: %v", filepath.Base(path), err)
		return
	}
	if event.Type == "" || ew.callback == nil {
		return
	}
	ew.callback(event)
}

func isEventFile(name string) bool {
	return strings.HasSuffix(name, ".event")
}
