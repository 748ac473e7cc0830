package ingest

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// InboxWatcher watches a directory for new communication files and hands
// each to a callback. The daemon uses it to extract on arrival; processed
// files are moved aside so a restart never re-extracts them.
type InboxWatcher struct {
	dir      string
	doneDir  string
	callback func(Message)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewInboxWatcher creates a watcher over dir. Processed files move to
// dir/processed/.
func NewInboxWatcher(dir string, callback func(Message)) *InboxWatcher {
	return &InboxWatcher{
		dir:      dir,
		doneDir:  filepath.Join(dir, "processed"),
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start drains any files already waiting in the inbox, then begins watching
// for new ones. Call Stop to clean up.
func (iw *InboxWatcher) Start() error {
	if err := os.MkdirAll(iw.dir, 0o700); err != nil {
		return err
	}
	if err := os.MkdirAll(iw.doneDir, 0o700); err != nil {
		return err
	}

	iw.drainExisting()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(iw.dir); err != nil {
		_ = w.Close()
		return err
	}
	iw.watcher = w

	go iw.loop()
	log.Printf("ingest: watching %s for new communications", iw.dir)
	return nil
}

// Stop shuts down the watcher.
func (iw *InboxWatcher) Stop() {
	if iw.watcher != nil {
		_ = iw.watcher.Close()
	}
	<-iw.done
}

func (iw *InboxWatcher) loop() {
	defer close(iw.done)
	for {
		select {
		case evt, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Rename) != 0 && isMessageFile(filepath.Base(evt.Name)) {
				// Writers may still be flushing; give the file a beat
				// to finish before reading it.
				time.Sleep(100 * time.Millisecond)
				iw.processFile(evt.Name)
			}
		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ingest: watcher error: %v", err)
		}
	}
}

func (iw *InboxWatcher) drainExisting() {
	entries, err := os.ReadDir(iw.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && isMessageFile(entry.Name()) {
			iw.processFile(filepath.Join(iw.dir, entry.Name()))
		}
	}
}

func (iw *InboxWatcher) processFile(path string) {
	msg, err := ReadFile(path)
	if err != nil {
		log.Printf("ingest: skipping %s: %v", filepath.Base(path), err)
		return
	}

	if err := os.Rename(path, filepath.Join(iw.doneDir, filepath.Base(path))); err != nil {
		log.Printf("ingest: failed to move %s to processed: %v", filepath.Base(path), err)
	}

	if iw.callback != nil {
		iw.callback(msg)
	}
}
