package ingest

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// collector gathers callback deliveries across goroutines.
type collector struct {
	mu   sync.Mutex
	msgs []Message
}

func (c *collector) add(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	for i, m := range c.msgs {
		out[i] = m.ID
	}
	return out
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestInboxWatcherDrainsExisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "waiting.txt", "message queued before startup")

	c := &collector{}
	iw := NewInboxWatcher(dir, c.add)
	if err := iw.Start(); err != nil {
		t.Fatal(err)
	}
	defer iw.Stop()

	waitFor(t, 2*time.Second, func() bool { return len(c.ids()) == 1 })
	if c.ids()[0] != "waiting" {
		t.Errorf("ids = %v", c.ids())
	}

	// The file moved to processed/ so a restart will not re-extract it.
	if _, err := os.Stat(filepath.Join(dir, "processed", "waiting.txt")); err != nil {
		t.Errorf("processed file not moved aside: %v", err)
	}
}

func TestInboxWatcherPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	c := &collector{}
	iw := NewInboxWatcher(dir, c.add)
	if err := iw.Start(); err != nil {
		t.Fatal(err)
	}
	defer iw.Stop()

	writeFile(t, dir, "incoming.txt", "foundation inspection passed")
	waitFor(t, 3*time.Second, func() bool { return len(c.ids()) == 1 })
	if c.ids()[0] != "incoming" {
		t.Errorf("ids = %v", c.ids())
	}
}

func TestInboxWatcherIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	c := &collector{}
	iw := NewInboxWatcher(dir, c.add)
	if err := iw.Start(); err != nil {
		t.Fatal(err)
	}
	defer iw.Stop()

	writeFile(t, dir, "partial.tmp", "still uploading")
	writeFile(t, dir, "real.txt", "actual message")

	waitFor(t, 3*time.Second, func() bool { return len(c.ids()) == 1 })
	time.Sleep(200 * time.Millisecond)
	if ids := c.ids(); len(ids) != 1 || ids[0] != "real" {
		t.Errorf("ids = %v", ids)
	}
}
