package merge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mgraessle/grist/pkg/types"
)

func TestMemoryDecidedStore(t *testing.T) {
	s := NewMemoryDecidedStore()
	key := types.PairKey("b", "a")

	if s.Has(key) {
		t.Error("empty store reports a decision")
	}
	if err := s.Add(key, types.PairRejected); err != nil {
		t.Fatal(err)
	}
	if !s.Has(key) {
		t.Error("added decision not found")
	}
	if got := s.All()[key]; got != types.PairRejected {
		t.Errorf("state = %q", got)
	}
	if err := s.Remove(key); err != nil {
		t.Fatal(err)
	}
	if s.Has(key) {
		t.Error("removed decision still present")
	}
}

func TestFileDecidedStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decided.json")

	s, err := NewFileDecidedStore(path)
	if err != nil {
		t.Fatal(err)
	}
	key := types.PairKey("a", "b")
	if err := s.Add(key, types.PairAutoMerged); err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same file sees the decision.
	reopened, err := NewFileDecidedStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Has(key) {
		t.Error("decision lost across reopen")
	}
	if got := reopened.All()[key]; got != types.PairAutoMerged {
		t.Errorf("state = %q", got)
	}

	if err := reopened.Remove(key); err != nil {
		t.Fatal(err)
	}
	third, err := NewFileDecidedStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if third.Has(key) {
		t.Error("removal not persisted")
	}
}

func TestFileDecidedStoreConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decided.json")

	// Two handles over one file, both opened before either writes, like a
	// CLI invocation alongside a running daemon.
	first, err := NewFileDecidedStore(path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewFileDecidedStore(path)
	if err != nil {
		t.Fatal(err)
	}

	keyA := types.PairKey("a", "b")
	keyB := types.PairKey("c", "d")
	if err := first.Add(keyA, types.PairAutoMerged); err != nil {
		t.Fatal(err)
	}
	if err := second.Add(keyB, types.PairRejected); err != nil {
		t.Fatal(err)
	}

	// The second writer must not clobber the first's decision.
	reopened, err := NewFileDecidedStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.Has(keyA) {
		t.Error("second writer clobbered the first writer's decision")
	}
	if !reopened.Has(keyB) {
		t.Error("second writer's own decision missing")
	}

	// A removal through one handle is seen on the other's next write.
	if err := first.Remove(keyA); err != nil {
		t.Fatal(err)
	}
	if err := second.Add(types.PairKey("e", "f"), types.PairRejected); err != nil {
		t.Fatal(err)
	}
	final, err := NewFileDecidedStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if final.Has(keyA) {
		t.Error("removed decision resurrected by the other writer")
	}
}

func TestFileDecidedStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "decided.json")
	s, err := NewFileDecidedStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Add(types.PairKey("a", "b"), types.PairRejected); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not written: %v", err)
	}
}

func TestFileDecidedStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decided.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileDecidedStore(path); err == nil {
		t.Error("corrupt store file should fail loudly, not silently reset")
	}
}

func TestFileDecidedStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decided.json")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := NewFileDecidedStore(path)
	if err != nil {
		t.Fatalf("empty file should load as empty store: %v", err)
	}
	if len(s.All()) != 0 {
		t.Errorf("decisions = %v", s.All())
	}
}
