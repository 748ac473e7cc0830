package merge

import (
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mgraessle/grist/pkg/types"
)

func TestMemoryHistoryAppendAndGet(t *testing.T) {
	h := NewMemoryHistory()
	rec := types.MergeRecord{ID: ulid.Make().String(), Type: types.MergeTypeAuto}

	if err := h.Append(rec); err != nil {
		t.Fatal(err)
	}
	if err := h.Append(rec); err == nil {
		t.Error("duplicate ID must fail")
	}
	if err := h.Append(types.MergeRecord{}); err == nil {
		t.Error("record without ID must fail")
	}

	got, err := h.Get(rec.ID)
	if err != nil || got.Type != types.MergeTypeAuto {
		t.Errorf("Get = %+v, %v", got, err)
	}
	if _, err := h.Get("missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("missing id = %v", err)
	}
}

func TestMemoryHistoryListChronological(t *testing.T) {
	h := NewMemoryHistory()
	// ULIDs sort by creation time; append out of order.
	first := ulid.Make().String()
	time.Sleep(2 * time.Millisecond)
	second := ulid.Make().String()

	if err := h.Append(types.MergeRecord{ID: second}); err != nil {
		t.Fatal(err)
	}
	if err := h.Append(types.MergeRecord{ID: first}); err != nil {
		t.Fatal(err)
	}

	records, err := h.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].ID != first || records[1].ID != second {
		t.Errorf("list order = %v", []string{records[0].ID, records[1].ID})
	}
}

func TestMemoryHistoryMarkUndone(t *testing.T) {
	h := NewMemoryHistory()
	id := ulid.Make().String()
	if err := h.Append(types.MergeRecord{ID: id}); err != nil {
		t.Fatal(err)
	}

	at := time.Now()
	rec, err := h.MarkUndone(id, at)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Undone || rec.UndoneAt == nil || !rec.UndoneAt.Equal(at) {
		t.Errorf("record = %+v", rec)
	}

	if _, err := h.MarkUndone(id, time.Now()); !errors.Is(err, ErrAlreadyUndone) {
		t.Errorf("second undo = %v", err)
	}
	if _, err := h.MarkUndone("missing", time.Now()); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("missing id = %v", err)
	}
}
