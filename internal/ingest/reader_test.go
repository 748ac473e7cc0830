package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mgraessle/grist/pkg/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFileEnvelope(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "msg.json",
		`{"id": "sms-42", "text": "pour moved to friday", "type": "sms", "received_at": "2025-06-02T09:00:00Z"}`)

	msg, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "sms-42" || msg.CommunicationType != "sms" {
		t.Errorf("msg = %+v", msg)
	}
	if !msg.ReceivedAt.Equal(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("ReceivedAt = %v", msg.ReceivedAt)
	}
}

func TestReadFileEnvelopeDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "note-7.json", `{"text": "short note"}`)

	msg, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "note-7" {
		t.Errorf("ID = %q, want filename stem", msg.ID)
	}
	if msg.CommunicationType != types.CommunicationSMS {
		t.Errorf("type = %q, want inferred sms", msg.CommunicationType)
	}
	if msg.ReceivedAt.IsZero() {
		t.Error("ReceivedAt should fall back to the file mod time")
	}
}

func TestReadFileEnvelopeErrors(t *testing.T) {
	dir := t.TempDir()

	empty := writeFile(t, dir, "empty.json", `{"id": "x"}`)
	if _, err := ReadFile(empty); err == nil {
		t.Error("envelope without text must fail")
	}
	bad := writeFile(t, dir, "bad.json", `{not json`)
	if _, err := ReadFile(bad); err == nil {
		t.Error("invalid JSON must fail")
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("missing file must fail")
	}
}

func TestReadFileRawText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "site-note.txt", "  concrete truck arrives at 7am \n")

	msg, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Text != "concrete truck arrives at 7am" {
		t.Errorf("text not trimmed: %q", msg.Text)
	}
	if msg.ID != "site-note" {
		t.Errorf("ID = %q", msg.ID)
	}

	blank := writeFile(t, dir, "blank.txt", "   \n\t")
	if _, err := ReadFile(blank); err == nil {
		t.Error("blank text file must fail")
	}
}

func TestInferTypeBoundaries(t *testing.T) {
	cases := []struct {
		length int
		want   string
	}{
		{1, types.CommunicationSMS},
		{280, types.CommunicationSMS},
		{281, types.CommunicationEmail},
		{4000, types.CommunicationEmail},
		{4001, types.CommunicationDocument},
	}
	for _, tc := range cases {
		if got := InferType(strings.Repeat("a", tc.length)); got != tc.want {
			t.Errorf("InferType(len %d) = %q, want %q", tc.length, got, tc.want)
		}
	}
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "second message")
	writeFile(t, dir, "a.txt", "first message")
	writeFile(t, dir, "skip.dat", "wrong extension")
	writeFile(t, dir, ".hidden.txt", "hidden")
	writeFile(t, dir, "broken.json", "{oops")
	if err := os.Mkdir(filepath.Join(dir, "processed"), 0o755); err != nil {
		t.Fatal(err)
	}

	messages, errs := ReadDir(dir)
	if len(messages) != 2 {
		t.Fatalf("messages = %+v", messages)
	}
	if messages[0].ID != "a" || messages[1].ID != "b" {
		t.Errorf("order = %s, %s", messages[0].ID, messages[1].ID)
	}
	if len(errs) != 1 {
		t.Errorf("errs = %v, want the broken envelope only", errs)
	}
}

func TestReadDirMissing(t *testing.T) {
	_, errs := ReadDir(filepath.Join(t.TempDir(), "nope"))
	if len(errs) != 1 {
		t.Errorf("errs = %v", errs)
	}
}
