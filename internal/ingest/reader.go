// Package ingest reads communication files from disk into Message values
// for the batch extractor and the daemon's inbox watcher.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mgraessle/grist/pkg/types"
)

// Message is one communication read from disk.
type Message struct {
	ID                string    `json:"id"`
	Text              string    `json:"text"`
	CommunicationType string    `json:"communication_type"`
	ReceivedAt        time.Time `json:"received_at"`
	Path              string    `json:"path,omitempty"`
}

// envelope is the JSON message format: an exported conversation with an
// explicit channel and receive time.
type envelope struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Type       string `json:"type"`
	ReceivedAt string `json:"received_at"`
}

// ReadFile loads one communication file. The extension picks the decoding:
// .json is parsed as a message envelope, .md and .txt are raw text with the
// communication type inferred from size and the file's modification time
// used as the receive time.
func ReadFile(path string) (Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Message{}, fmt.Errorf("ingest: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeEnvelope(path, data)
	default:
		return decodeText(path, data)
	}
}

func decodeEnvelope(path string, data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("ingest: %s is not a valid message envelope: %w", path, err)
	}
	if env.Text == "" {
		return Message{}, fmt.Errorf("ingest: %s has no text", path)
	}

	msg := Message{
		ID:                env.ID,
		Text:              env.Text,
		CommunicationType: env.Type,
		Path:              path,
	}
	if msg.ID == "" {
		msg.ID = messageID(path)
	}
	if msg.CommunicationType == "" {
		msg.CommunicationType = InferType(env.Text)
	}
	if env.ReceivedAt != "" {
		if t, err := time.Parse(time.RFC3339, env.ReceivedAt); err == nil {
			msg.ReceivedAt = t
		}
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = fileModTime(path)
	}
	return msg, nil
}

func decodeText(path string, data []byte) (Message, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Message{}, fmt.Errorf("ingest: %s is empty", path)
	}
	return Message{
		ID:                messageID(path),
		Text:              text,
		CommunicationType: InferType(text),
		ReceivedAt:        fileModTime(path),
		Path:              path,
	}, nil
}

// ReadDir loads every readable communication file in a directory, sorted by
// file name. Unreadable or empty files are skipped, not fatal.
func ReadDir(dir string) ([]Message, []error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, []error{fmt.Errorf("ingest: read dir %s: %w", dir, err)}
	}

	var messages []Message
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !isMessageFile(entry.Name()) {
			continue
		}
		msg, err := ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].Path < messages[j].Path })
	return messages, errs
}

func isMessageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".json":
		return !strings.HasPrefix(name, ".")
	}
	return false
}

// InferType guesses the channel from length: short texts read like SMS,
// mid-sized like email, and anything longer is a document.
func InferType(text string) string {
	switch {
	case len(text) <= 280:
		return types.CommunicationSMS
	case len(text) <= 4000:
		return types.CommunicationEmail
	default:
		return types.CommunicationDocument
	}
}

func messageID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileModTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Now()
	}
	return info.ModTime()
}
