package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// TestLogBuffer collects log output from concurrent goroutines for assertions.
type TestLogBuffer struct {
	mu   sync.Mutex
	data []byte
}

func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.mu.Unlock()
	return len(p), nil
}

func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}

// Entries decodes the JSON records written so far, oldest first.
func (b *TestLogBuffer) Entries() ([]map[string]any, error) {
	b.mu.Lock()
	dec := json.NewDecoder(bytes.NewReader(bytes.Clone(b.data)))
	b.mu.Unlock()

	entries := []map[string]any{}
	for {
		var entry map[string]any
		err := dec.Decode(&entry)
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

// NewTestLogger returns a JSON logger at debug level and the buffer it writes to.
func NewTestLogger() (*slog.Logger, *TestLogBuffer) {
	buf := &TestLogBuffer{}
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), buf
}
