package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// JSONLWriter appends one JSON object per line. Appends are serialized so
// records from concurrent workers never interleave.
type JSONLWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// OpenJSONL opens path for appending, truncating it first when truncate is set.
func OpenJSONL(path string, truncate bool) (*JSONLWriter, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if truncate {
		flags |= os.O_TRUNC
	}
	// #nosec G304 -- callers resolve path through Store.Path.
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	return &JSONLWriter{path: path, file: f, enc: enc}, nil
}

// Path returns the file being written.
func (w *JSONLWriter) Path() string {
	return w.path
}

// Append writes record followed by a newline.
func (w *JSONLWriter) Append(record any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return fmt.Errorf("append to closed writer %s", w.path)
	}
	if err := w.enc.Encode(record); err != nil {
		return fmt.Errorf("append to %s: %w", w.path, err)
	}
	return nil
}

// Close flushes and closes the file. Further appends fail.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	if err != nil {
		return fmt.Errorf("close %s: %w", w.path, err)
	}
	return nil
}
