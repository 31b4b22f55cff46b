package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// SyncRecord captures one completed market sync for audit and analysis.
type SyncRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Sequence  int            `json:"sequence"`
	Provider  string         `json:"provider"`
	Sort      string         `json:"sort"`
	Forced    bool           `json:"forced"`
	Pages     int            `json:"pages"`
	Assets    int            `json:"assets"`
	Degraded  []int          `json:"degraded_pages,omitempty"`
	Duration  time.Duration  `json:"duration_ns"`
	Success   bool           `json:"success"`
	ErrorMsg  string         `json:"error_message,omitempty"`
	TopAssets []string       `json:"top_assets,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Writer persists sync records to a directory as JSON files (journal style).
type Writer struct {
	mu    sync.Mutex
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// Dir returns the journal directory.
func (w *Writer) Dir() string { return w.dir }

// WriteSync writes a sync record to a timestamped JSON file.
func (w *Writer) WriteSync(rec *SyncRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.Sequence = w.seq
	name := fmt.Sprintf("sync_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ReadRecent returns up to limit records from dir, newest first. Unreadable
// files are skipped.
func ReadRecent(dir string, limit int) ([]SyncRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "sync_") || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	slices.Reverse(names)

	var out []SyncRecord
	for _, name := range names {
		if limit > 0 && len(out) >= limit {
			break
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		var rec SyncRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
