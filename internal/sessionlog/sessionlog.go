package sessionlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// IST is the exchange time zone; journal files roll over at IST midnight.
var IST = time.FixedZone("IST", 19800)

// Entry is one session lifecycle event. Tokens are never recorded.
type Entry struct {
	Time        string `json:"time"`
	Event       string `json:"event"`
	UserID      string `json:"user_id,omitempty"`
	Environment string `json:"environment,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Journal appends session events to one JSON-lines file per day.
type Journal struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// New returns a journal writing under dir. An empty dir uses
// BREEZE_SESSION_LOG_DIR, then "logs/sessions".
func New(dir string) *Journal {
	if dir == "" {
		dir = os.Getenv("BREEZE_SESSION_LOG_DIR")
	}
	if dir == "" {
		dir = filepath.Join("logs", "sessions")
	}
	return &Journal{dir: dir, now: time.Now}
}

func (j *Journal) Dir() string {
	return j.dir
}

func (j *Journal) dailyFilepath(t time.Time) string {
	return filepath.Join(j.dir, t.In(IST).Format("2006-01-02")+".txt")
}

func (j *Journal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().In(IST)
	e.Time = now.Format("2006-01-02 15:04:05")
	p := j.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files last modified more than retentionDays
// ago. retentionDays <= 0 disables compression.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		return compress(p)
	})
}

func compress(p string) error {
	gz := p + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return os.Remove(p)
	}

	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if copyErr != nil {
		_ = os.Remove(gz)
		return copyErr
	}
	if closeErr != nil {
		_ = os.Remove(gz)
		return closeErr
	}
	return os.Remove(p)
}
