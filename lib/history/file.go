package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/fiffu/bonuswatch/lib/models"
	"go.uber.org/zap"
)

// Layouts accepted for notified_at, tried after RFC 3339. Zone-less values are read as local time.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// FileStore keeps the history as a JSON array of {"bonus_id", "notified_at"} records.
// A missing or empty file is an empty history.
type FileStore struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

func NewFileStore(path string, log *zap.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) List(ctx context.Context) (models.BonusNotifications, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Append adds n and rewrites the whole file.
func (s *FileStore) Append(ctx context.Context, n models.BonusNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return err
	}
	list = append(list, n)

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	err = retry.Do(
		func() error { return s.write(data) },
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			s.log.Sugar().Infow("Retrying history write", "attempt", attempt, "path", s.path, "err", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("save history after retries: %w", err)
	}
	return nil
}

type fileRecord struct {
	BonusID    *int   `json:"bonus_id"`
	NotifiedAt string `json:"notified_at"`
}

func (s *FileStore) load() (models.BonusNotifications, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.BonusNotifications{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.BonusNotifications{}, nil
	}

	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", s.path, err)
	}

	list := make(models.BonusNotifications, 0, len(records))
	for i, r := range records {
		if r.BonusID == nil {
			return nil, fmt.Errorf("decode history %s: record #%d has no bonus_id", s.path, i)
		}
		at, err := parseNotifiedAt(r.NotifiedAt)
		if err != nil {
			return nil, fmt.Errorf("decode history %s: record #%d: %w", s.path, i, err)
		}
		list = append(list, models.BonusNotification{BonusID: *r.BonusID, NotifiedAt: at})
	}
	return list, nil
}

// write replaces the file atomically through a temporary file in the same directory.
func (s *FileStore) write(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

func parseNotifiedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid notified_at %q", s)
}
