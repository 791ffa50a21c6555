package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/domain"
)

type FileSinkRecord struct {
	Store      string    `json:"store"`
	Key        string    `json:"key"`
	Seq        int       `json:"seq"`
	Claimed    bool      `json:"claimed"`
	Error      string    `json:"error"`
	DurationMS float64   `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
	WrittenAt  time.Time `json:"written_at"`
}

func NewFileSinkRecord(result domain.Result) FileSinkRecord {
	record := FileSinkRecord{
		Store:      result.Store,
		Key:        result.Task.Key,
		Seq:        result.Task.Seq,
		Claimed:    result.Claimed,
		DurationMS: float64(result.Duration) / float64(time.Millisecond),
		StartedAt:  result.At,
		WrittenAt:  time.Now().UTC(),
	}
	if result.Err != nil {
		record.Error = result.Err.Error()
	}
	return record
}

// FileSink appends one JSON line per failed task.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) (*FileSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create dlq directory: %w", err)
	}
	return &FileSink{path: path}, nil
}

func (f *FileSink) Send(_ context.Context, result domain.Result) error {
	data, err := json.Marshal(NewFileSinkRecord(result))
	if err != nil {
		return fmt.Errorf("marshal dlq record: %w", err)
	}
	data = append(data, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open dlq file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("write dlq record: %w", err)
	}
	return nil
}
