package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one logical request key and the number of concurrent tasks
// dispatched with it.
type Entry struct {
	Key    string
	Repeat int
}

type Workload struct {
	Entries []Entry
}

// NewWorkload builds keys distinct keys, each repeated repeat times. Keys
// are fresh UUIDs so a workload never collides with earlier runs against a
// long-lived store.
func NewWorkload(keys, repeat int) Workload {
	entries := make([]Entry, 0, keys)
	for i := 0; i < keys; i++ {
		entries = append(entries, Entry{Key: uuid.NewString(), Repeat: repeat})
	}
	return Workload{Entries: entries}
}

func (w Workload) Total() int {
	total := 0
	for _, e := range w.Entries {
		if e.Repeat > 0 {
			total += e.Repeat
		}
	}
	return total
}

func (w Workload) Keys() []string {
	keys := make([]string, 0, len(w.Entries))
	for _, e := range w.Entries {
		keys = append(keys, e.Key)
	}
	return keys
}

type Task struct {
	Key string
	Seq int
}

type Result struct {
	Task     Task
	Store    string
	Claimed  bool
	Err      error
	Duration time.Duration
	At       time.Time
}
