package driver

import (
	"sort"
	"time"

	"github.com/jdiitm/graphrag-architect/workers/submitguard/internal/domain"
)

// Report summarises one workload run. Claims counts the tasks per key that
// won the claim; every workload key is present, unclaimed keys with 0.
type Report struct {
	Store     string
	Total     int
	Completed int
	Claims    map[string]int
	Failures  []domain.Result
	Elapsed   time.Duration
}

func newReport(store string, w domain.Workload) *Report {
	claims := make(map[string]int, len(w.Entries))
	for _, e := range w.Entries {
		claims[e.Key] = 0
	}
	return &Report{Store: store, Total: w.Total(), Claims: claims}
}

func (r *Report) add(res domain.Result) {
	r.Completed++
	if res.Claimed {
		r.Claims[res.Task.Key]++
	}
	if res.Err != nil {
		r.Failures = append(r.Failures, res)
	}
}

func (r *Report) Incomplete() int {
	return r.Total - r.Completed
}

func (r *Report) ClaimTotal() int {
	total := 0
	for _, n := range r.Claims {
		total += n
	}
	return total
}

// Duplicates returns the keys claimed by more than one task.
func (r *Report) Duplicates() map[string]int {
	dups := make(map[string]int)
	for k, n := range r.Claims {
		if n > 1 {
			dups[k] = n
		}
	}
	return dups
}

func (r *Report) Unclaimed() []string {
	var keys []string
	for k, n := range r.Claims {
		if n == 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
