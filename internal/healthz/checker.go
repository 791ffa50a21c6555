package healthz

import (
	"encoding/json"
	"net/http"
	"time"
)

// RunReporter exposes when the last workload run finished.
type RunReporter interface {
	LastRunTime() time.Time
}

// Checker answers liveness probes while workload runs keep finishing.
type Checker struct {
	reporter RunReporter
	maxAge   time.Duration
}

type Option func(*Checker)

func WithMaxAge(d time.Duration) Option {
	return func(c *Checker) {
		c.maxAge = d
	}
}

func NewChecker(reporter RunReporter, opts ...Option) *Checker {
	c := &Checker{
		reporter: reporter,
		maxAge:   time.Minute,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type status struct {
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
	SinceLastRun string `json:"since_last_run,omitempty"`
}

func (c *Checker) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	last := c.reporter.LastRunTime()
	if last.IsZero() {
		respond(w, http.StatusServiceUnavailable, status{Status: "starting", Reason: "no workload run finished yet"})
		return
	}

	age := time.Since(last)
	st := status{Status: "ok", SinceLastRun: age.Round(time.Millisecond).String()}
	code := http.StatusOK
	if age > c.maxAge {
		st.Status = "stale"
		st.Reason = "last workload run is older than " + c.maxAge.String()
		code = http.StatusServiceUnavailable
	}
	respond(w, code, st)
}

func respond(w http.ResponseWriter, code int, st status) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(st)
}
