package metrics

type PipelineObserver interface {
	RecordClaim(store, outcome string)
	RecordAction(store, outcome string)
	RecordTaskDuration(seconds float64)
	RecordRun(store string, total, completed int, seconds float64)
	RecordDLQSinkError()
}

const (
	OutcomeClaimed   = "claimed"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
)

type NoopObserver struct{}

func (NoopObserver) RecordClaim(_, _ string)                 {}
func (NoopObserver) RecordAction(_, _ string)                {}
func (NoopObserver) RecordTaskDuration(_ float64)            {}
func (NoopObserver) RecordRun(_ string, _, _ int, _ float64) {}
func (NoopObserver) RecordDLQSinkError()                     {}

var (
	_ PipelineObserver = (*Metrics)(nil)
	_ PipelineObserver = NoopObserver{}
)
