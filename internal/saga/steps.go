package saga

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/client"
	"github.com/prudhivi99/Distributed-Systems/stockflow/internal/metrics"
)

type Step string

const (
	StepCheck   Step = "check"
	StepReserve Step = "reserve"
	StepPersist Step = "persist"
	StepRelease Step = "release"
)

// StepRecord is the typed outcome of one saga step.
type StepRecord struct {
	Step       Step
	Outcome    client.Outcome
	StatusCode int
	Err        error
}

// Execution is the trail of one CreateOrder or CancelOrder attempt.
type Execution struct {
	ID    string
	Steps []StepRecord
}

func newExecution() *Execution {
	return &Execution{ID: uuid.NewString()}
}

// Last returns the most recent step, if any.
func (e *Execution) Last() (StepRecord, bool) {
	if len(e.Steps) == 0 {
		return StepRecord{}, false
	}
	return e.Steps[len(e.Steps)-1], true
}

func (e *Execution) record(logger *zap.Logger, step Step, res client.Result) {
	rec := StepRecord{Step: step, Outcome: res.Outcome, StatusCode: res.StatusCode, Err: res.Err}
	e.Steps = append(e.Steps, rec)
	metrics.SagaSteps.WithLabelValues(string(step), string(res.Outcome)).Inc()

	fields := []zap.Field{
		zap.String("saga_id", e.ID),
		zap.String("step", string(step)),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("status", res.StatusCode),
	}
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	logger.Info("saga step", fields...)
}
