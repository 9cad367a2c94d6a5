package ready

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lttle-cloud/ignition/internal/logging"
)

// StartPolicy decides when a worker may start.
type StartPolicy int

const (
	// StartAfterRecovery defers the worker until the gate opens.
	StartAfterRecovery StartPolicy = iota
	// StartImmediately runs the worker as soon as the runner starts.
	StartImmediately
)

// RestartPolicy decides what happens after a worker exits. The flash
// integration only ever uses NeverRestart.
type RestartPolicy int

// NeverRestart runs a worker exactly once per process lifetime.
const NeverRestart RestartPolicy = iota

// State is a worker's terminal or in-flight status.
type State string

const (
	StateUnstarted State = "unstarted"
	StateWaiting   State = "waiting"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateSkipped   State = "skipped"
	StateFailed    State = "failed"
)

// ErrSkipped marks a worker run that ended without doing its job but
// without failing either, e.g. the control device was absent.
var ErrSkipped = errors.New("worker skipped")

// Worker is a one-shot unit of work the runner schedules.
type Worker struct {
	Name          string
	StartPolicy   StartPolicy
	RestartPolicy RestartPolicy
	Run           func(ctx context.Context) error
}

// WorkerStatus is a point-in-time view of a registered worker.
type WorkerStatus struct {
	Name   string
	State  State
	Detail string
}

type registered struct {
	worker Worker
	state  State
	detail string
}

// Runner schedules registered workers once the gate opens. Stopping
// the runner cancels the gate wait and any running workers.
type Runner struct {
	gate   Gate
	logger *slog.Logger

	mu      sync.Mutex
	workers []*registered
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner builds a runner. A nil gate behaves like ImmediateGate.
func NewRunner(gate Gate, logger *slog.Logger) *Runner {
	if gate == nil {
		gate = ImmediateGate{}
	}
	return &Runner{gate: gate, logger: logging.NewComponentLogger(logger, "ready-runner")}
}

// Register adds a worker. Registration after Start is ignored.
func (r *Runner) Register(worker Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.workers = append(r.workers, &registered{worker: worker, state: StateUnstarted})
}

// Start launches the workers per their start policy. It returns
// immediately; worker completion is observable through Statuses.
// A second Start is a no-op: workers run at most once per process.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	workers := append([]*registered(nil), r.workers...)
	r.mu.Unlock()

	var immediate, gated []*registered
	for _, reg := range workers {
		if reg.worker.StartPolicy == StartImmediately {
			immediate = append(immediate, reg)
		} else {
			gated = append(gated, reg)
			r.setState(reg, StateWaiting, "")
		}
	}

	for _, reg := range immediate {
		r.launch(runCtx, reg)
	}

	if len(gated) == 0 {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.gate.WaitReady(runCtx); err != nil {
			for _, reg := range gated {
				r.setState(reg, StateSkipped, "recovery gate: "+err.Error())
			}
			r.logger.Warn("recovery gate did not open",
				logging.Error(err),
				logging.String(logging.FieldEventType, "recovery_gate_failed"),
				logging.String(logging.FieldImpact, "after-recovery workers skipped"),
				logging.String(logging.FieldErrorHint, "check database.dsn and that the database is reachable"))
			return
		}
		for _, reg := range gated {
			r.launch(runCtx, reg)
		}
	}()
}

// Stop cancels the gate wait and waits for running workers to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Statuses reports each registered worker's current state.
func (r *Runner) Statuses() []WorkerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]WorkerStatus, 0, len(r.workers))
	for _, reg := range r.workers {
		out = append(out, WorkerStatus{Name: reg.worker.Name, State: reg.state, Detail: reg.detail})
	}
	return out
}

func (r *Runner) launch(ctx context.Context, reg *registered) {
	r.setState(reg, StateRunning, "")
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := reg.worker.Run(ctx)
		switch {
		case err == nil:
			r.setState(reg, StateDone, "")
			r.logger.Info("worker finished",
				logging.String(logging.FieldWorker, reg.worker.Name),
				logging.String(logging.FieldEventType, "worker_done"))
		case errors.Is(err, ErrSkipped):
			r.setState(reg, StateSkipped, err.Error())
			r.logger.Info("worker skipped",
				logging.String(logging.FieldWorker, reg.worker.Name),
				logging.String("reason", err.Error()))
		default:
			r.setState(reg, StateFailed, err.Error())
			r.logger.Warn("worker failed",
				logging.String(logging.FieldWorker, reg.worker.Name),
				logging.Error(err),
				logging.String(logging.FieldEventType, "worker_failed"),
				logging.String(logging.FieldImpact, "flash coordination may be incomplete"),
				logging.String(logging.FieldErrorHint, "check the worker logs above"))
		}
	}()
}

func (r *Runner) setState(reg *registered, state State, detail string) {
	r.mu.Lock()
	reg.state = state
	reg.detail = detail
	r.mu.Unlock()
}
