package flashsql

import "context"

// RunKind distinguishes the two statement run phases a driver exposes.
type RunKind string

const (
	// RunExec is a statement executed for its side effects.
	RunExec RunKind = "exec"
	// RunQuery is a statement executed for its result rows.
	RunQuery RunKind = "query"
)

// RunInfo describes one statement run handed to interceptors.
type RunInfo struct {
	Kind     RunKind
	Query    string
	ArgCount int
}

// Interceptor observes statement runs. BeforeRun is called before the
// underlying driver call, AfterRun after it on every exit path,
// including panics (in which case runErr is nil and the panic keeps
// propagating). Interceptors must not alter the run's outcome.
type Interceptor interface {
	BeforeRun(ctx context.Context, info RunInfo)
	AfterRun(ctx context.Context, info RunInfo, runErr error)
}

// runBracketed invokes call between the interceptor chain's BeforeRun
// and AfterRun hooks. AfterRun fires in reverse registration order and
// is guaranteed to run even when call panics.
func runBracketed(ctx context.Context, ics []Interceptor, info RunInfo, call func() error) (err error) {
	for _, ic := range ics {
		ic.BeforeRun(ctx, info)
	}
	defer func() {
		for i := len(ics) - 1; i >= 0; i-- {
			ics[i].AfterRun(ctx, info, err)
		}
	}()
	err = call()
	return err
}
