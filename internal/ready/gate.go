package ready

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lttle-cloud/ignition/internal/logging"
)

// Gate reports when crash recovery has finished and after-recovery
// workers may start.
type Gate interface {
	WaitReady(ctx context.Context) error
}

// ImmediateGate opens at once, for hosts with no recovery phase.
type ImmediateGate struct{}

func (ImmediateGate) WaitReady(context.Context) error { return nil }

// DatabaseGate polls a database until it accepts connections and, for
// PostgreSQL, until pg_is_in_recovery() reports false.
type DatabaseGate struct {
	DriverName   string
	DSN          string
	PollInterval time.Duration
	Timeout      time.Duration
	Logger       *slog.Logger
}

// WaitReady blocks until the database is out of recovery, the timeout
// elapses, or the context is canceled.
func (g *DatabaseGate) WaitReady(ctx context.Context) error {
	logger := logging.NewComponentLogger(g.Logger, "recovery-gate")

	db, err := sql.Open(g.DriverName, g.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	poll := g.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		ready, probeErr := g.probe(ctx, db)
		if ready {
			logger.Info("recovery finished",
				logging.String("driver", g.DriverName),
				logging.String(logging.FieldEventType, "recovery_finished"))
			return nil
		}
		if probeErr != nil {
			logger.Debug("database not ready", logging.Error(probeErr))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for recovery: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (g *DatabaseGate) probe(ctx context.Context, db *sql.DB) (bool, error) {
	if err := db.PingContext(ctx); err != nil {
		return false, err
	}
	if g.DriverName != "postgres" {
		return true, nil
	}
	var inRecovery bool
	if err := db.QueryRowContext(ctx, "SELECT pg_is_in_recovery()").Scan(&inRecovery); err != nil {
		return false, err
	}
	return !inRecovery, nil
}
