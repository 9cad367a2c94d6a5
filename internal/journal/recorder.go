package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/lttle-cloud/ignition/flash"
	"github.com/lttle-cloud/ignition/internal/logging"
)

const appendTimeout = 2 * time.Second

// SendRecorder journals each device send. It implements flash.Recorder
// so a device can be handed a journal without knowing about SQLite.
type SendRecorder struct {
	journal *Journal
	source  string
	logger  *slog.Logger
}

// NewSendRecorder builds a recorder tagging events with the given
// source. A nil journal yields a recorder that only logs.
func NewSendRecorder(j *Journal, source string, logger *slog.Logger) *SendRecorder {
	return &SendRecorder{
		journal: j,
		source:  source,
		logger:  logging.NewComponentLogger(logger, "journal"),
	}
}

// RecordSend appends the send outcome. Failures are logged and
// swallowed; journaling must never block or fail a send.
func (r *SendRecorder) RecordSend(cmd flash.Command, sendErr error) {
	if r == nil || r.journal == nil {
		return
	}

	event := Event{
		Command: string(cmd),
		Outcome: OutcomeSent,
		Source:  r.source,
	}
	if sendErr != nil {
		event.Outcome = OutcomeFailed
		event.Detail = sendErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := r.journal.Append(ctx, event); err != nil {
		r.logger.Warn("journal append failed",
			logging.Error(err),
			logging.String(logging.FieldCommand, string(cmd)),
			logging.String(logging.FieldEventType, "journal_append_failed"),
			logging.String(logging.FieldImpact, "device traffic not recorded"),
			logging.String(logging.FieldErrorHint, "check the journal database in the daemon data directory"))
	}
}
