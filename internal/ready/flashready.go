package ready

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lttle-cloud/ignition/flash"
	"github.com/lttle-cloud/ignition/internal/logging"
)

// FlashReadyName identifies the snapshot trigger worker.
const FlashReadyName = "flash-ready"

// NewFlashReady builds the one-shot worker that tells the flash
// controller the guest is ready for a snapshot. It opens its own
// device handle, sends manual_trigger, closes the handle, and
// terminates regardless of the send outcome. An absent device skips
// the worker rather than failing it.
func NewFlashReady(devicePath string, recorder flash.Recorder, logger *slog.Logger) Worker {
	workerLogger := logging.NewComponentLogger(logger, FlashReadyName)

	return Worker{
		Name:          FlashReadyName,
		StartPolicy:   StartAfterRecovery,
		RestartPolicy: NeverRestart,
		Run: func(_ context.Context) error {
			device, err := flash.Open(devicePath)
			if err != nil {
				workerLogger.Warn("flash device unavailable, snapshot trigger skipped",
					logging.Error(err),
					logging.String(logging.FieldDevice, devicePath),
					logging.String(logging.FieldEventType, "flash_ready_skipped"),
					logging.String(logging.FieldImpact, "no snapshot requested for this boot"),
					logging.String(logging.FieldErrorHint, "load the lttle kernel component or fix device.path"))
				return fmt.Errorf("%w: %v", ErrSkipped, err)
			}
			defer device.Close()
			device.SetRecorder(recorder)

			if sendErr := device.Trigger(); sendErr != nil {
				workerLogger.Warn("snapshot trigger not delivered",
					logging.Error(sendErr),
					logging.String(logging.FieldCommand, string(flash.CommandTrigger)),
					logging.String(logging.FieldEventType, "flash_ready_send_failed"),
					logging.String(logging.FieldImpact, "controller did not receive the trigger"),
					logging.String(logging.FieldErrorHint, "check the lttle kernel component logs"))
			} else {
				workerLogger.Info("snapshot trigger sent",
					logging.String(logging.FieldCommand, string(flash.CommandTrigger)),
					logging.String(logging.FieldEventType, "flash_ready_sent"))
			}
			// Best-effort send: the worker terminates either way.
			return nil
		},
	}
}
