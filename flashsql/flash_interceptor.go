package flashsql

import (
	"context"
	"log/slog"

	"github.com/lttle-cloud/ignition/flash"
)

// FlashInterceptor notifies the flash controller around each statement
// run: flash_lock before, flash_unlock after. Send errors are discarded
// so a missing or broken device never blocks execution; with a nil
// device the interceptor is a pure passthrough and writes nothing.
type FlashInterceptor struct {
	device *flash.Device
	logger *slog.Logger
}

// NewFlashInterceptor builds the interceptor. Both arguments may be
// nil: a nil device disables notifications, a nil logger disables
// debug reporting of failed sends.
func NewFlashInterceptor(device *flash.Device, logger *slog.Logger) *FlashInterceptor {
	return &FlashInterceptor{device: device, logger: logger}
}

// BeforeRun sends flash_lock.
func (f *FlashInterceptor) BeforeRun(_ context.Context, _ RunInfo) {
	if f == nil || f.device == nil {
		return
	}
	if err := f.device.Lock(); err != nil && f.logger != nil {
		f.logger.Debug("flash_lock not delivered", slog.Any("error", err))
	}
}

// AfterRun sends flash_unlock regardless of the run's outcome.
func (f *FlashInterceptor) AfterRun(_ context.Context, _ RunInfo, _ error) {
	if f == nil || f.device == nil {
		return
	}
	if err := f.device.Unlock(); err != nil && f.logger != nil {
		f.logger.Debug("flash_unlock not delivered", slog.Any("error", err))
	}
}
