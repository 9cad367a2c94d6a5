package flash

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Command is one of the fixed payloads accepted by the flash controller.
// The bytes are written as-is, with no trailing delimiter.
type Command string

const (
	// CommandLock asks the controller to hold flash state while work runs.
	CommandLock Command = "flash_lock"
	// CommandUnlock releases a previously requested lock.
	CommandUnlock Command = "flash_unlock"
	// CommandTrigger requests an immediate snapshot.
	CommandTrigger Command = "manual_trigger"
)

// DefaultPath is the control device exposed by the lttle kernel component.
const DefaultPath = "/proc/lttle"

// ErrClosed is returned by sends on a nil or closed device.
var ErrClosed = errors.New("flash: device closed")

// ErrUnknownCommand is returned for payloads outside the controller protocol.
var ErrUnknownCommand = errors.New("flash: unknown command")

// Recorder observes the outcome of each send. Implementations must not
// block; a nil recorder disables observation.
type Recorder interface {
	RecordSend(cmd Command, sendErr error)
}

// Device owns a write-only handle to the control device. The zero value
// is unusable; obtain instances through Open. A Device is safe for
// concurrent use: serialization of concurrent commands is the
// controller's job, this type only keeps the handle lifecycle sane.
type Device struct {
	mu       sync.Mutex
	fd       int
	path     string
	recorder Recorder
}

// Open opens the control device at path for write-only access. It fails
// when the device is absent or inaccessible, which typically means the
// lttle kernel component is not loaded. Callers treat that as non-fatal:
// log, skip the integration, and carry on.
func Open(path string) (*Device, error) {
	if path == "" {
		path = DefaultPath
	}
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open flash device %s: %w", path, err)
	}
	return &Device{fd: fd, path: path}, nil
}

// SetRecorder installs an observer for subsequent sends.
func (d *Device) SetRecorder(r Recorder) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.recorder = r
	d.mu.Unlock()
}

// Path returns the device path this handle was opened on.
func (d *Device) Path() string {
	if d == nil {
		return ""
	}
	return d.path
}

// Send writes the command bytes to the device. On a nil or closed
// device it returns ErrClosed without writing anything. Short writes
// are not detected; the protocol is best-effort notification and the
// controller ignores partial payloads.
func (d *Device) Send(cmd Command) error {
	switch cmd {
	case CommandLock, CommandUnlock, CommandTrigger:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, string(cmd))
	}
	if d == nil {
		return ErrClosed
	}

	d.mu.Lock()
	fd := d.fd
	recorder := d.recorder
	if fd < 0 {
		d.mu.Unlock()
		if recorder != nil {
			recorder.RecordSend(cmd, ErrClosed)
		}
		return ErrClosed
	}
	_, err := unix.Write(fd, []byte(cmd))
	d.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("write %s to %s: %w", cmd, d.path, err)
	}
	if recorder != nil {
		recorder.RecordSend(cmd, err)
	}
	return err
}

// Lock sends flash_lock.
func (d *Device) Lock() error { return d.Send(CommandLock) }

// Unlock sends flash_unlock.
func (d *Device) Unlock() error { return d.Send(CommandUnlock) }

// Trigger sends manual_trigger.
func (d *Device) Trigger() error { return d.Send(CommandTrigger) }

// Close releases the handle. Subsequent sends return ErrClosed.
// Closing twice is safe.
func (d *Device) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	fd := d.fd
	d.fd = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close flash device %s: %w", d.path, err)
	}
	return nil
}
