package flash

// Bracket sends flash_lock, runs fn, and sends flash_unlock on every
// exit path: normal return, error return, and propagating panic. The
// result of fn is returned unchanged; send errors are discarded so a
// broken device never affects the bracketed work. A nil or closed
// device degrades to running fn with zero writes.
func (d *Device) Bracket(fn func() error) error {
	_ = d.Send(CommandLock)
	defer func() {
		_ = d.Send(CommandUnlock)
	}()
	return fn()
}
