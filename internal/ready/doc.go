// Package ready runs the daemon's one-shot background workers behind a
// recovery gate.
//
// Workers registered for StartAfterRecovery wait until the gate reports
// the guest database has finished crash recovery; each worker runs at
// most once per process and is never restarted.
package ready
