// Package flash provides the write-only channel to the lttle flash
// controller's control device.
//
// The controller accepts exactly three ASCII commands: flash_lock,
// flash_unlock, and manual_trigger. Delivery is best-effort: a failed
// write is reported through the returned error and nothing else
// happens. Callers that bracket work with lock/unlock are expected
// to discard send errors so that a missing or broken device never
// blocks the work itself.
package flash
