// Package daemon hosts the flashd runtime: single-instance locking,
// the daemon-owned control device handle, the device attach monitor,
// and the flash-ready worker runner.
//
// A missing control device never stops the daemon. It runs degraded,
// optionally watching for the device to appear, and every manual send
// reports failure instead of blocking.
package daemon
