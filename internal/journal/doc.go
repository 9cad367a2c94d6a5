// Package journal persists a local record of flash command traffic.
//
// The journal is daemon-side observability only: the control device
// remains the single durable protocol state. Append failures are
// reported but never block a send.
package journal
