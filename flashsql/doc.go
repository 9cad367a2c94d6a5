// Package flashsql brackets database/sql statement execution with flash
// controller notifications.
//
// It wraps an existing driver so that every exec or query run through it
// is surrounded by an interceptor chain. The stock FlashInterceptor
// sends flash_lock before the run and flash_unlock after it, on every
// exit path, without ever touching the run's own result or error.
// Wrapping an already-wrapped driver composes the chains instead of
// replacing them, so other instrumentation stays in place.
package flashsql
