package flashsql

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
)

// Register wraps base with the interceptors and registers the result
// under name, so sql.Open(name, dsn) yields bracketed connections.
func Register(name string, base driver.Driver, interceptors ...Interceptor) {
	sql.Register(name, Wrap(base, interceptors...))
}

// WrapNamed resolves a driver that is already registered with
// database/sql (for example "postgres" from lib/pq or "sqlite" from
// modernc.org/sqlite) and returns a wrapped copy. The base
// registration is untouched; register the returned driver under a new
// name to use it.
func WrapNamed(baseName string, interceptors ...Interceptor) (driver.Driver, error) {
	db, err := sql.Open(baseName, "")
	if err != nil {
		return nil, fmt.Errorf("resolve driver %q: %w", baseName, err)
	}
	drv := db.Driver()
	_ = db.Close()
	if drv == nil {
		return nil, fmt.Errorf("driver %q is not registered", baseName)
	}
	return Wrap(drv, interceptors...), nil
}
