package flashsql_test

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"

	"github.com/lttle-cloud/ignition/flashsql"
)

// callLog records the interleaving of interceptor hooks and driver
// calls so tests can assert ordering.
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(entry string) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

type logInterceptor struct {
	name string
	log  *callLog
}

func (i *logInterceptor) BeforeRun(_ context.Context, info flashsql.RunInfo) {
	i.log.add(fmt.Sprintf("%s.before %s %q args=%d", i.name, info.Kind, info.Query, info.ArgCount))
}

func (i *logInterceptor) AfterRun(_ context.Context, info flashsql.RunInfo, runErr error) {
	i.log.add(fmt.Sprintf("%s.after %s err=%v", i.name, info.Kind, runErr))
}

// fakeDriver is a context-aware driver whose conn records every run.
// execErr/execPanic rig the next underlying call's outcome.
type fakeDriver struct {
	log       *callLog
	execErr   error
	execPanic bool
	// legacy drops the context-aware conn interfaces so runs fall back
	// to the prepared-statement path.
	legacy bool
}

func (d *fakeDriver) Open(string) (driver.Conn, error) {
	if d.legacy {
		return &legacyConn{driver: d}, nil
	}
	return &fakeConn{driver: d}, nil
}

type fakeConn struct {
	driver *fakeDriver
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{driver: c.driver, query: query}, nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }

func (c *fakeConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.driver.log.add(fmt.Sprintf("conn.exec %q args=%d", query, len(args)))
	if c.driver.execPanic {
		panic("fake driver panic")
	}
	if c.driver.execErr != nil {
		return nil, c.driver.execErr
	}
	return driver.RowsAffected(1), nil
}

func (c *fakeConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.driver.log.add(fmt.Sprintf("conn.query %q args=%d", query, len(args)))
	if c.driver.execErr != nil {
		return nil, c.driver.execErr
	}
	return &fakeRows{}, nil
}

type legacyConn struct {
	driver *fakeDriver
}

func (c *legacyConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{driver: c.driver, query: query}, nil
}

func (c *legacyConn) Close() error { return nil }

func (c *legacyConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }

type fakeStmt struct {
	driver *fakeDriver
	query  string
}

func (s *fakeStmt) Close() error { return nil }

func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.driver.log.add(fmt.Sprintf("stmt.exec %q args=%d", s.query, len(args)))
	if s.driver.execErr != nil {
		return nil, s.driver.execErr
	}
	return driver.RowsAffected(1), nil
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.driver.log.add(fmt.Sprintf("stmt.query %q args=%d", s.query, len(args)))
	if s.driver.execErr != nil {
		return nil, s.driver.execErr
	}
	return &fakeRows{}, nil
}

type fakeRows struct {
	done bool
}

func (r *fakeRows) Columns() []string { return []string{"value"} }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = int64(1)
	return nil
}

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }
