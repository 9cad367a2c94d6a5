package flashsql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
)

// Wrap returns a driver whose statement runs are bracketed by the given
// interceptors. Wrapping a driver that is already wrapped extends the
// existing chain rather than replacing it; prior interceptors keep
// their position and run first.
func Wrap(drv driver.Driver, interceptors ...Interceptor) driver.Driver {
	if wd, ok := drv.(*wrappedDriver); ok {
		chain := make([]Interceptor, 0, len(wd.ics)+len(interceptors))
		chain = append(chain, wd.ics...)
		chain = append(chain, interceptors...)
		return &wrappedDriver{driver: wd.driver, ics: chain}
	}
	chain := make([]Interceptor, len(interceptors))
	copy(chain, interceptors)
	return &wrappedDriver{driver: drv, ics: chain}
}

type wrappedDriver struct {
	driver driver.Driver
	ics    []Interceptor
}

func (d *wrappedDriver) Open(name string) (driver.Conn, error) {
	conn, err := d.driver.Open(name)
	if err != nil {
		return nil, err
	}
	return &wrappedConn{conn: conn, ics: d.ics}, nil
}

func (d *wrappedDriver) OpenConnector(name string) (driver.Connector, error) {
	if dc, ok := d.driver.(driver.DriverContext); ok {
		connector, err := dc.OpenConnector(name)
		if err != nil {
			return nil, err
		}
		return &wrappedConnector{connector: connector, wrapper: d}, nil
	}
	return &wrappedConnector{connector: dsnConnector{dsn: name, driver: d.driver}, wrapper: d}, nil
}

// dsnConnector mirrors the database/sql fallback for drivers without
// DriverContext support.
type dsnConnector struct {
	dsn    string
	driver driver.Driver
}

func (c dsnConnector) Connect(context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c dsnConnector) Driver() driver.Driver { return c.driver }

type wrappedConnector struct {
	connector driver.Connector
	wrapper   *wrappedDriver
}

func (c *wrappedConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &wrappedConn{conn: conn, ics: c.wrapper.ics}, nil
}

func (c *wrappedConnector) Driver() driver.Driver { return c.wrapper }

// wrappedConn delegates connection management untouched and brackets
// only the run phase: ExecContext, QueryContext, and runs through
// prepared statements.
type wrappedConn struct {
	conn driver.Conn
	ics  []Interceptor
}

func (c *wrappedConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &wrappedStmt{stmt: stmt, query: query, ics: c.ics}, nil
}

func (c *wrappedConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if cpc, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err := cpc.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &wrappedStmt{stmt: stmt, query: query, ics: c.ics}, nil
	}
	return c.Prepare(query)
}

func (c *wrappedConn) Close() error { return c.conn.Close() }

func (c *wrappedConn) Begin() (driver.Tx, error) {
	return c.conn.Begin() //nolint:staticcheck // fallback path for legacy drivers
}

func (c *wrappedConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if cbt, ok := c.conn.(driver.ConnBeginTx); ok {
		return cbt.BeginTx(ctx, opts)
	}
	return c.Begin()
}

func (c *wrappedConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	ec, ok := c.conn.(driver.ExecerContext)
	if !ok {
		// Fall back to the prepared-statement path, which brackets the
		// run itself; no lock/unlock pair is spent here.
		return nil, driver.ErrSkip
	}
	info := RunInfo{Kind: RunExec, Query: query, ArgCount: len(args)}
	var res driver.Result
	err := runBracketed(ctx, c.ics, info, func() error {
		var callErr error
		res, callErr = ec.ExecContext(ctx, query, args)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *wrappedConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	qc, ok := c.conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	info := RunInfo{Kind: RunQuery, Query: query, ArgCount: len(args)}
	var rows driver.Rows
	err := runBracketed(ctx, c.ics, info, func() error {
		var callErr error
		rows, callErr = qc.QueryContext(ctx, query, args)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *wrappedConn) Ping(ctx context.Context) error {
	if p, ok := c.conn.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (c *wrappedConn) ResetSession(ctx context.Context) error {
	if sr, ok := c.conn.(driver.SessionResetter); ok {
		return sr.ResetSession(ctx)
	}
	return nil
}

func (c *wrappedConn) IsValid() bool {
	if v, ok := c.conn.(driver.Validator); ok {
		return v.IsValid()
	}
	return true
}

func (c *wrappedConn) CheckNamedValue(nv *driver.NamedValue) error {
	if nvc, ok := c.conn.(driver.NamedValueChecker); ok {
		return nvc.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

type wrappedStmt struct {
	stmt  driver.Stmt
	query string
	ics   []Interceptor
}

func (s *wrappedStmt) Close() error { return s.stmt.Close() }

func (s *wrappedStmt) NumInput() int { return s.stmt.NumInput() }

func (s *wrappedStmt) Exec(args []driver.Value) (driver.Result, error) {
	info := RunInfo{Kind: RunExec, Query: s.query, ArgCount: len(args)}
	var res driver.Result
	err := runBracketed(context.Background(), s.ics, info, func() error {
		var callErr error
		res, callErr = s.stmt.Exec(args) //nolint:staticcheck // legacy driver path
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *wrappedStmt) Query(args []driver.Value) (driver.Rows, error) {
	info := RunInfo{Kind: RunQuery, Query: s.query, ArgCount: len(args)}
	var rows driver.Rows
	err := runBracketed(context.Background(), s.ics, info, func() error {
		var callErr error
		rows, callErr = s.stmt.Query(args) //nolint:staticcheck // legacy driver path
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *wrappedStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	info := RunInfo{Kind: RunExec, Query: s.query, ArgCount: len(args)}
	var res driver.Result
	err := runBracketed(ctx, s.ics, info, func() error {
		var callErr error
		if sec, ok := s.stmt.(driver.StmtExecContext); ok {
			res, callErr = sec.ExecContext(ctx, args)
			return callErr
		}
		values, convErr := namedValuesToValues(args)
		if convErr != nil {
			return convErr
		}
		res, callErr = s.stmt.Exec(values) //nolint:staticcheck // legacy driver path
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *wrappedStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	info := RunInfo{Kind: RunQuery, Query: s.query, ArgCount: len(args)}
	var rows driver.Rows
	err := runBracketed(ctx, s.ics, info, func() error {
		var callErr error
		if sqc, ok := s.stmt.(driver.StmtQueryContext); ok {
			rows, callErr = sqc.QueryContext(ctx, args)
			return callErr
		}
		values, convErr := namedValuesToValues(args)
		if convErr != nil {
			return convErr
		}
		rows, callErr = s.stmt.Query(values) //nolint:staticcheck // legacy driver path
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *wrappedStmt) CheckNamedValue(nv *driver.NamedValue) error {
	if nvc, ok := s.stmt.(driver.NamedValueChecker); ok {
		return nvc.CheckNamedValue(nv)
	}
	return driver.ErrSkip
}

var errNamedParams = errors.New("flashsql: driver does not support named parameters")

func namedValuesToValues(named []driver.NamedValue) ([]driver.Value, error) {
	values := make([]driver.Value, len(named))
	for i, nv := range named {
		if nv.Name != "" {
			return nil, fmt.Errorf("%w: %q", errNamedParams, nv.Name)
		}
		values[i] = nv.Value
	}
	return values, nil
}
