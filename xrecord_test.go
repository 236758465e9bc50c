package xrecord

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

/* ---------------------------
   In-memory database/sql driver
----------------------------*/

type DBHandler func(query string, args []driver.NamedValue) (cols []string, rows [][]driver.Value, err error)

type ExecHandler func(query string, args []driver.NamedValue) (driver.Result, error)

type testConnector struct {
	h DBHandler
	e ExecHandler
}

func (c *testConnector) Connect(context.Context) (driver.Conn, error) {
	return &testConn{h: c.h, e: c.e}, nil
}
func (c *testConnector) Driver() driver.Driver { return testDriver{} }

type testDriver struct{}

func (testDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("testDriver.Open should not be called; use sql.OpenDB with connector")
}

type testConn struct {
	h DBHandler
	e ExecHandler
}

func (c *testConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *testConn) Close() error                        { return nil }
func (c *testConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

// CheckNamedValue accepts every argument as is, sql.Out included.
func (c *testConn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (c *testConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.h == nil {
		return nil, errors.New("testConn: query not supported")
	}
	cols, data, err := c.h(query, args)
	if err != nil {
		return nil, err
	}
	return &testRows{cols: cols, data: data}, nil
}

func (c *testConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if c.e == nil {
		return nil, errors.New("testConn: exec not supported")
	}
	return c.e(query, args)
}

type testRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *testRows) Columns() []string { return append([]string(nil), r.cols...) }
func (r *testRows) Close() error      { return nil }
func (r *testRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	return nil
}

type testResult struct{ rows int64 }

func (r testResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r testResult) RowsAffected() (int64, error) { return r.rows, nil }

// newTestDB creates a *sql.DB backed by the in-memory test driver.
func newTestDB(t *testing.T, h DBHandler, e ExecHandler) *sql.DB {
	t.Helper()
	db := sql.OpenDB(&testConnector{h: h, e: e})
	t.Cleanup(func() { _ = db.Close() })
	return db
}

/* ---------------------------
   Fixtures
----------------------------*/

type Customer struct {
	CustomerId int32 `db:",pk,identity"`
	Name       string
	Email      *string
	Balance    decimal.Decimal
	Ref        uuid.UUID
	Created    time.Time `db:",default"`
	Active     bool
	Level      byte
	Score      float64
	Visits     int64
	Rank       *int16
	Avatar     []byte
	Extra      any
	Orders     int32 `db:",notintable"`
}

type Order struct {
	ID     int64
	Number string
	Total  decimal.Decimal
	note   *string
}

func (o *Order) Note() *string     { return o.note }
func (o *Order) SetNote(v *string) { o.note = v }

func newOrderTable(t *testing.T) *Table[Order] {
	t.Helper()
	tbl, err := NewTable[Order]("Orders", nil,
		Col("ID", func(o *Order) int64 { return o.ID }, func(o *Order, v int64) { o.ID = v }, RolePrimaryKey),
		Col("Number", func(o *Order) string { return o.Number }, func(o *Order, v string) { o.Number = v }),
		Col("Total", func(o *Order) decimal.Decimal { return o.Total }, func(o *Order, v decimal.Decimal) { o.Total = v }),
		NullAccessor("Note", (*Order).Note, (*Order).SetNote),
	)
	require.NoError(t, err)
	return tbl
}

func newCustomerTable(t *testing.T) *Table[Customer] {
	t.Helper()
	tbl, err := TableOf[Customer]()
	require.NoError(t, err)
	return tbl
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	Register(reg, newCustomerTable(t))
	Register(reg, newOrderTable(t))
	return reg
}

func ptr[T any](v T) *T { return &v }

/* ---------------------------
   In-memory table store
----------------------------*/

// memStore interprets the statements BuildInsert/Update/Delete/Select*
// generate against in-memory tables.
type memStore struct {
	mu      sync.Mutex
	tables  map[string]*memTable
	queries []string
}

type memTable struct {
	cols     []string
	pk       string
	identity string
	defaults map[string]driver.Value
	next     int64
	rows     []map[string]driver.Value
}

func newMemStore() *memStore {
	return &memStore{tables: map[string]*memTable{
		"Customer": {
			cols: []string{"CustomerId", "Name", "Email", "Balance", "Ref", "Created", "Active",
				"Level", "Score", "Visits", "Rank", "Avatar", "Extra"},
			pk:       "CustomerId",
			identity: "CustomerId",
			defaults: map[string]driver.Value{"Created": time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
		"Orders": {
			cols: []string{"ID", "Number", "Total", "Note"},
			pk:   "ID",
		},
	}}
}

var (
	reInsert    = regexp.MustCompile(`^insert into \[(\w+)\]\(([^)]*)\) values\(([^)]*)\);select scope_identity\(\);$`)
	reSelectKey = regexp.MustCompile(`^select \* from \[(\w+)\] where \[(\w+)\]=@(\w+);$`)
	reSelectAll = regexp.MustCompile(`^select \* from \[(\w+)\];$`)
	reUpdate    = regexp.MustCompile(`^update \[(\w+)\] set (.*) where \[(\w+)\]=@(\w+);$`)
	reDelete    = regexp.MustCompile(`^delete \[(\w+)\] where \[(\w+)\]=@(\w+);$`)
)

func namedArgs(args []driver.NamedValue) map[string]driver.Value {
	m := make(map[string]driver.Value, len(args))
	for _, a := range args {
		m[a.Name] = storeValue(a.Value)
	}
	return m
}

// storeValue converts Go values into the shapes a SQL Server driver hands
// back: integers widen to int64, decimals and identifiers come back as text.
func storeValue(v any) driver.Value {
	switch x := v.(type) {
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case decimal.Decimal:
		return []byte(x.String())
	case uuid.UUID:
		return x.String()
	}
	return v
}

func sameKey(a, b driver.Value) bool { return fmt.Sprint(a) == fmt.Sprint(b) }

func (s *memStore) table(name string) (*memTable, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("memstore: no table %s", name)
	}
	return t, nil
}

func (s *memStore) query(q string, args []driver.NamedValue) ([]string, [][]driver.Value, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	vals := namedArgs(args)

	if m := reInsert.FindStringSubmatch(q); m != nil {
		t, err := s.table(m[1])
		if err != nil {
			return nil, nil, err
		}
		row := make(map[string]driver.Value)
		for _, c := range strings.Split(m[2], ",") {
			c = strings.Trim(c, "[]")
			row[c] = vals[c]
		}
		for c, v := range t.defaults {
			if _, ok := row[c]; !ok {
				row[c] = v
			}
		}
		var id driver.Value
		if t.identity != "" {
			t.next++
			row[t.identity] = t.next
			id = []byte(fmt.Sprint(t.next))
		}
		t.rows = append(t.rows, row)
		return []string{""}, [][]driver.Value{{id}}, nil
	}
	if m := reSelectKey.FindStringSubmatch(q); m != nil {
		t, err := s.table(m[1])
		if err != nil {
			return nil, nil, err
		}
		var out [][]driver.Value
		for _, r := range t.rows {
			if sameKey(r[m[2]], vals[m[3]]) {
				out = append(out, t.project(r))
			}
		}
		return t.cols, out, nil
	}
	if m := reSelectAll.FindStringSubmatch(q); m != nil {
		t, err := s.table(m[1])
		if err != nil {
			return nil, nil, err
		}
		out := make([][]driver.Value, 0, len(t.rows))
		for _, r := range t.rows {
			out = append(out, t.project(r))
		}
		return t.cols, out, nil
	}
	return nil, nil, fmt.Errorf("memstore: unsupported query %q", q)
}

func (s *memStore) exec(q string, args []driver.NamedValue) (driver.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	vals := namedArgs(args)

	if m := reUpdate.FindStringSubmatch(q); m != nil {
		t, err := s.table(m[1])
		if err != nil {
			return nil, err
		}
		var n int64
		for _, r := range t.rows {
			if !sameKey(r[m[3]], vals[m[4]]) {
				continue
			}
			for _, set := range strings.Split(m[2], ",") {
				col, param, _ := strings.Cut(set, "=")
				r[strings.Trim(col, "[]")] = vals[strings.TrimPrefix(param, "@")]
			}
			n++
		}
		return testResult{rows: n}, nil
	}
	if m := reDelete.FindStringSubmatch(q); m != nil {
		t, err := s.table(m[1])
		if err != nil {
			return nil, err
		}
		kept := t.rows[:0]
		var n int64
		for _, r := range t.rows {
			if sameKey(r[m[2]], vals[m[3]]) {
				n++
				continue
			}
			kept = append(kept, r)
		}
		t.rows = kept
		return testResult{rows: n}, nil
	}
	return nil, fmt.Errorf("memstore: unsupported statement %q", q)
}

func (t *memTable) project(r map[string]driver.Value) []driver.Value {
	out := make([]driver.Value, len(t.cols))
	for i, c := range t.cols {
		out[i] = r[c]
	}
	return out
}

func newStoreDB(t *testing.T, opts Options) (*DB, *memStore) {
	t.Helper()
	store := newMemStore()
	sqlDB := newTestDB(t, store.query, store.exec)
	return New(sqlDB, testRegistry(t), opts), store
}
