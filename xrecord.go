package xrecord

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
)

// Querier is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a query returning rows.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Execer is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a statement that does not return rows.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Conn is what a DB runs statements on.
type Conn interface {
	Querier
	Execer
}

// Options configures a DB.
type Options struct {
	// Logger receives debug records for every statement and mapping cache
	// miss. nil discards them.
	Logger *slog.Logger

	// DefaultIfNull stores zero values for nulls read into non-nullable
	// members instead of failing.
	DefaultIfNull bool

	// Placeholder is the parameter style of the driver. The zero value
	// passes "@name" placeholders through as named arguments.
	Placeholder Placeholder
}

// DB runs generated and hand written statements against a Conn and maps
// result rows through the tables of its Registry. It owns its mapping Cache.
// A DB is safe for concurrent use if its Conn is.
type DB struct {
	conn  Conn
	reg   *Registry
	cache *Cache
	opts  Options
	log   *slog.Logger
}

// New returns a DB over conn. A nil reg starts an empty Registry.
func New(conn Conn, reg *Registry, opts Options) *DB {
	if reg == nil {
		reg = NewRegistry()
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DB{conn: conn, reg: reg, cache: NewCache(), opts: opts, log: log}
}

// With returns a DB that runs on conn (typically a *sql.Tx) and shares the
// registry, cache and options of db.
func (db *DB) With(conn Conn) *DB {
	cp := *db
	cp.conn = conn
	return &cp
}

func (db *DB) Registry() *Registry { return db.reg }
func (db *DB) Cache() *Cache       { return db.cache }

func (db *DB) materializeOptions() MaterializeOptions {
	return MaterializeOptions{DefaultIfNull: db.opts.DefaultIfNull}
}

// members resolves the selected members of tbl for columns through the
// cache, logging misses.
func (db *DB) members(ctx context.Context, d Descriptor, columns []string) []Member {
	ms, key, hit := db.cache.lookup(d, columns)
	if !hit {
		db.log.DebugContext(ctx, "xrecord: mapping cache miss", slog.String("key", key), slog.Int("members", len(ms)))
	}
	return ms
}

func (db *DB) bind(ctx context.Context, stmt Statement) (string, []any, []*BoundParam, error) {
	var bound []*BoundParam
	if stmt.Params != nil {
		bound = stmt.Params.ToBoundArray()
	}
	query, args, err := Bind(stmt.SQL, bound, db.opts.Placeholder)
	if err != nil {
		return "", nil, nil, err
	}
	db.log.DebugContext(ctx, "xrecord: statement", slog.String("sql", query), slog.Int("params", len(bound)))
	return query, args, bound, nil
}

// rows runs stmt and drains its result set. Output parameters are read
// back into stmt.Params once the rows are closed.
func (db *DB) rows(ctx context.Context, stmt Statement) ([]Row, error) {
	query, args, bound, err := db.bind(ctx, stmt)
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out, err := ReadRows(rows)
	if cerr := rows.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if stmt.Params != nil {
		stmt.Params.ReadBack(bound)
	}
	return out, nil
}

func (db *DB) exec(ctx context.Context, stmt Statement) (sql.Result, error) {
	query, args, bound, err := db.bind(ctx, stmt)
	if err != nil {
		return nil, err
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if stmt.Params != nil {
		stmt.Params.ReadBack(bound)
	}
	return res, nil
}
