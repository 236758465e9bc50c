package xrecord

import (
	"context"
	"database/sql"
)

// Get executes query and materializes the first row into a T.
//
// It returns [sql.ErrNoRows] if the query yields no rows; further rows are
// ignored. T must be registered with the DB's Registry. Columns bind to
// members by case-insensitive name; extra columns are ignored and members
// without a column keep their zero value.
//
// Output parameters declared in params receive their values once the
// statement completes.
//
// Example:
//
//	params := xrecord.NewParameters().AddTypedValue("@Email", xrecord.WireNVarChar, "a@example.com", false)
//	c, err := xrecord.Get[Customer](ctx, db, `select * from [Customer] where [Email]=@Email`, params)
//	if errors.Is(err, sql.ErrNoRows) {
//	    // not found
//	}
func Get[T any](ctx context.Context, db *DB, query string, params *Parameters) (T, error) {
	return getOne[T](ctx, db, Statement{SQL: query, Params: params})
}

// Retrieve loads the row of T whose primary key equals key. key is coerced
// into the primary key's type first, so an int literal works for an int32
// key. It returns [sql.ErrNoRows] when there is no such row.
func Retrieve[T any](ctx context.Context, db *DB, key any) (T, error) {
	var zero T
	tbl, err := TableFor[T](db.reg)
	if err != nil {
		return zero, err
	}
	stmt, err := BuildSelectByKey(tbl, key)
	if err != nil {
		return zero, err
	}
	return getOne[T](ctx, db, stmt)
}

func getOne[T any](ctx context.Context, db *DB, stmt Statement) (T, error) {
	var zero T
	tbl, err := TableFor[T](db.reg)
	if err != nil {
		return zero, err
	}
	rows, err := db.rows(ctx, stmt)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, sql.ErrNoRows
	}
	members := db.members(ctx, tbl, rows[0].Columns())
	return Materialize(tbl, rows[0], members, db.materializeOptions())
}
