package xrecord

import (
	"context"
	"database/sql"
	"fmt"
)

// Exec executes a statement that returns no rows and returns the driver's
// [sql.Result]. Output parameters declared in params receive their values.
//
// Example:
//
//	params := xrecord.NewParameters().
//	    AddTypedValue("@Id", xrecord.WireInt, int32(7), false).
//	    AddDirection("@Count", xrecord.WireInt, true, xrecord.DirectionOutput)
//	_, err := xrecord.Exec(ctx, db, `exec CountOrders @Id, @Count output`, params)
//	n, _ := params.Value("@Count")
func Exec(ctx context.Context, db *DB, query string, params *Parameters) (sql.Result, error) {
	return db.exec(ctx, Statement{SQL: query, Params: params})
}

// Scalar executes query and returns the first column of the first row
// coerced into K. It returns [sql.ErrNoRows] on an empty result. A null
// becomes the zero value for string, []byte and any; for other K it fails
// with ErrNullIntoNonNullable.
func Scalar[K any](ctx context.Context, db *DB, query string, params *Parameters) (K, error) {
	return scalar[K](ctx, db, Statement{SQL: query, Params: params})
}

// Create inserts v and returns the identity value the database generated,
// coerced into K.
//
//	id, err := xrecord.Create[int32](ctx, db, &Customer{Name: "Ada"})
func Create[K, T any](ctx context.Context, db *DB, v *T) (K, error) {
	var zero K
	tbl, err := TableFor[T](db.reg)
	if err != nil {
		return zero, err
	}
	stmt, err := BuildInsert(tbl, v)
	if err != nil {
		return zero, err
	}
	return scalar[K](ctx, db, stmt)
}

// Update writes every writable member of v to the row with v's primary key.
func Update[T any](ctx context.Context, db *DB, v *T) error {
	tbl, err := TableFor[T](db.reg)
	if err != nil {
		return err
	}
	stmt, err := BuildUpdate(tbl, v)
	if err != nil {
		return err
	}
	_, err = db.exec(ctx, stmt)
	return err
}

// Delete removes the row of T whose primary key equals key.
func Delete[T any](ctx context.Context, db *DB, key any) error {
	tbl, err := TableFor[T](db.reg)
	if err != nil {
		return err
	}
	stmt, err := BuildDelete(tbl, key)
	if err != nil {
		return err
	}
	_, err = db.exec(ctx, stmt)
	return err
}

func scalar[K any](ctx context.Context, db *DB, stmt Statement) (K, error) {
	var zero K
	rows, err := db.rows(ctx, stmt)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, sql.ErrNoRows
	}
	var raw any
	if len(rows[0].vals) > 0 {
		raw = rows[0].vals[0]
	}
	to := typeOf[K]()
	if raw == nil {
		if to == typeString || to == typeBytes || to == typeObject {
			return zero, nil
		}
		return zero, fmt.Errorf("%w: scalar %v", ErrNullIntoNonNullable, to)
	}
	v, err := ChangeType(raw, to)
	if err != nil {
		return zero, err
	}
	return v.(K), nil
}
