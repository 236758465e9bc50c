package xrecord

import "context"

// Query executes query and materializes every result row into a T.
// An empty result yields an empty, non-nil slice.
//
// Example:
//
//	params := xrecord.NewParameters().AddTypedValue("@City", xrecord.WireNVarChar, "Oslo", false)
//	customers, err := xrecord.Query[Customer](ctx, db, `select * from [Customer] where [City]=@City`, params)
func Query[T any](ctx context.Context, db *DB, query string, params *Parameters) ([]T, error) {
	return queryAll[T](ctx, db, Statement{SQL: query, Params: params})
}

// RetrieveList loads every row of T's table.
func RetrieveList[T any](ctx context.Context, db *DB) ([]T, error) {
	tbl, err := TableFor[T](db.reg)
	if err != nil {
		return nil, err
	}
	return queryAll[T](ctx, db, BuildSelectAll(tbl))
}

func queryAll[T any](ctx context.Context, db *DB, stmt Statement) ([]T, error) {
	tbl, err := TableFor[T](db.reg)
	if err != nil {
		return nil, err
	}
	rows, err := db.rows(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		// Resolves (and logs) the selection MaterializeList reads back from the cache.
		db.members(ctx, tbl, rows[0].Columns())
	}
	return MaterializeList(db.cache, tbl, rows, db.materializeOptions())
}
