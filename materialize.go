package xrecord

import (
	"errors"
	"fmt"
)

// MaterializeOptions tunes the null policy of the materializer.
type MaterializeOptions struct {
	// DefaultIfNull stores the zero value when a null targets a
	// non-nullable member instead of failing with ErrNullIntoNonNullable.
	DefaultIfNull bool
}

// Materialize builds a T from row, assigning every member in members.
// members normally comes from Cache.SelectedMembers for the row's columns.
//
// Each raw value is coerced with ChangeType into the member's declared type.
// Nulls go to nullable members as nil. A null aimed at a non-nullable string,
// []byte or any member stores the zero value; for other non-nullable types
// it is an error unless opts.DefaultIfNull is set.
func Materialize[T any](tbl *Table[T], row Row, members []Member, opts MaterializeOptions) (T, error) {
	p := tbl.New()
	for _, m := range members {
		raw, _ := row.Get(m.Name)
		if err := assign(tbl, p, m, raw, opts); err != nil {
			var zero T
			return zero, err
		}
	}
	return *p, nil
}

// MaterializeList materializes every row. The selected members are resolved
// once through c from the first row's columns; all rows must share them.
func MaterializeList[T any](c *Cache, tbl *Table[T], rows []Row, opts MaterializeOptions) ([]T, error) {
	out := make([]T, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	members := c.SelectedMembers(tbl, rows[0].Columns())
	for i, row := range rows {
		v, err := Materialize(tbl, row, members, opts)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func assign[T any](tbl *Table[T], p *T, m Member, raw any, opts MaterializeOptions) error {
	if raw == nil {
		if m.Nullable || m.inherentlyNullable() || opts.DefaultIfNull {
			tbl.set(p, m.Name, nil)
			return nil
		}
		return fmt.Errorf("%w: member %s (%v)", ErrNullIntoNonNullable, m.Name, m.Type)
	}
	v, err := ChangeType(raw, m.Type)
	if err != nil {
		var ce *ConversionError
		if errors.As(err, &ce) {
			ce.Member = m.Name
			return ce
		}
		return err
	}
	tbl.set(p, m.Name, v)
	return nil
}
