package xrecord

import (
	"fmt"
	"reflect"
	"strings"
)

// Statement is generated SQL plus the parameter templates its placeholders
// refer to. Placeholders are written "@Name" and templates carry the same
// "@"-prefixed name.
type Statement struct {
	SQL    string
	Params *Parameters
}

// Check verifies that every placeholder in SQL has a template.
func (s Statement) Check() error {
	toks, err := findPlaceholders(s.SQL)
	if err != nil {
		return err
	}
	for _, t := range toks {
		if s.Params == nil || s.Params.find("@"+t.name) == nil {
			return fmt.Errorf("%w: @%s", ErrMissingParam, t.name)
		}
	}
	return nil
}

// BuildInsert generates an insert of v followed by a query for the
// generated identity:
//
//	insert into [T]([A],[B]) values(@A,@B);select scope_identity();
//
// Identity and not-in-table members are skipped, as are nullable members
// holding null. Non-nullable members are always written, zero values
// included; a column with a database default is left to it by declaring
// the member nullable and leaving it nil.
func BuildInsert[T any](tbl *Table[T], v *T) (Statement, error) {
	params := NewParameters()
	var cols, vals []string
	for _, m := range ResolveWithValues(tbl, v) {
		if m.IsIdentity() || m.NotInTable() {
			continue
		}
		if m.Nullable && m.Value == nil {
			continue
		}
		wt, err := ToWireType(m.Type)
		if err != nil {
			return Statement{}, err
		}
		cols = append(cols, "["+m.Name+"]")
		vals = append(vals, "@"+m.Name)
		params.AddTypedValue("@"+m.Name, wt, m.Value, m.Nullable)
	}
	if len(cols) == 0 {
		return Statement{}, fmt.Errorf("%w: %s", ErrNoColumns, tbl.TableName())
	}
	sql := fmt.Sprintf("insert into [%s](%s) values(%s);select scope_identity();",
		tbl.TableName(), strings.Join(cols, ","), strings.Join(vals, ","))
	return Statement{SQL: sql, Params: params}, nil
}

// BuildUpdate generates an update of every writable member of v keyed on
// its primary key:
//
//	update [T] set [A]=@A,[B]=@B where [Id]=@Id;
//
// The key parameter is declared once even when the key is also written.
func BuildUpdate[T any](tbl *Table[T], v *T) (Statement, error) {
	params := NewParameters()
	var (
		sets []string
		pk   *Member
	)
	members := ResolveWithValues(tbl, v)
	for i := range members {
		m := &members[i]
		if m.IsPrimaryKey() {
			if m.Nullable {
				return Statement{}, fmt.Errorf("%w: %s.%s", ErrNullablePrimaryKey, tbl.TableName(), m.Name)
			}
			pk = m
		}
		if m.IsIdentity() || m.NotInTable() {
			continue
		}
		wt, err := ToWireType(m.Type)
		if err != nil {
			return Statement{}, err
		}
		sets = append(sets, "["+m.Name+"]=@"+m.Name)
		params.AddTypedValue("@"+m.Name, wt, m.Value, m.Nullable)
	}
	if pk == nil {
		return Statement{}, fmt.Errorf("%w: %s", ErrNoPrimaryKey, tbl.TableName())
	}
	if len(sets) == 0 {
		return Statement{}, fmt.Errorf("%w: %s", ErrNoColumns, tbl.TableName())
	}
	if params.find("@"+pk.Name) == nil {
		wt, err := ToWireType(pk.Type)
		if err != nil {
			return Statement{}, err
		}
		params.AddTypedValue("@"+pk.Name, wt, pk.Value, false)
	}
	sql := fmt.Sprintf("update [%s] set %s where [%s]=@%s;",
		tbl.TableName(), strings.Join(sets, ","), pk.Name, pk.Name)
	return Statement{SQL: sql, Params: params}, nil
}

// BuildDelete generates a delete by primary key:
//
//	delete [T] where [Id]=@Id;
func BuildDelete[T any](tbl *Table[T], key any) (Statement, error) {
	where, params, err := keyPredicate(tbl, key)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: fmt.Sprintf("delete [%s] where %s;", tbl.TableName(), where), Params: params}, nil
}

// BuildSelectByKey generates a single row select by primary key:
//
//	select * from [T] where [Id]=@Id;
func BuildSelectByKey[T any](tbl *Table[T], key any) (Statement, error) {
	where, params, err := keyPredicate(tbl, key)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: fmt.Sprintf("select * from [%s] where %s;", tbl.TableName(), where), Params: params}, nil
}

// BuildSelectAll generates a select of the whole table.
func BuildSelectAll[T any](tbl *Table[T]) Statement {
	return Statement{SQL: fmt.Sprintf("select * from [%s];", tbl.TableName()), Params: NewParameters()}
}

// keyPredicate coerces key into the primary key's type and returns the
// "[Id]=@Id" predicate with its parameter.
func keyPredicate[T any](tbl *Table[T], key any) (string, *Parameters, error) {
	pk, ok := tbl.PrimaryKey()
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, tbl.TableName())
	}
	if pk.Nullable {
		return "", nil, fmt.Errorf("%w: %s.%s", ErrNullablePrimaryKey, tbl.TableName(), pk.Name)
	}
	key, ok = derefValue(key)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s.%s", ErrMissingKeyValue, tbl.TableName(), pk.Name)
	}
	v, err := ChangeType(key, pk.Type)
	if err != nil {
		return "", nil, err
	}
	wt, err := ToWireType(pk.Type)
	if err != nil {
		return "", nil, err
	}
	params := NewParameters().AddTypedValue("@"+pk.Name, wt, v, false)
	return fmt.Sprintf("[%s]=@%s", pk.Name, pk.Name), params, nil
}

// derefValue follows pointers. It reports false for nil and nil pointers.
func derefValue(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return v, true
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}
