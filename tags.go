package xrecord

import (
	"fmt"
	"reflect"
)

// TableOf derives the descriptor table of T from its exported fields and
// their `db` struct tags:
//
//	type Customer struct {
//	    CustomerID int32      `db:"CustomerId,pk,identity"`
//	    Name       string
//	    Email      *string
//	    Created    time.Time  `db:",default"`
//	    Orders     int32      `db:",notintable"`
//	    Notes      []string   `db:"-"`
//	}
//
// Pointer fields are nullable members of the pointee type. Embedded structs
// (and fields tagged `,inline`) are flattened. Every other field must have a
// type from the conversion table. Reflection runs once here; reads and
// writes afterwards go through the index paths captured below.
func TableOf[T any]() (*Table[T], error) {
	rt := typeOf[T]()
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, rt)
	}
	fields, err := structFields(rt)
	if err != nil {
		return nil, err
	}
	t := &Table[T]{name: rt.Name(), rt: rt, factory: func() *T { return new(T) }, pk: -1}
	for _, f := range fields {
		t.cols = append(t.cols, fieldColumn[T](f))
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return t, nil
}

type structField struct {
	name     string
	path     []int
	typ      reflect.Type // unwrapped
	nullable bool
	role     Role
}

func structFields(rt reflect.Type) ([]structField, error) {
	var out []structField
	seen := make(map[string]struct{})

	var walk func(t reflect.Type, base []int, forceInline bool) error
	walk = func(t reflect.Type, base []int, forceInline bool) error {
		t = derefPtr(t)
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous {
				continue
			}
			tag := sf.Tag.Get("db")
			name, role, inline, omit := ParseTag(tag)
			if omit {
				continue
			}
			ft := sf.Type
			path := append(append([]int(nil), base...), i)

			if inline || (sf.Anonymous && (forceInline || tag == "")) {
				if et := derefPtr(ft); et.Kind() == reflect.Struct && !IsSupported(et) {
					if err := walk(ft, path, inline); err != nil {
						return err
					}
					continue
				}
			}
			if sf.PkgPath != "" {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			lc := toLowerAscii(name)
			if _, dup := seen[lc]; dup {
				return fmt.Errorf("%w: %s.%s", ErrDuplicateMember, rt.Name(), name)
			}
			seen[lc] = struct{}{}

			typ, nullable := ft, false
			if ft.Kind() == reflect.Pointer {
				typ, nullable = ft.Elem(), true
			}
			if !IsSupported(typ) {
				return fmt.Errorf("%s.%s: %w", rt.Name(), sf.Name, &UnsupportedTypeError{Value: ft})
			}
			out = append(out, structField{name: name, path: path, typ: typ, nullable: nullable, role: role})
		}
		return nil
	}
	if err := walk(rt, nil, false); err != nil {
		return nil, err
	}
	return out, nil
}

func fieldColumn[T any](f structField) column[T] {
	path := f.path
	c := column[T]{Member: Member{Name: f.name, Type: f.typ, Nullable: f.nullable, Role: f.role, Kind: KindField}}
	c.get = func(t *T) any {
		fv, ok := fieldByPath(reflect.ValueOf(t).Elem(), path)
		if !ok {
			return nil
		}
		if f.nullable {
			if fv.IsNil() {
				return nil
			}
			return fv.Elem().Interface()
		}
		return fv.Interface()
	}
	c.set = func(t *T, v any) {
		fv := fieldByPathAlloc(reflect.ValueOf(t).Elem(), path)
		switch {
		case v == nil:
			fv.Set(reflect.Zero(fv.Type()))
		case f.nullable:
			p := reflect.New(f.typ)
			p.Elem().Set(reflect.ValueOf(v))
			fv.Set(p)
		default:
			fv.Set(reflect.ValueOf(v))
		}
	}
	return c
}

// ParseTag reads a `db` tag. The first element is the column name (empty
// keeps the field name); the rest are role markers or "inline".
//
//	"-"                   omit
//	"CustomerId,pk"       renamed primary key
//	",identity,pk"        field name, identity primary key
//	",inline"             flatten a struct field
func ParseTag(tag string) (name string, roles Role, inline bool, omit bool) {
	if tag == "-" {
		return "", 0, false, true
	}
	if tag == "" {
		return "", 0, false, false
	}
	start, first := 0, true
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			switch {
			case first:
				if part == "inline" {
					inline = true
				} else {
					name = part
				}
			case part == "inline":
				inline = true
			default:
				if r, ok := ParseRole(part); ok {
					roles |= r
				}
			}
			first = false
			start = i + 1
		}
	}
	return name, roles, inline, false
}

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// fieldByPath walks fpath without allocating. It reports false when an
// embedded pointer on the way is nil.
func fieldByPath(root reflect.Value, fpath []int) (reflect.Value, bool) {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v, true
}

// fieldByPathAlloc walks fpath, allocating nil embedded pointers so the
// final field is settable.
func fieldByPathAlloc(root reflect.Value, fpath []int) reflect.Value {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}
