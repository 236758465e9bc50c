package xrecord

import (
	"fmt"
	"reflect"
)

// Descriptor is the type erased view of a Table used by the registry and the
// mapping cache.
type Descriptor interface {
	// TableName is the bare type name used in generated statements.
	TableName() string
	// Type is the mapped struct type.
	Type() reflect.Type
	// Members returns the type level members in declaration order.
	Members() []Member

	withRoles(roles map[string]Role) (Descriptor, error)
}

// Table is the statically declared descriptor table of a mapped type T: a
// factory plus one getter/setter pair per member. Tables are built once at
// startup (TableOf, NewTable or generated code) and are immutable afterwards.
type Table[T any] struct {
	name    string
	rt      reflect.Type
	factory func() *T
	cols    []column[T]
	byName  map[string]int // lower-case member name -> index in cols
	pk      int            // -1 when the type has no primary key
}

type column[T any] struct {
	Member
	get func(*T) any  // unwrapped value, nil for null
	set func(*T, any) // nil stores the zero value
}

// ColumnDef declares one member for NewTable.
type ColumnDef[T any] struct {
	col column[T]
}

// Col declares a non-nullable member backed by get/set.
func Col[T, V any](name string, get func(*T) V, set func(*T, V), roles ...Role) ColumnDef[T] {
	return ColumnDef[T]{col: column[T]{
		Member: Member{Name: name, Type: typeOf[V](), Role: joinRoles(roles), Kind: KindField},
		get:    func(t *T) any { return get(t) },
		set: func(t *T, v any) {
			if v == nil {
				var zero V
				set(t, zero)
				return
			}
			set(t, v.(V))
		},
	}}
}

// NullCol declares a nullable member whose Go representation is *V.
func NullCol[T, V any](name string, get func(*T) *V, set func(*T, *V), roles ...Role) ColumnDef[T] {
	return ColumnDef[T]{col: column[T]{
		Member: Member{Name: name, Type: typeOf[V](), Nullable: true, Role: joinRoles(roles), Kind: KindField},
		get: func(t *T) any {
			p := get(t)
			if p == nil {
				return nil
			}
			return *p
		},
		set: func(t *T, v any) {
			if v == nil {
				set(t, nil)
				return
			}
			val := v.(V)
			set(t, &val)
		},
	}}
}

// Accessor declares a member backed by accessor methods rather than a
// plain field. It behaves like Col but is cached under KindAccessor.
func Accessor[T, V any](name string, get func(*T) V, set func(*T, V), roles ...Role) ColumnDef[T] {
	d := Col(name, get, set, roles...)
	d.col.Kind = KindAccessor
	return d
}

// NullAccessor is the nullable form of Accessor.
func NullAccessor[T, V any](name string, get func(*T) *V, set func(*T, *V), roles ...Role) ColumnDef[T] {
	d := NullCol(name, get, set, roles...)
	d.col.Kind = KindAccessor
	return d
}

// NewTable builds the descriptor table of T from explicit column
// declarations. An empty name uses the bare type name; a nil factory uses new(T).
func NewTable[T any](name string, factory func() *T, cols ...ColumnDef[T]) (*Table[T], error) {
	rt := typeOf[T]()
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, rt)
	}
	if name == "" {
		name = rt.Name()
	}
	if factory == nil {
		factory = func() *T { return new(T) }
	}
	t := &Table[T]{name: name, rt: rt, factory: factory, pk: -1}
	for _, cd := range cols {
		t.cols = append(t.cols, cd.col)
	}
	if err := t.index(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustTable panics if err is non-nil. It is meant for package level table
// variables, generated ones included.
func MustTable[T any](t *Table[T], err error) *Table[T] {
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table[T]) index() error {
	t.byName = make(map[string]int, len(t.cols))
	t.pk = -1
	for i, c := range t.cols {
		if !IsSupported(c.Type) {
			return fmt.Errorf("%s.%s: %w", t.rt.Name(), c.Name, &UnsupportedTypeError{Value: c.Type})
		}
		lc := toLowerAscii(c.Name)
		if _, dup := t.byName[lc]; dup {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateMember, t.rt.Name(), c.Name)
		}
		t.byName[lc] = i
		if c.IsPrimaryKey() {
			if t.pk >= 0 {
				return fmt.Errorf("%w: %s (%s, %s)", ErrMultiplePrimaryKeys, t.rt.Name(), t.cols[t.pk].Name, c.Name)
			}
			t.pk = i
		}
	}
	return nil
}

func (t *Table[T]) TableName() string  { return t.name }
func (t *Table[T]) Type() reflect.Type { return t.rt }

// New returns a fresh instance from the table's factory.
func (t *Table[T]) New() *T { return t.factory() }

// Members returns the type level members. The slice is a copy.
func (t *Table[T]) Members() []Member {
	out := make([]Member, len(t.cols))
	for i := range t.cols {
		out[i] = t.cols[i].Member
	}
	return out
}

// PrimaryKey returns the primary key member, if the type declares one.
func (t *Table[T]) PrimaryKey() (Member, bool) {
	if t.pk < 0 {
		return Member{}, false
	}
	return t.cols[t.pk].Member, true
}

// ValuesOf returns the members of v with their current values.
func (t *Table[T]) ValuesOf(v *T) []Member {
	out := make([]Member, len(t.cols))
	for i := range t.cols {
		out[i] = t.cols[i].Member
		out[i].Value = t.cols[i].get(v)
	}
	return out
}

// Get reads one member of v by name (case-insensitive).
func (t *Table[T]) Get(v *T, name string) (any, bool) {
	i, ok := t.byName[toLowerAscii(name)]
	if !ok {
		return nil, false
	}
	return t.cols[i].get(v), true
}

// set stores an already coerced value. nil stores the zero value.
func (t *Table[T]) set(v *T, name string, val any) bool {
	i, ok := t.byName[toLowerAscii(name)]
	if !ok {
		return false
	}
	t.cols[i].set(v, val)
	return true
}

func (t *Table[T]) withRoles(roles map[string]Role) (Descriptor, error) {
	cp := &Table[T]{name: t.name, rt: t.rt, factory: t.factory}
	cp.cols = append([]column[T](nil), t.cols...)
	for lc, r := range roles {
		i, ok := t.byName[lc]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no member %q", ErrSchema, t.rt.Name(), lc)
		}
		cp.cols[i].Role = r
	}
	if err := cp.index(); err != nil {
		return nil, err
	}
	return cp, nil
}

func typeOf[V any]() reflect.Type { return reflect.TypeOf((*V)(nil)).Elem() }

func joinRoles(roles []Role) Role {
	var r Role
	for _, x := range roles {
		r |= x
	}
	return r
}

// typeFullName is the package qualified type name used in cache keys.
func typeFullName(rt reflect.Type) string {
	if rt.PkgPath() == "" {
		return rt.String()
	}
	return rt.PkgPath() + "." + rt.Name()
}
