package xrecord

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag    string
		name   string
		roles  Role
		inline bool
		omit   bool
	}{
		{"", "", 0, false, false},
		{"-", "", 0, false, true},
		{"col", "col", 0, false, false},
		{",inline", "", 0, true, false},
		{"inline", "", 0, true, false},
		{"col,inline", "col", 0, true, false},
		{"Id,pk,identity", "Id", RolePrimaryKey | RoleIdentity, false, false},
		{",notintable", "", RoleNotInTable, false, false},
		{",default,PK", "", RoleHasColumnDefault | RolePrimaryKey, false, false},
		{",bogus", "", 0, false, false},
	}
	for _, tc := range tests {
		name, roles, inline, omit := ParseTag(tc.tag)
		assert.Equal(t, tc.name, name, tc.tag)
		assert.Equal(t, tc.roles, roles, tc.tag)
		assert.Equal(t, tc.inline, inline, tc.tag)
		assert.Equal(t, tc.omit, omit, tc.tag)
	}
}

func TestRole(t *testing.T) {
	r := RolePrimaryKey | RoleIdentity
	assert.True(t, r.Has(RoleIdentity))
	assert.False(t, r.Has(RoleNotInTable))
	assert.False(t, r.Has(0))
	assert.Equal(t, "pk,identity", r.String())
	assert.Equal(t, "none", Role(0).String())

	got, ok := ParseRole("HasColumnDefault")
	assert.True(t, ok)
	assert.Equal(t, RoleHasColumnDefault, got)
	_, ok = ParseRole("unique")
	assert.False(t, ok)
}

func TestTableOf_Members(t *testing.T) {
	tbl := newCustomerTable(t)
	assert.Equal(t, "Customer", tbl.TableName())

	ms := tbl.Members()
	require.Len(t, ms, 14)
	assert.Equal(t, "CustomerId", ms[0].Name)
	assert.True(t, ms[0].IsPrimaryKey())
	assert.True(t, ms[0].IsIdentity())
	assert.Equal(t, typeInt32, ms[0].Type)

	email := ms[2]
	assert.Equal(t, "Email", email.Name)
	assert.True(t, email.Nullable)
	assert.Equal(t, typeString, email.Type, "nullable wrapper is removed")

	assert.True(t, ms[5].HasColumnDefault())
	assert.True(t, ms[13].NotInTable())

	pk, ok := tbl.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "CustomerId", pk.Name)
}

func TestTableOf_InlineAndOmit(t *testing.T) {
	type Audit struct {
		CreatedAt time.Time
		CreatedBy string `db:"created_by"`
	}
	type Note struct {
		Audit
		ID   int64 `db:"id,pk"`
		Body string
		Skip []int `db:"-"`
		hide int
	}
	_ = Note{hide: 1}

	tbl, err := TableOf[Note]()
	require.NoError(t, err)
	names := memberNames(tbl.Members())
	assert.Equal(t, []string{"CreatedAt", "created_by", "id", "Body"}, names, "embedded fields flatten in place")

	n := &Note{ID: 3, Audit: Audit{CreatedBy: "ada"}, Body: "hi"}
	v, ok := tbl.Get(n, "CREATED_BY")
	require.True(t, ok)
	assert.Equal(t, "ada", v)

	require.True(t, tbl.set(n, "created_by", "bob"))
	assert.Equal(t, "bob", n.CreatedBy)
	assert.False(t, tbl.set(n, "missing", "x"))
}

func TestTableOf_InlineNamedField(t *testing.T) {
	type Version struct{ Version int64 }
	type Address struct {
		Street string
		Zip    string `db:"zip_code"`
		Version
	}
	type Person struct {
		ID   int32   `db:",pk"`
		Home Address `db:",inline"`
	}

	tbl, err := TableOf[Person]()
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Street", "zip_code", "Version"}, memberNames(tbl.Members()))

	p := &Person{ID: 1, Home: Address{Street: "Main", Zip: "0150"}}
	v, ok := tbl.Get(p, "zip_code")
	require.True(t, ok)
	assert.Equal(t, "0150", v)

	require.True(t, tbl.set(p, "Version", int64(4)))
	assert.Equal(t, int64(4), p.Home.Version)
}

func TestTableOf_EmbeddedPointer(t *testing.T) {
	type Base struct{ Tenant int32 }
	type Row struct {
		*Base
		Name string
	}
	tbl, err := TableOf[Row]()
	require.NoError(t, err)

	r := &Row{Name: "x"}
	v, ok := tbl.Get(r, "Tenant")
	require.True(t, ok)
	assert.Nil(t, v, "nil embedded pointer reads as null")

	tbl.set(r, "Tenant", int32(7))
	require.NotNil(t, r.Base)
	assert.Equal(t, int32(7), r.Tenant)
}

func TestTableOf_Errors(t *testing.T) {
	type BadType struct {
		Count int
	}
	_, err := TableOf[BadType]()
	assert.ErrorIs(t, err, ErrUnsupportedType)

	type TwoKeys struct {
		A int32 `db:",pk"`
		B int32 `db:",pk"`
	}
	_, err = TableOf[TwoKeys]()
	assert.ErrorIs(t, err, ErrMultiplePrimaryKeys)

	type Dup struct {
		A int32 `db:"x"`
		B int32 `db:"X"`
	}
	_, err = TableOf[Dup]()
	assert.ErrorIs(t, err, ErrDuplicateMember)

	_, err = TableOf[int]()
	assert.ErrorIs(t, err, ErrNotStruct)
}

func TestNewTable_Builder(t *testing.T) {
	tbl := newOrderTable(t)
	assert.Equal(t, "Orders", tbl.TableName())

	ms := tbl.Members()
	require.Len(t, ms, 4)
	assert.Equal(t, KindAccessor, ms[3].Kind)
	assert.True(t, ms[3].Nullable)

	o := tbl.New()
	o.SetNote(ptr("rush"))
	o.Number = "A-1"
	vals := ResolveWithValues(tbl, o)
	assert.Equal(t, "A-1", vals[1].Value)
	assert.Equal(t, "rush", vals[3].Value)

	o.SetNote(nil)
	assert.Nil(t, tbl.ValuesOf(o)[3].Value)

	tbl.set(o, "note", "later")
	require.NotNil(t, o.Note())
	assert.Equal(t, "later", *o.Note())
	tbl.set(o, "Number", nil)
	assert.Equal(t, "", o.Number)
}

func TestNewTable_Errors(t *testing.T) {
	type T struct{ A, B int32 }
	_, err := NewTable[T]("", nil,
		Col("A", func(t *T) int32 { return t.A }, func(t *T, v int32) { t.A = v }),
		Col("a", func(t *T) int32 { return t.B }, func(t *T, v int32) { t.B = v }),
	)
	assert.ErrorIs(t, err, ErrDuplicateMember)

	type U struct{ N int }
	_, err = NewTable[U]("", nil, Col("N", func(u *U) int { return u.N }, func(u *U, v int) { u.N = v }))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	assert.Panics(t, func() { MustTable(NewTable[U]("", nil, Col("N", func(u *U) int { return u.N }, func(u *U, v int) { u.N = v }))) })
}

func TestRegistry(t *testing.T) {
	reg := testRegistry(t)

	ms, err := Resolve(reg, reflect.TypeOf(Customer{}))
	require.NoError(t, err)
	assert.Len(t, ms, 14)

	_, err = Resolve(reg, reflect.TypeOf(&Order{}))
	assert.NoError(t, err, "pointer types resolve to their element")

	_, err = Resolve(reg, reflect.TypeOf(struct{ X int32 }{}))
	assert.ErrorIs(t, err, ErrNotRegistered)

	tbl, err := TableFor[Order](reg)
	require.NoError(t, err)
	assert.Equal(t, "Orders", tbl.TableName())

	d, err := reg.findByName("Customer")
	require.NoError(t, err)
	assert.Equal(t, "Customer", d.TableName())
	_, err = reg.findByName(typeFullName(reflect.TypeOf(Order{})))
	assert.NoError(t, err)
	_, err = reg.findByName("Nope")
	assert.ErrorIs(t, err, ErrNotRegistered)

	assert.Len(t, reg.Descriptors(), 2)
}
