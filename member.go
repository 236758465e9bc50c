package xrecord

import (
	"reflect"
	"strings"
)

// Role is a bit set of the role markers a member can carry.
type Role uint8

const (
	// RoleIdentity marks a column the database generates. It is never
	// written by inserts or updates.
	RoleIdentity Role = 1 << iota
	// RolePrimaryKey marks the single member identifying a row.
	RolePrimaryKey
	// RoleNotInTable marks a member that can be read from result sets but
	// has no backing column for inserts and updates.
	RoleNotInTable
	// RoleHasColumnDefault marks a column with a database default. Inserts
	// leave it out while the member holds its zero value.
	RoleHasColumnDefault
)

var roleNames = []struct {
	role Role
	name string
}{
	{RolePrimaryKey, "pk"},
	{RoleIdentity, "identity"},
	{RoleNotInTable, "notintable"},
	{RoleHasColumnDefault, "default"},
}

// Has reports whether every bit of x is set in r.
func (r Role) Has(x Role) bool { return r&x == x && x != 0 }

func (r Role) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	for _, rn := range roleNames {
		if r.Has(rn.role) {
			parts = append(parts, rn.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseRole maps a role marker as written in struct tags and schema files
// onto its Role bit. Matching ignores case.
func ParseRole(s string) (Role, bool) {
	switch toLowerAscii(strings.TrimSpace(s)) {
	case "pk", "primarykey", "primary_key":
		return RolePrimaryKey, true
	case "identity":
		return RoleIdentity, true
	case "notintable", "not_in_table":
		return RoleNotInTable, true
	case "default", "hascolumndefault", "has_column_default":
		return RoleHasColumnDefault, true
	}
	return 0, false
}

// MemberKind separates plain struct fields from accessor pairs. The mapping
// cache keeps one entry set per kind.
type MemberKind uint8

const (
	KindField MemberKind = iota
	KindAccessor

	kindCount = 2
)

func (k MemberKind) String() string {
	if k == KindAccessor {
		return "accessor"
	}
	return "field"
}

// Member describes one mappable member of a type.
//
// Name, Type, Nullable, Role and Kind are type level and shared by every
// instance. Value is only filled by ResolveWithValues; nil means null.
// Type is the declared type with the nullable (pointer) wrapper removed.
type Member struct {
	Name     string
	Type     reflect.Type
	Nullable bool
	Role     Role
	Kind     MemberKind
	Value    any
}

func (m Member) IsIdentity() bool       { return m.Role.Has(RoleIdentity) }
func (m Member) IsPrimaryKey() bool     { return m.Role.Has(RolePrimaryKey) }
func (m Member) NotInTable() bool       { return m.Role.Has(RoleNotInTable) }
func (m Member) HasColumnDefault() bool { return m.Role.Has(RoleHasColumnDefault) }

// inherentlyNullable reports whether a null can land in a non-nullable
// member of this type as its zero value.
func (m Member) inherentlyNullable() bool {
	return m.Type == typeString || m.Type == typeBytes || m.Type == typeObject
}

// Resolve returns the type level members of a registered type, in
// declaration order. It performs no caching; see Cache for that.
func Resolve(r *Registry, rt reflect.Type) ([]Member, error) {
	d, err := r.Lookup(rt)
	if err != nil {
		return nil, err
	}
	return d.Members(), nil
}

// ResolveWithValues returns the members of v with Value set from the instance.
func ResolveWithValues[T any](tbl *Table[T], v *T) []Member {
	return tbl.ValuesOf(v)
}
