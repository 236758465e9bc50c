package gen

import (
	"fmt"
	"go/types"
	"reflect"
	"sort"

	"github.com/go-mizu/xrecord"
)

// Field is one generated column.
type Field struct {
	GoName   string // selector on the struct, e.g. "CustomerId" or "Home.Street"
	Column   string
	GoType   string // rendered declared type, e.g. "time.Time"
	Nullable bool
	Roles    xrecord.Role
}

// Struct is one generated table.
type Struct struct {
	Name   string
	Fields []Field
}

// File is the input of Render for one package.
type File struct {
	Package string
	Imports []string // sorted import paths, xrecord included
	Structs []Struct
}

// named types the conversion table supports, by package path and name.
var namedTypes = map[string]string{
	"time.Time":                             "time",
	"github.com/shopspring/decimal.Decimal": "github.com/shopspring/decimal",
	"github.com/google/uuid.UUID":           "github.com/google/uuid",
}

// Inspect describes st for rendering. Fields whose type has no conversion
// table entry are skipped and reported in warnings. imports receives the
// import paths the rendered types need.
func Inspect(name string, st *types.Struct, imports map[string]struct{}) (Struct, []string) {
	out := Struct{Name: name}
	var warnings []string
	seen := make(map[string]struct{})
	inspectFields(name, "", st, &out, &warnings, seen, imports)
	return out, warnings
}

// inspectFields walks st. prefix is the selector path from the owner to st:
// embedded structs keep it (their fields are promoted), inline fields of a
// named member extend it with "Member.".
func inspectFields(owner, prefix string, st *types.Struct, out *Struct, warnings *[]string, seen map[string]struct{}, imports map[string]struct{}) {
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		tag := reflect.StructTag(st.Tag(i)).Get("db")
		col, roles, inline, omit := xrecord.ParseTag(tag)
		if omit {
			continue
		}
		if f.Embedded() || inline {
			if sub, ok := types.Unalias(f.Type()).Underlying().(*types.Struct); ok {
				if _, isNamed := namedTypeKey(f.Type()); !isNamed {
					next := prefix
					if !f.Embedded() {
						next = prefix + f.Name() + "."
					}
					inspectFields(owner, next, sub, out, warnings, seen, imports)
					continue
				}
			}
			if _, ok := types.Unalias(f.Type()).(*types.Pointer); ok {
				*warnings = append(*warnings, fmt.Sprintf("%s.%s: embedded pointer skipped", owner, f.Name()))
				continue
			}
		}
		if !f.Exported() {
			continue
		}
		if col == "" {
			col = f.Name()
		}
		key := lower(col)
		if _, dup := seen[key]; dup {
			*warnings = append(*warnings, fmt.Sprintf("%s.%s: duplicate column %q skipped", owner, f.Name(), col))
			continue
		}

		t, nullable := types.Unalias(f.Type()), false
		if p, ok := t.(*types.Pointer); ok {
			t, nullable = types.Unalias(p.Elem()), true
		}
		goType, pkg, ok := classify(t)
		if !ok {
			*warnings = append(*warnings, fmt.Sprintf("%s.%s: unsupported type %s skipped", owner, f.Name(), f.Type()))
			continue
		}
		if pkg != "" {
			imports[pkg] = struct{}{}
		}
		seen[key] = struct{}{}
		out.Fields = append(out.Fields, Field{
			GoName:   prefix + f.Name(),
			Column:   col,
			GoType:   goType,
			Nullable: nullable,
			Roles:    roles,
		})
	}
}

// classify maps t onto the spelling of a supported declared type and the
// import it needs.
func classify(t types.Type) (string, string, bool) {
	switch u := t.(type) {
	case *types.Basic:
		switch u.Kind() {
		case types.Bool:
			return "bool", "", true
		case types.Uint8:
			return "byte", "", true
		case types.Int16:
			return "int16", "", true
		case types.Int32:
			return "int32", "", true
		case types.Int64:
			return "int64", "", true
		case types.Float64:
			return "float64", "", true
		case types.String:
			return "string", "", true
		}
	case *types.Slice:
		if b, ok := types.Unalias(u.Elem()).(*types.Basic); ok && b.Kind() == types.Uint8 {
			return "[]byte", "", true
		}
	case *types.Interface:
		if u.Empty() {
			return "any", "", true
		}
	case *types.Named:
		if key, ok := namedTypeKey(u); ok {
			path := namedTypes[key]
			return u.Obj().Pkg().Name() + "." + u.Obj().Name(), path, true
		}
	}
	return "", "", false
}

func namedTypeKey(t types.Type) (string, bool) {
	n, ok := types.Unalias(t).(*types.Named)
	if !ok || n.Obj().Pkg() == nil {
		return "", false
	}
	key := n.Obj().Pkg().Path() + "." + n.Obj().Name()
	_, ok = namedTypes[key]
	return key, ok
}

// InspectPackage describes every exported, non-generic struct type of pkg
// (or only those named in only, when it is non-empty).
func InspectPackage(pkg *types.Package, only []string) (*File, []string) {
	want := make(map[string]bool, len(only))
	for _, n := range only {
		want[n] = true
	}
	imports := map[string]struct{}{xrecordPath: {}}
	file := &File{Package: pkg.Name()}
	var warnings []string
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !tn.Exported() || tn.IsAlias() {
			continue
		}
		if len(want) > 0 && !want[name] {
			continue
		}
		named, ok := tn.Type().(*types.Named)
		if !ok || named.TypeParams().Len() > 0 {
			continue
		}
		st, ok := named.Underlying().(*types.Struct)
		if !ok {
			continue
		}
		s, w := Inspect(name, st, imports)
		warnings = append(warnings, w...)
		if len(s.Fields) == 0 {
			warnings = append(warnings, name+": no mappable fields, skipped")
			continue
		}
		file.Structs = append(file.Structs, s)
	}
	for p := range imports {
		file.Imports = append(file.Imports, p)
	}
	sort.Strings(file.Imports)
	return file, warnings
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
