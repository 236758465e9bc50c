package gen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"

	"github.com/go-mizu/xrecord"
)

const xrecordPath = "github.com/go-mizu/xrecord"

var fileTemplate = template.Must(template.New("file").Funcs(template.FuncMap{
	"roles": roleArgs,
}).Parse(`// Code generated by xrecordgen. DO NOT EDIT.

package {{.Package}}

import (
{{- range .Imports}}
	"{{.}}"
{{- end}}
)
{{range .Structs}}{{$s := .Name}}
// {{$s}}Table is the static descriptor table of {{$s}}.
var {{$s}}Table = xrecord.MustTable(xrecord.NewTable[{{$s}}]("{{$s}}", nil,
{{- range .Fields}}
{{- if .Nullable}}
	xrecord.NullCol("{{.Column}}",
		func(r *{{$s}}) *{{.GoType}} { return r.{{.GoName}} },
		func(r *{{$s}}, v *{{.GoType}}) { r.{{.GoName}} = v }{{roles .Roles}}),
{{- else}}
	xrecord.Col("{{.Column}}",
		func(r *{{$s}}) {{.GoType}} { return r.{{.GoName}} },
		func(r *{{$s}}, v {{.GoType}}) { r.{{.GoName}} = v }{{roles .Roles}}),
{{- end}}
{{- end}}
))
{{end}}`))

var roleConsts = []struct {
	role xrecord.Role
	name string
}{
	{xrecord.RolePrimaryKey, "xrecord.RolePrimaryKey"},
	{xrecord.RoleIdentity, "xrecord.RoleIdentity"},
	{xrecord.RoleNotInTable, "xrecord.RoleNotInTable"},
	{xrecord.RoleHasColumnDefault, "xrecord.RoleHasColumnDefault"},
}

func roleArgs(r xrecord.Role) string {
	var b strings.Builder
	for _, rc := range roleConsts {
		if r.Has(rc.role) {
			b.WriteString(", ")
			b.WriteString(rc.name)
		}
	}
	return b.String()
}

// Render produces the formatted source of f.
func Render(f *File) ([]byte, error) {
	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, f); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("formatting code: %w", err)
	}
	return out, nil
}
