package xrecord

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Schema is a declarative role override file. Each entry names a
// registered type and replaces the roles of the members it lists:
//
//	version: "1"
//	tables:
//	  - type: Customer
//	    members:
//	      CustomerId: [pk, identity]
//	      Notes: [notintable]
//
// Members not listed keep the roles their table declared. Type names are
// either bare ("Customer") or package qualified ("example.com/app/models.Customer").
type Schema struct {
	Version string        `yaml:"version"`
	Tables  []TableSchema `yaml:"tables"`
}

type TableSchema struct {
	Type    string              `yaml:"type"`
	Members map[string][]string `yaml:"members"`
}

const schemaVersion = "1"

// ParseSchema decodes a schema document. Unknown keys are rejected.
func ParseSchema(data []byte) (*Schema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Schema
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrSchema)
		}
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if s.Version != "" && s.Version != schemaVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrSchema, s.Version)
	}
	for i, t := range s.Tables {
		if t.Type == "" {
			return nil, fmt.Errorf("%w: tables[%d] has no type", ErrSchema, i)
		}
	}
	return &s, nil
}

// LoadSchemaFile reads and parses the schema file at path.
func LoadSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Apply rewrites the roles of the registered tables s names. Every table
// is validated before any is replaced, so a failing schema leaves r as it
// was.
func (s *Schema) Apply(r *Registry) error {
	updated := make([]Descriptor, 0, len(s.Tables))
	for _, ts := range s.Tables {
		d, err := r.findByName(ts.Type)
		if err != nil {
			if errors.Is(err, ErrNotRegistered) {
				return fmt.Errorf("%w: %v", ErrSchema, err)
			}
			return err
		}
		roles := make(map[string]Role, len(ts.Members))
		for member, names := range ts.Members {
			var role Role
			for _, n := range names {
				x, ok := ParseRole(n)
				if !ok {
					return fmt.Errorf("%w: %s.%s: unknown role %q", ErrSchema, ts.Type, member, n)
				}
				role |= x
			}
			roles[toLowerAscii(member)] = role
		}
		nd, err := d.withRoles(roles)
		if err != nil {
			return fmt.Errorf("%s: %w", ts.Type, err)
		}
		updated = append(updated, nd)
	}
	for _, d := range updated {
		r.Add(d)
	}
	return nil
}

// SchemaOf describes the current roles of every table in r. Members
// without roles are left out.
func SchemaOf(r *Registry) *Schema {
	s := &Schema{Version: schemaVersion}
	for _, d := range r.Descriptors() {
		ts := TableSchema{Type: typeFullName(d.Type()), Members: map[string][]string{}}
		for _, m := range d.Members() {
			if m.Role == 0 {
				continue
			}
			var names []string
			for _, rn := range roleNames {
				if m.Role.Has(rn.role) {
					names = append(names, rn.name)
				}
			}
			ts.Members[m.Name] = names
		}
		s.Tables = append(s.Tables, ts)
	}
	sort.Slice(s.Tables, func(i, j int) bool { return s.Tables[i].Type < s.Tables[j].Type })
	return s
}

// Marshal encodes s as YAML.
func (s *Schema) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
