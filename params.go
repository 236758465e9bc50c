package xrecord

import (
	"database/sql"
	"fmt"
	"strings"
)

// Direction is the direction of a statement parameter.
type Direction int

const (
	DirectionInput Direction = iota + 1
	DirectionOutput
	DirectionInputOutput
)

func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "in"
	case DirectionOutput:
		return "out"
	case DirectionInputOutput:
		return "inout"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// Parameters is a reusable collection of parameter templates. A template
// records only the attributes that were set explicitly; binding turns each
// one into a fresh BoundParam. Build a statement's collection once and
// re-bind it for every execution.
//
// The zero value is ready to use. A Parameters is not safe for concurrent
// mutation.
type Parameters struct {
	list []*template
}

type template struct {
	name      string
	value     any
	nullable  bool
	wire      WireType // 0: unset
	size      int
	hasSize   bool
	direction Direction // 0: unset
}

func NewParameters() *Parameters { return &Parameters{} }

func (p *Parameters) add(t *template) *Parameters {
	p.list = append(p.list, t)
	return p
}

// Add records a typed, sized parameter with no value.
func (p *Parameters) Add(name string, wt WireType, size int, nullable bool) *Parameters {
	return p.add(&template{name: name, wire: wt, size: size, hasSize: true, nullable: nullable})
}

// AddDirection records a typed parameter with an explicit direction, the
// usual way to declare an output parameter.
func (p *Parameters) AddDirection(name string, wt WireType, nullable bool, dir Direction) *Parameters {
	return p.add(&template{name: name, wire: wt, nullable: nullable, direction: dir})
}

// AddValue records an untyped input value.
func (p *Parameters) AddValue(name string, value any, nullable bool) *Parameters {
	return p.add(&template{name: name, value: value, nullable: nullable})
}

// AddWithValue records a typed, sized value with an optional direction.
func (p *Parameters) AddWithValue(name string, wt WireType, size int, value any, nullable bool, dir ...Direction) *Parameters {
	t := &template{name: name, wire: wt, size: size, hasSize: true, value: value, nullable: nullable}
	if len(dir) > 0 {
		t.direction = dir[0]
	}
	return p.add(t)
}

// AddTypedValue records a typed value with an optional direction.
func (p *Parameters) AddTypedValue(name string, wt WireType, value any, nullable bool, dir ...Direction) *Parameters {
	t := &template{name: name, wire: wt, value: value, nullable: nullable}
	if len(dir) > 0 {
		t.direction = dir[0]
	}
	return p.add(t)
}

// AddRange records one template per bound parameter, copying its name,
// wire type, size, value, nullability and direction.
func (p *Parameters) AddRange(bound []*BoundParam) *Parameters {
	for _, b := range bound {
		p.add(&template{
			name:      b.Name,
			value:     b.Value,
			nullable:  b.IsNullable,
			wire:      b.WireType,
			size:      b.Size,
			hasSize:   true,
			direction: b.Direction,
		})
	}
	return p
}

func (p *Parameters) Len() int { return len(p.list) }

// Clear removes every template.
func (p *Parameters) Clear() { p.list = p.list[:0] }

// At binds the i-th template. It panics if i is out of range.
func (p *Parameters) At(i int) *BoundParam { return p.list[i].bind() }

// ByName binds the template named name. Names match exactly.
func (p *Parameters) ByName(name string) (*BoundParam, error) {
	t := p.find(name)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return t.bind(), nil
}

// Names returns the template names in insertion order.
func (p *Parameters) Names() []string {
	out := make([]string, len(p.list))
	for i, t := range p.list {
		out[i] = t.name
	}
	return out
}

// Value returns the current value of the template named name.
func (p *Parameters) Value(name string) (any, bool) {
	t := p.find(name)
	if t == nil {
		return nil, false
	}
	return t.value, true
}

// SetValue replaces the value of the template named name, for reuse of a
// collection across executions.
func (p *Parameters) SetValue(name string, value any) error {
	t := p.find(name)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	t.value = value
	return nil
}

// ToBoundArray binds every template, in insertion order.
func (p *Parameters) ToBoundArray() []*BoundParam {
	out := make([]*BoundParam, len(p.list))
	for i, t := range p.list {
		out[i] = t.bind()
	}
	return out
}

// ReadBack copies the values that output and input/output parameters
// received during execution back into their templates.
func (p *Parameters) ReadBack(bound []*BoundParam) {
	for _, b := range bound {
		if b.Direction != DirectionOutput && b.Direction != DirectionInputOutput {
			continue
		}
		if t := p.find(b.Name); t != nil {
			t.value = b.Output()
		}
	}
}

func (p *Parameters) find(name string) *template {
	for _, t := range p.list {
		if t.name == name {
			return t
		}
	}
	return nil
}

func (t *template) bind() *BoundParam {
	b := &BoundParam{
		Name:       t.name,
		Value:      t.value,
		IsNullable: t.nullable,
		WireType:   WireNVarChar,
		Direction:  DirectionInput,
	}
	if t.wire != 0 {
		b.WireType = t.wire
	}
	if t.hasSize {
		b.Size = t.size
	}
	if t.direction != 0 {
		b.Direction = t.direction
	}
	return b
}

// BoundParam is a parameter ready for one statement execution. Attributes
// the template left unset carry the driver defaults: WireNVarChar, size 0,
// DirectionInput. A BoundParam belongs to a single execution; Arg fails
// with ErrParamConsumed the second time.
type BoundParam struct {
	Name       string
	Value      any // nil binds a database null
	IsNullable bool
	WireType   WireType
	Size       int
	Direction  Direction

	out      any
	consumed bool
}

// Arg converts p into a database/sql argument. The leading "@" of the name
// is dropped. Output and input/output parameters are passed as sql.Out.
func (p *BoundParam) Arg() (sql.NamedArg, error) {
	if p.consumed {
		return sql.NamedArg{}, fmt.Errorf("%w: %s", ErrParamConsumed, p.Name)
	}
	p.consumed = true
	name := strings.TrimPrefix(p.Name, "@")
	switch p.Direction {
	case DirectionOutput, DirectionInputOutput:
		p.out = p.Value
		return sql.Named(name, sql.Out{Dest: &p.out, In: p.Direction == DirectionInputOutput}), nil
	}
	return sql.Named(name, p.Value), nil
}

// Output returns the value an output parameter received, or nil before
// execution.
func (p *BoundParam) Output() any { return p.out }
