package xrecord

import (
	"errors"
	"fmt"
	"reflect"
)

// Mapping and statement errors. All of them are raised synchronously by the
// call that detects them and are never retried; match them with errors.Is.
var (
	// ErrUnsupportedType is returned when a Go type, GenericType or WireType
	// has no entry in the conversion table. See UnsupportedTypeError.
	ErrUnsupportedType = errors.New("xrecord: unsupported type")

	// ErrNullIntoNonNullable is returned when a null column value targets a
	// non-nullable member and the caller did not ask for zero values.
	ErrNullIntoNonNullable = errors.New("xrecord: cannot use null with a non-nullable type")

	// ErrNoColumns is returned by BuildInsert when every member is an
	// identity, excluded, or a null nullable member.
	ErrNoColumns = errors.New("xrecord: no columns or values defined")

	// ErrNoPrimaryKey is returned when a key based statement is requested for
	// a type without a primary key member.
	ErrNoPrimaryKey = errors.New("xrecord: primary key not set for type")

	// ErrNullablePrimaryKey is returned when the primary key member is declared
	// through a nullable (pointer) type.
	ErrNullablePrimaryKey = errors.New("xrecord: primary key cannot be a nullable type")

	// ErrMissingKeyValue is returned when a key based statement receives a nil key.
	ErrMissingKeyValue = errors.New("xrecord: primary key value not provided")

	// ErrConversion is returned when a raw value cannot be coerced into a
	// member's declared type. See ConversionError.
	ErrConversion = errors.New("xrecord: conversion failed")
)

// Registration errors.
var (
	ErrNotRegistered       = errors.New("xrecord: type not registered")
	ErrMultiplePrimaryKeys = errors.New("xrecord: more than one primary key member")
	ErrDuplicateMember     = errors.New("xrecord: duplicate member name")
	ErrNotStruct           = errors.New("xrecord: mapped type must be a struct")
)

// Parameter errors.
var (
	// ErrParamConsumed is returned when a BoundParam is bound a second time.
	// Build a fresh one from its Parameters template instead.
	ErrParamConsumed = errors.New("xrecord: bound parameter already used by a statement")

	// ErrUnknownParam is returned when a lookup names a template that does not exist.
	ErrUnknownParam = errors.New("xrecord: unknown parameter")

	// ErrMissingParam is returned when statement text references a placeholder
	// that has no template.
	ErrMissingParam = errors.New("xrecord: missing parameter for placeholder")
)

// ErrSchema is returned for invalid schema files.
var ErrSchema = errors.New("xrecord: invalid schema")

// UnsupportedTypeError carries the value that was looked up in the
// conversion table: a reflect.Type, a GenericType or a WireType.
type UnsupportedTypeError struct {
	Value any
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnsupportedType.Error(), e.Value)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// ConversionError reports a raw value that could not be coerced into a
// declared type.
type ConversionError struct {
	Member string // empty when not converting for a member
	Value  any
	To     reflect.Type
	Err    error // optional underlying parse/range error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("%s: %T(%v) to %v", ErrConversion.Error(), e.Value, e.Value, e.To)
	if e.Member != "" {
		msg += " for member " + e.Member
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

func (e *ConversionError) Unwrap() error { return e.Err }
