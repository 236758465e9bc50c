package xrecord

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GenericType is the vendor neutral database type of a value.
type GenericType int

const (
	GenericAnsiString GenericType = iota + 1
	GenericBinary
	GenericByte
	GenericBoolean
	GenericCurrency
	GenericDate
	GenericDateTime
	GenericDecimal
	GenericDouble
	GenericGuid
	GenericInt16
	GenericInt32
	GenericInt64
	GenericObject
	GenericSingle
	GenericString
	GenericTime
	GenericXML
)

var genericNames = [...]string{
	GenericAnsiString: "AnsiString",
	GenericBinary:     "Binary",
	GenericByte:       "Byte",
	GenericBoolean:    "Boolean",
	GenericCurrency:   "Currency",
	GenericDate:       "Date",
	GenericDateTime:   "DateTime",
	GenericDecimal:    "Decimal",
	GenericDouble:     "Double",
	GenericGuid:       "Guid",
	GenericInt16:      "Int16",
	GenericInt32:      "Int32",
	GenericInt64:      "Int64",
	GenericObject:     "Object",
	GenericSingle:     "Single",
	GenericString:     "String",
	GenericTime:       "Time",
	GenericXML:        "Xml",
}

func (g GenericType) String() string {
	if g > 0 && int(g) < len(genericNames) {
		return genericNames[g]
	}
	return "GenericType(" + strconv.Itoa(int(g)) + ")"
}

// WireType is the SQL Server type tag used when binding a parameter.
type WireType int

const (
	WireBigInt WireType = iota + 1
	WireBinary
	WireBit
	WireChar
	WireDate
	WireDateTime
	WireDateTime2
	WireDecimal
	WireFloat
	WireImage
	WireInt
	WireMoney
	WireNChar
	WireNText
	WireNVarChar
	WireReal
	WireSmallDateTime
	WireSmallInt
	WireSmallMoney
	WireText
	WireTime
	WireTimestamp
	WireTinyInt
	WireUniqueIdentifier
	WireVarBinary
	WireVarChar
	WireVariant
	WireXML
)

var wireNames = [...]string{
	WireBigInt:           "BigInt",
	WireBinary:           "Binary",
	WireBit:              "Bit",
	WireChar:             "Char",
	WireDate:             "Date",
	WireDateTime:         "DateTime",
	WireDateTime2:        "DateTime2",
	WireDecimal:          "Decimal",
	WireFloat:            "Float",
	WireImage:            "Image",
	WireInt:              "Int",
	WireMoney:            "Money",
	WireNChar:            "NChar",
	WireNText:            "NText",
	WireNVarChar:         "NVarChar",
	WireReal:             "Real",
	WireSmallDateTime:    "SmallDateTime",
	WireSmallInt:         "SmallInt",
	WireSmallMoney:       "SmallMoney",
	WireText:             "Text",
	WireTime:             "Time",
	WireTimestamp:        "Timestamp",
	WireTinyInt:          "TinyInt",
	WireUniqueIdentifier: "UniqueIdentifier",
	WireVarBinary:        "VarBinary",
	WireVarChar:          "VarChar",
	WireVariant:          "Variant",
	WireXML:              "Xml",
}

func (w WireType) String() string {
	if w > 0 && int(w) < len(wireNames) {
		return wireNames[w]
	}
	return "WireType(" + strconv.Itoa(int(w)) + ")"
}

// Supported application types.
var (
	typeBool    = reflect.TypeOf(false)
	typeByte    = reflect.TypeOf(byte(0))
	typeBytes   = reflect.TypeOf([]byte(nil))
	typeTime    = reflect.TypeOf(time.Time{})
	typeDecimal = reflect.TypeOf(decimal.Decimal{})
	typeFloat64 = reflect.TypeOf(float64(0))
	typeUUID    = reflect.TypeOf(uuid.UUID{})
	typeInt16   = reflect.TypeOf(int16(0))
	typeInt32   = reflect.TypeOf(int32(0))
	typeInt64   = reflect.TypeOf(int64(0))
	typeObject  = reflect.TypeOf((*any)(nil)).Elem()
	typeString  = reflect.TypeOf("")
)

type typeEntry struct {
	app     reflect.Type
	generic GenericType
	wire    WireType
}

// The conversion table is filled before main runs and only read afterwards,
// so lookups take no locks.
var (
	typeEntries = []typeEntry{
		{typeBool, GenericBoolean, WireBit},
		{typeByte, GenericByte, WireTinyInt},
		{typeBytes, GenericBinary, WireImage},
		{typeTime, GenericDateTime, WireDateTime},
		{typeDecimal, GenericDecimal, WireDecimal},
		{typeFloat64, GenericDouble, WireFloat},
		{typeUUID, GenericGuid, WireUniqueIdentifier},
		{typeInt16, GenericInt16, WireSmallInt},
		{typeInt32, GenericInt32, WireInt},
		{typeInt64, GenericInt64, WireBigInt},
		{typeObject, GenericObject, WireVariant},
		{typeString, GenericString, WireVarChar},
	}

	byAppType = make(map[reflect.Type]*typeEntry, len(typeEntries))
	byGeneric = make(map[GenericType]*typeEntry, len(typeEntries))
	byWire    = make(map[WireType]*typeEntry, len(typeEntries))
)

func init() {
	for i := range typeEntries {
		e := &typeEntries[i]
		byAppType[e.app] = e
		byGeneric[e.generic] = e
		byWire[e.wire] = e
	}
}

func findApp(t reflect.Type) (*typeEntry, error) {
	if t == nil {
		return nil, &UnsupportedTypeError{Value: "<nil>"}
	}
	if e, ok := byAppType[t]; ok {
		return e, nil
	}
	return nil, &UnsupportedTypeError{Value: t}
}

// IsSupported reports whether t has a conversion table entry.
func IsSupported(t reflect.Type) bool {
	_, ok := byAppType[t]
	return ok
}

// ToGenericType returns the generic database type of Go type t.
func ToGenericType(t reflect.Type) (GenericType, error) {
	e, err := findApp(t)
	if err != nil {
		return 0, err
	}
	return e.generic, nil
}

// ToWireType returns the SQL Server type of Go type t.
func ToWireType(t reflect.Type) (WireType, error) {
	e, err := findApp(t)
	if err != nil {
		return 0, err
	}
	return e.wire, nil
}

// AppTypeOfGeneric returns the Go type registered for g.
func AppTypeOfGeneric(g GenericType) (reflect.Type, error) {
	if e, ok := byGeneric[g]; ok {
		return e.app, nil
	}
	return nil, &UnsupportedTypeError{Value: g}
}

// AppTypeOfWire returns the Go type registered for w.
func AppTypeOfWire(w WireType) (reflect.Type, error) {
	if e, ok := byWire[w]; ok {
		return e.app, nil
	}
	return nil, &UnsupportedTypeError{Value: w}
}

// GenericOfWire maps a SQL Server type onto its generic type.
func GenericOfWire(w WireType) (GenericType, error) {
	if e, ok := byWire[w]; ok {
		return e.generic, nil
	}
	return 0, &UnsupportedTypeError{Value: w}
}

// WireOfGeneric maps a generic type onto its SQL Server type.
func WireOfGeneric(g GenericType) (WireType, error) {
	if e, ok := byGeneric[g]; ok {
		return e.wire, nil
	}
	return 0, &UnsupportedTypeError{Value: g}
}

// ---------------- Value coercion ----------------

// ChangeType converts value into the Go type to. It accepts the values
// database/sql drivers produce (int64, float64, bool, []byte, string,
// time.Time) as well as any supported Go value. Numeric conversions are
// range checked and never truncate a fraction.
//
// A nil value is only accepted for the opaque object type; null handling for
// members is the materializer's job.
func ChangeType(value any, to reflect.Type) (any, error) {
	if _, err := findApp(to); err != nil {
		return nil, err
	}
	if value == nil {
		if to == typeObject {
			return nil, nil
		}
		return nil, &ConversionError{Value: value, To: to}
	}
	if to == typeObject {
		return value, nil
	}
	if reflect.TypeOf(value) == to {
		if b, ok := value.([]byte); ok {
			return append([]byte(nil), b...), nil
		}
		return value, nil
	}

	var (
		out any
		err error
	)
	switch to {
	case typeBool:
		out, err = toBool(value)
	case typeByte:
		var n int64
		n, err = toInt(value, 8, true)
		out = uint8(n)
	case typeInt16:
		var n int64
		n, err = toInt(value, 16, false)
		out = int16(n)
	case typeInt32:
		var n int64
		n, err = toInt(value, 32, false)
		out = int32(n)
	case typeInt64:
		out, err = toInt(value, 64, false)
	case typeFloat64:
		out, err = toFloat(value)
	case typeString:
		out, err = toString(value)
	case typeBytes:
		switch v := value.(type) {
		case string:
			out = []byte(v)
		default:
			err = errNoRule
		}
	case typeTime:
		out, err = toTime(value)
	case typeDecimal:
		var d decimal.Decimal
		err = d.Scan(normalizeNumeric(value))
		out = d
	case typeUUID:
		out, err = toUUID(value)
	default:
		err = errNoRule
	}
	if err != nil {
		ce := &ConversionError{Value: value, To: to}
		if err != errNoRule {
			ce.Err = err
		}
		return nil, ce
	}
	return out, nil
}

// errNoRule marks a source/target pair ChangeType has no rule for.
var errNoRule = errors.New("no conversion rule")

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	case []byte:
		return strconv.ParseBool(strings.TrimSpace(string(x)))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0, nil
	}
	return false, errNoRule
}

// toInt converts v into an integer that fits in bits (unsigned when
// unsigned is set).
func toInt(v any, bits int, unsigned bool) (int64, error) {
	var n int64
	switch x := v.(type) {
	case string:
		return parseInt(x, bits, unsigned)
	case []byte:
		return parseInt(string(x), bits, unsigned)
	case bool:
		if x {
			n = 1
		}
		return n, nil
	case decimal.Decimal:
		if !x.IsInteger() {
			return 0, fmt.Errorf("%s has a fraction", x)
		}
		if !x.Equal(decimal.NewFromInt(x.IntPart())) {
			return 0, strconv.ErrRange
		}
		return checkRange(x.IntPart(), bits, unsigned)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, strconv.ErrRange
		}
		n = int64(u)
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%v has a fraction", f)
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, strconv.ErrRange
		}
		n = int64(f)
	default:
		return 0, errNoRule
	}
	return checkRange(n, bits, unsigned)
}

func parseInt(s string, bits int, unsigned bool) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return checkRange(n, bits, unsigned)
	}
	// Numeric columns (scope_identity() among them) often arrive as "42" or "42.0".
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return toInt(d, bits, unsigned)
}

func checkRange(n int64, bits int, unsigned bool) (int64, error) {
	if unsigned {
		if n < 0 || (bits < 64 && n > int64(1)<<bits-1) {
			return 0, strconv.ErrRange
		}
		return n, nil
	}
	if bits < 64 {
		lim := int64(1) << (bits - 1)
		if n < -lim || n > lim-1 {
			return 0, strconv.ErrRange
		}
	}
	return n, nil
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, errNoRule
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	}
	return "", errNoRule
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func toTime(v any) (time.Time, error) {
	var s string
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return time.Time{}, errNoRule
	}
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func toUUID(v any) (uuid.UUID, error) {
	var u uuid.UUID
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x), nil
	case string:
		if x == "" {
			return u, fmt.Errorf("empty unique identifier")
		}
	case []byte:
		if len(x) == 0 {
			return u, fmt.Errorf("empty unique identifier")
		}
	default:
		return u, errNoRule
	}
	err := u.Scan(v)
	return u, err
}

// normalizeNumeric widens integer and float values to the shapes
// decimal.Decimal.Scan understands.
func normalizeNumeric(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	}
	return v
}
