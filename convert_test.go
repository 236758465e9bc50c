package xrecord

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionTable(t *testing.T) {
	tests := []struct {
		app     reflect.Type
		generic GenericType
		wire    WireType
	}{
		{reflect.TypeOf(false), GenericBoolean, WireBit},
		{reflect.TypeOf(byte(0)), GenericByte, WireTinyInt},
		{reflect.TypeOf([]byte(nil)), GenericBinary, WireImage},
		{reflect.TypeOf(time.Time{}), GenericDateTime, WireDateTime},
		{reflect.TypeOf(decimal.Decimal{}), GenericDecimal, WireDecimal},
		{reflect.TypeOf(float64(0)), GenericDouble, WireFloat},
		{reflect.TypeOf(uuid.UUID{}), GenericGuid, WireUniqueIdentifier},
		{reflect.TypeOf(int16(0)), GenericInt16, WireSmallInt},
		{reflect.TypeOf(int32(0)), GenericInt32, WireInt},
		{reflect.TypeOf(int64(0)), GenericInt64, WireBigInt},
		{reflect.TypeOf((*any)(nil)).Elem(), GenericObject, WireVariant},
		{reflect.TypeOf(""), GenericString, WireVarChar},
	}
	for _, tc := range tests {
		t.Run(tc.app.String(), func(t *testing.T) {
			g, err := ToGenericType(tc.app)
			require.NoError(t, err)
			assert.Equal(t, tc.generic, g)

			w, err := ToWireType(tc.app)
			require.NoError(t, err)
			assert.Equal(t, tc.wire, w)

			app, err := AppTypeOfGeneric(tc.generic)
			require.NoError(t, err)
			assert.Equal(t, tc.app, app)

			app, err = AppTypeOfWire(tc.wire)
			require.NoError(t, err)
			assert.Equal(t, tc.app, app)

			g, err = GenericOfWire(tc.wire)
			require.NoError(t, err)
			assert.Equal(t, tc.generic, g)

			w, err = WireOfGeneric(tc.generic)
			require.NoError(t, err)
			assert.Equal(t, tc.wire, w)
		})
	}
}

func TestConversionTable_Unsupported(t *testing.T) {
	_, err := ToGenericType(reflect.TypeOf(0))
	assert.ErrorIs(t, err, ErrUnsupportedType, "int is not widened to a supported type")

	_, err = ToWireType(reflect.TypeOf(float32(0)))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = AppTypeOfGeneric(GenericCurrency)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = AppTypeOfWire(WireNVarChar)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = WireOfGeneric(GenericXML)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = GenericOfWire(WireText)
	var ute *UnsupportedTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, WireText, ute.Value)

	_, err = ToGenericType(nil)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestChangeType(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	when := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		to   reflect.Type
		want any
	}{
		{"int64 to int32", int64(42), typeInt32, int32(42)},
		{"string to int32", "42", typeInt32, int32(42)},
		{"numeric text to int32", []byte("42.0"), typeInt32, int32(42)},
		{"int64 to int16", int64(-7), typeInt16, int16(-7)},
		{"int64 to byte", int64(255), typeByte, uint8(255)},
		{"float to int64", float64(3), typeInt64, int64(3)},
		{"int64 to bool", int64(1), typeBool, true},
		{"text to bool", "false", typeBool, false},
		{"int64 to float64", int64(2), typeFloat64, float64(2)},
		{"bytes to string", []byte("abc"), typeString, "abc"},
		{"int to string", int64(12), typeString, "12"},
		{"string to bytes", "hi", typeBytes, []byte("hi")},
		{"text to time", "2024-05-01T10:30:00Z", typeTime, when},
		{"sql text to time", "2024-05-01 10:30:00", typeTime, when},
		{"text to uuid", id.String(), typeUUID, id},
		{"bytes to uuid", id[:], typeUUID, id},
		{"array to uuid", [16]byte(id), typeUUID, id},
		{"anything to object", int64(5), typeObject, int64(5)},
		{"identity", int32(9), typeInt32, int32(9)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ChangeType(tc.in, tc.to)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got, spew.Sdump(tc.in))
		})
	}
}

func TestChangeType_Decimal(t *testing.T) {
	for _, in := range []any{"12.50", []byte("12.5"), float64(12.5), int64(12), int32(12), uint64(12)} {
		got, err := ChangeType(in, typeDecimal)
		require.NoError(t, err, spew.Sdump(in))
		d := got.(decimal.Decimal)
		assert.True(t, d.Equal(decimal.RequireFromString(d.String())))
		assert.True(t, d.GreaterThanOrEqual(decimal.NewFromInt(12)), d.String())
	}

	got, err := ChangeType(decimal.RequireFromString("7"), typeInt32)
	require.NoError(t, err)
	assert.Equal(t, int32(7), got)
}

func TestChangeType_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   any
		to   reflect.Type
	}{
		{"overflow int16", int64(math.MaxInt16 + 1), typeInt16},
		{"overflow byte", int64(256), typeByte},
		{"negative byte", int64(-1), typeByte},
		{"fraction", float64(1.5), typeInt32},
		{"decimal fraction", decimal.RequireFromString("1.25"), typeInt64},
		{"garbage int", "forty-two", typeInt32},
		{"bad time", "yesterday", typeTime},
		{"bad uuid", "not-a-uuid", typeUUID},
		{"empty uuid", "", typeUUID},
		{"bool to time", true, typeTime},
		{"nil to int", nil, typeInt32},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ChangeType(tc.in, tc.to)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConversion)
		})
	}

	_, err := ChangeType(int64(1), reflect.TypeOf(0))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestChangeType_CopiesBytes(t *testing.T) {
	src := []byte("abc")
	got, err := ChangeType(src, typeBytes)
	require.NoError(t, err)
	src[0] = 'x'
	assert.Equal(t, []byte("abc"), got)
}

func TestTypeNames(t *testing.T) {
	assert.Equal(t, "Int32", GenericInt32.String())
	assert.Equal(t, "UniqueIdentifier", WireUniqueIdentifier.String())
	assert.Equal(t, "GenericType(99)", GenericType(99).String())
}
