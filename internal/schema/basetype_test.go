package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBaseType(t *testing.T) {
	tests := []struct {
		in   string
		want BaseType
	}{
		{"int", Int},
		{"Integer", Int},
		{"decimal", Decimal},
		{"double", Decimal},
		{"FLOAT", Decimal},
		{"bool", Bool},
		{"boolean", Bool},
		{"DateTime", DateTime},
		{"string", String},
		{"email", String},
		{"", String},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseBaseType(tt.in))
		})
	}
}

func TestFieldType_Kind(t *testing.T) {
	var nilType *FieldType
	assert.Equal(t, String, nilType.Kind())
	assert.Equal(t, DateTime, (&FieldType{ID: "datetime", BaseType: "DateTime"}).Kind())
	assert.Equal(t, Int, (&FieldType{ID: "int"}).Kind(), "falls back to id")
	assert.Equal(t, String, (&FieldType{ID: "email", BaseType: "string"}).Kind())
}

func TestCheckInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Problem
	}{
		{"plain", "42", NoProblem},
		{"padded", " 42 ", NoProblem},
		{"negative", "-17", NoProblem},
		{"max", "2147483647", NoProblem},
		{"min", "-2147483648", NoProblem},
		{"above max", "2147483648", IntegerOutOfRange},
		{"below min", "-2147483649", IntegerOutOfRange},
		{"beyond int64", "99999999999999999999", IntegerOutOfRange},
		{"leading zero", "042", InvalidInteger},
		{"plus sign", "+5", InvalidInteger},
		{"residue", "12abc", InvalidInteger},
		{"fraction", "1.5", InvalidInteger},
		{"negative zero", "-0", InvalidInteger},
		{"float whole", float64(7), NoProblem},
		{"float fraction", 7.5, InvalidInteger},
		{"float too big", float64(3e9), IntegerOutOfRange},
		{"int64", int64(42), NoProblem},
		{"json number", json.Number("12"), NoProblem},
		{"bool", true, InvalidInteger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Int.Check(tt.in, "int"))
		})
	}
}

func TestCheckDecimal(t *testing.T) {
	assert.Equal(t, NoProblem, Decimal.Check("3.14", "decimal"))
	assert.Equal(t, NoProblem, Decimal.Check("-1e3", "decimal"))
	assert.Equal(t, NoProblem, Decimal.Check(2.5, "decimal"))
	assert.Equal(t, InvalidNumber, Decimal.Check("abc", "decimal"))
	assert.Equal(t, InvalidNumber, Decimal.Check("Inf", "decimal"))
	assert.Equal(t, InvalidNumber, Decimal.Check("NaN", "decimal"))
	assert.Equal(t, InvalidNumber, Decimal.Check(false, "decimal"))
}

func TestCheckDateTime(t *testing.T) {
	for _, s := range []string{
		"2024-03-01",
		"2024-03-01T10:30",
		"2024-03-01T10:30:15",
		"2024-03-01T10:30:15Z",
		"2024-03-01T10:30:15.123+02:00",
		"2024-03-01 10:30",
	} {
		assert.Equal(t, NoProblem, DateTime.Check(s, "datetime"), s)
	}
	assert.Equal(t, InvalidDate, DateTime.Check("not a date", "datetime"))
	assert.Equal(t, InvalidDate, DateTime.Check("2024-13-01", "datetime"))
	assert.Equal(t, InvalidDate, DateTime.Check(true, "datetime"))
}

func TestCheckEmail(t *testing.T) {
	assert.Equal(t, NoProblem, String.Check("jane@example.com", "email"))
	assert.Equal(t, InvalidEmail, String.Check("jane@example", "email"))
	assert.Equal(t, InvalidEmail, String.Check("jane doe@example.com", "email"))
	assert.Equal(t, InvalidEmail, String.Check("@example.com", "email"))
	assert.Equal(t, NoProblem, String.Check("jane@example", "string"), "only the email type is checked")
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, int64(42), Int.Coerce("42"))
	assert.Equal(t, int64(12), Int.Coerce("12abc"), "best-effort prefix")
	assert.Equal(t, "abc", Int.Coerce("abc"), "unparsable passes through")
	assert.Equal(t, int64(0), Int.Coerce(""))
	assert.Equal(t, int64(3), Int.Coerce(3.9))
	assert.Equal(t, int64(2147483648), Int.Coerce("2147483648"), "range is the validator's job")

	assert.Equal(t, 3.5, Decimal.Coerce("3.5"))
	assert.Equal(t, 3.5, Decimal.Coerce("3.5kg"))
	assert.Equal(t, float64(0), Decimal.Coerce(nil))
	assert.Equal(t, "x", Decimal.Coerce("x"))

	assert.Equal(t, true, Bool.Coerce(true))
	assert.Equal(t, false, Bool.Coerce(""))
	assert.Equal(t, false, Bool.Coerce("false"))
	assert.Equal(t, true, Bool.Coerce("yes"))
	assert.Equal(t, false, Bool.Coerce(nil))

	assert.Nil(t, DateTime.Coerce(""))
	assert.Equal(t, "2024-03-01T10:30", DateTime.Coerce("2024-03-01T10:30"))

	assert.Equal(t, "", String.Coerce(nil))
	assert.Equal(t, "42", String.Coerce(float64(42)))
	assert.Equal(t, "true", String.Coerce(true))
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{"false", "0", "F", " FALSE ", "", nil, float64(0), json.Number("0"), false} {
		assert.False(t, Truthy(v), "%#v", v)
	}
	for _, v := range []any{"true", "1", " t ", "no", "off", "x", float64(-1), json.Number("2.5"), true, []any{}} {
		assert.True(t, Truthy(v), "%#v", v)
	}

	in := InputFor(FieldDefinition{Name: "Active", Type: &FieldType{ID: "bool", BaseType: "bool"}}, "false")
	assert.False(t, in.Checked, "stored string false leaves the box unchecked")
}

func TestInputFor(t *testing.T) {
	f := func(base string) FieldDefinition {
		return FieldDefinition{Name: "X", Type: &FieldType{ID: base, BaseType: base}}
	}

	in := InputFor(f("datetime"), "2024-03-01T10:30:15.000Z")
	assert.Equal(t, InputDateTime, in.Kind)
	assert.Equal(t, "2024-03-01T10:30", in.Value)

	in = InputFor(f("bool"), true)
	assert.Equal(t, InputCheckbox, in.Kind)
	assert.True(t, in.Checked)

	in = InputFor(f("int"), float64(12))
	assert.Equal(t, InputText, in.Kind)
	assert.Equal(t, "numeric", in.Mode)
	assert.Equal(t, "12", in.Value)

	in = InputFor(f("decimal"), nil)
	assert.Equal(t, "decimal", in.Mode)
	assert.Equal(t, "", in.Value)
}

func TestBaseType_MarshalText(t *testing.T) {
	b, err := json.Marshal(map[string]BaseType{"k": DateTime})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"datetime"}`, string(b))
}
