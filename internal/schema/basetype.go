package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// BaseType is the structural category that drives coercion, value checks and
// input rendering. The set is closed; unrecognised names map to String.
type BaseType int

const (
	String BaseType = iota
	Int
	Decimal
	Bool
	DateTime
)

// String returns the canonical wire name.
func (b BaseType) String() string {
	if b < String || b > DateTime {
		return "string"
	}
	return handlers[b].name
}

// MarshalText implements encoding.TextMarshaler.
func (b BaseType) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// ParseBaseType maps a base type or type id name to a BaseType.
func ParseBaseType(name string) BaseType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int", "integer":
		return Int
	case "decimal", "double", "float":
		return Decimal
	case "bool", "boolean":
		return Bool
	case "datetime":
		return DateTime
	default:
		return String
	}
}

// Problem classifies why a non-empty value was rejected by its base type.
type Problem int

const (
	NoProblem Problem = iota
	InvalidInteger
	IntegerOutOfRange
	InvalidNumber
	InvalidDate
	InvalidEmail
)

// Int32 bounds enforced for integer fields.
const (
	MinInt32 = math.MinInt32
	MaxInt32 = math.MaxInt32
)

// InputKind selects the editing control for a field.
type InputKind string

const (
	InputText     InputKind = "text"
	InputCheckbox InputKind = "checkbox"
	InputDateTime InputKind = "datetime-local"
)

// Input describes how a stored value is presented for editing.
type Input struct {
	Kind    InputKind `json:"kind"`
	Mode    string    `json:"inputMode,omitempty"`
	Value   string    `json:"value"`
	Checked bool      `json:"checked,omitempty"`
}

// handler is one row of the dispatch table. Coercion, validation and input
// rendering all read the same row so they cannot drift apart.
type handler struct {
	name   string
	input  InputKind
	mode   string
	coerce func(v any) any
	check  func(v any, typeID string) Problem
}

var handlers = [...]handler{
	String: {
		name:   "string",
		input:  InputText,
		coerce: coerceString,
		check:  checkString,
	},
	Int: {
		name:   "int",
		input:  InputText,
		mode:   "numeric",
		coerce: coerceInt,
		check:  checkInt,
	},
	Decimal: {
		name:   "decimal",
		input:  InputText,
		mode:   "decimal",
		coerce: coerceDecimal,
		check:  checkDecimal,
	},
	Bool: {
		name:   "bool",
		input:  InputCheckbox,
		coerce: func(v any) any { return Truthy(v) },
		check:  func(any, string) Problem { return NoProblem },
	},
	DateTime: {
		name:   "datetime",
		input:  InputDateTime,
		coerce: coerceDateTime,
		check:  checkDateTime,
	},
}

func (b BaseType) row() handler {
	if b < String || b > DateTime {
		return handlers[String]
	}
	return handlers[b]
}

// Coerce converts a raw form value into its wire representation. It never
// fails: values the validator would reject pass through best-effort.
func (b BaseType) Coerce(v any) any {
	return b.row().coerce(v)
}

// Check reports whether a non-empty value is acceptable for the base type.
// typeID is the lower-cased semantic type id, used for "email".
func (b BaseType) Check(v any, typeID string) Problem {
	return b.row().check(v, typeID)
}

// OmitWhenEmpty reports whether an empty optional value is left out of payloads.
func (b BaseType) OmitWhenEmpty() bool {
	return b != Bool
}

// InputFor renders a stored value for the field's editing control.
func InputFor(f FieldDefinition, stored any) Input {
	row := f.Kind().row()
	in := Input{Kind: row.input, Mode: row.mode}
	switch row.input {
	case InputCheckbox:
		in.Checked = Truthy(stored)
	case InputDateTime:
		in.Value = TruncateDateTime(Stringify(stored))
	default:
		in.Value = Stringify(stored)
	}
	return in
}

// IsEmpty reports whether v is absent: nil or the empty string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Truthy mirrors form truthiness for checkbox values, with one deviation:
// strings that strconv.ParseBool accepts ("false", "0", "F", " true ") take
// their parsed value, so a stored "false" unchecks the box. Any other
// non-empty string is true. Numbers are true unless zero or NaN.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	default:
		if f, ok := toFloat(v); ok {
			return f != 0 && !math.IsNaN(f)
		}
		return true
	}
}

// Stringify renders a value for display; nil becomes "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// TruncateDateTime cuts an ISO-like timestamp to minute precision.
func TruncateDateTime(s string) string {
	if len(s) > 16 {
		return s[:16]
	}
	return s
}

var (
	canonicalInt  = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)
	leadingInt    = regexp.MustCompile(`^[+-]?[0-9]+`)
	leadingNumber = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// dateLayouts are tried in order when checking datetime values.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDateTime parses the timestamp shapes accepted for datetime fields.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	}
	return 0, false
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func checkString(v any, typeID string) Problem {
	if typeID != "email" {
		return NoProblem
	}
	s, ok := v.(string)
	if !ok || !emailPattern.MatchString(s) {
		return InvalidEmail
	}
	return NoProblem
}

func checkInt(v any, _ string) Problem {
	switch t := v.(type) {
	case string:
		return checkIntText(t)
	case json.Number:
		return checkIntText(t.String())
	case bool:
		return InvalidInteger
	}
	f, ok := toFloat(v)
	if !ok || !isFinite(f) || f != math.Trunc(f) {
		return InvalidInteger
	}
	if f < MinInt32 || f > MaxInt32 {
		return IntegerOutOfRange
	}
	return NoProblem
}

func checkIntText(s string) Problem {
	s = strings.TrimSpace(s)
	if !canonicalInt.MatchString(s) || s == "-0" {
		return InvalidInteger
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Well-formed digits beyond int64 are still out of range.
		return IntegerOutOfRange
	}
	if n < MinInt32 || n > MaxInt32 {
		return IntegerOutOfRange
	}
	return NoProblem
}

func checkDecimal(v any, _ string) Problem {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || !isFinite(f) {
			return InvalidNumber
		}
		return NoProblem
	case json.Number:
		f, err := t.Float64()
		if err != nil || !isFinite(f) {
			return InvalidNumber
		}
		return NoProblem
	}
	f, ok := toFloat(v)
	if !ok || !isFinite(f) {
		return InvalidNumber
	}
	return NoProblem
}

func checkDateTime(v any, _ string) Problem {
	switch t := v.(type) {
	case string:
		if _, ok := ParseDateTime(t); ok {
			return NoProblem
		}
		return InvalidDate
	case time.Time:
		if t.IsZero() {
			return InvalidDate
		}
		return NoProblem
	}
	if f, ok := toFloat(v); ok && isFinite(f) {
		return NoProblem
	}
	return InvalidDate
}

func coerceString(v any) any {
	if IsEmpty(v) {
		return ""
	}
	return Stringify(v)
}

func coerceInt(v any) any {
	if IsEmpty(v) {
		return int64(0)
	}
	switch t := v.(type) {
	case string:
		return parseIntPrefix(t, v)
	case json.Number:
		return parseIntPrefix(t.String(), v)
	case bool:
		return v
	}
	f, ok := toFloat(v)
	if !ok || !isFinite(f) || f < math.MinInt64 || f > math.MaxInt64 {
		return v
	}
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	}
	return int64(math.Trunc(f))
}

func parseIntPrefix(s string, orig any) any {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return orig
	}
	if n, err := strconv.ParseInt(m, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(m, 64); err == nil {
		return f
	}
	return orig
}

func coerceDecimal(v any) any {
	if IsEmpty(v) {
		return float64(0)
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	default:
		if f, ok := toFloat(v); ok {
			return f
		}
		return v
	}
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return v
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return v
	}
	return f
}

func coerceDateTime(v any) any {
	if IsEmpty(v) {
		return nil
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return Stringify(v)
}
