// Package types holds value conversions for loosely typed database documents.
//
// Document stores hand back numbers as whichever width the writer used, so a
// workspace's numObj may arrive as int32 in one document and int64 or a double
// in another.
package types

import "fmt"

// ToInt64 converts a numeric document value to int64.
// Supports the signed and unsigned integer kinds plus float32/float64 (truncated).
// The second return is false for nil and non-numeric values.
func ToInt64(v interface{}) (int64, bool) {
	switch i := v.(type) {
	case int64:
		return i, true
	case int:
		return int64(i), true
	case int32:
		return int64(i), true
	case int16:
		return int64(i), true
	case int8:
		return int64(i), true
	case uint:
		return int64(i), true
	case uint64:
		return int64(i), true
	case uint32:
		return int64(i), true
	case uint16:
		return int64(i), true
	case uint8:
		return int64(i), true
	case float64:
		return int64(i), true
	case float32:
		return int64(i), true
	default:
		return 0, false
	}
}

// ToBool converts a document flag to bool. Numeric 0/1 flags are accepted.
func ToBool(v interface{}) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if n, ok := ToInt64(v); ok {
		return n != 0, true
	}
	return false, false
}

// ToString converts a document value to string. []byte is accepted because
// SQL drivers return text columns that way when scanning into interface{}.
func ToString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// FieldError reports a document field that is missing or has the wrong type.
type FieldError struct {
	Field string
	Want  string
	Value interface{}
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q missing, want %s", e.Field, e.Want)
	}
	return fmt.Sprintf("field %q has %T value %v, want %s", e.Field, e.Value, e.Value, e.Want)
}

// Int64Field extracts a numeric field from a document.
func Int64Field(doc map[string]interface{}, field string) (int64, error) {
	v := doc[field]
	n, ok := ToInt64(v)
	if !ok {
		return 0, &FieldError{Field: field, Want: "number", Value: v}
	}
	return n, nil
}

// BoolField extracts a flag from a document. A missing flag is false.
func BoolField(doc map[string]interface{}, field string) (bool, error) {
	v, present := doc[field]
	if !present || v == nil {
		return false, nil
	}
	b, ok := ToBool(v)
	if !ok {
		return false, &FieldError{Field: field, Want: "bool", Value: v}
	}
	return b, nil
}

// StringField extracts a string field from a document.
func StringField(doc map[string]interface{}, field string) (string, error) {
	v := doc[field]
	s, ok := ToString(v)
	if !ok {
		return "", &FieldError{Field: field, Want: "string", Value: v}
	}
	return s, nil
}
