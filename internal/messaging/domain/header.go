package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// HeaderKind identifies which variant a HeaderValue holds.
type HeaderKind string

// Supported header kinds.
const (
	KindString HeaderKind = "string"
	KindInt    HeaderKind = "int"
	KindFloat  HeaderKind = "float"
	KindBool   HeaderKind = "bool"
	KindTime   HeaderKind = "time"
)

// HeaderValue is a scalar header value: exactly one of string, int64,
// float64, bool or timestamp. The zero value is an empty string.
type HeaderValue struct {
	kind HeaderKind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// StringHeader returns a string header value.
func StringHeader(v string) HeaderValue { return HeaderValue{kind: KindString, s: v} }

// IntHeader returns an integer header value.
func IntHeader(v int64) HeaderValue { return HeaderValue{kind: KindInt, i: v} }

// FloatHeader returns a floating point header value.
func FloatHeader(v float64) HeaderValue { return HeaderValue{kind: KindFloat, f: v} }

// BoolHeader returns a boolean header value.
func BoolHeader(v bool) HeaderValue { return HeaderValue{kind: KindBool, b: v} }

// TimeHeader returns a timestamp header value, normalized to UTC.
func TimeHeader(v time.Time) HeaderValue { return HeaderValue{kind: KindTime, t: v.UTC()} }

// Kind returns the variant held by v.
func (v HeaderValue) Kind() HeaderKind {
	if v.kind == "" {
		return KindString
	}
	return v.kind
}

// AsString returns the value when v holds a string.
func (v HeaderValue) AsString() (string, bool) { return v.s, v.Kind() == KindString }

// AsInt returns the value when v holds an integer.
func (v HeaderValue) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the value when v holds a float.
func (v HeaderValue) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the value when v holds a boolean.
func (v HeaderValue) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsTime returns the value when v holds a timestamp.
func (v HeaderValue) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// String renders the value as text, which is how transports without typed
// headers carry it. Timestamps use RFC 3339 in UTC.
func (v HeaderValue) String() string {
	switch v.Kind() {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.UTC().Format(time.RFC3339Nano)
	default:
		return v.s
	}
}

// Equal reports whether both values hold the same variant and value.
func (v HeaderValue) Equal(other HeaderValue) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	if v.Kind() == KindTime {
		return v.t.Equal(other.t)
	}
	return v.String() == other.String()
}

type headerJSON struct {
	Kind  HeaderKind      `json:"t"`
	Value json.RawMessage `json:"v"`
}

// MarshalJSON encodes v as {"t": kind, "v": value}.
func (v HeaderValue) MarshalJSON() ([]byte, error) {
	var raw any
	switch v.Kind() {
	case KindInt:
		raw = v.i
	case KindFloat:
		raw = v.f
	case KindBool:
		raw = v.b
	case KindTime:
		raw = v.t.UTC().Format(time.RFC3339Nano)
	default:
		raw = v.s
	}
	value, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(headerJSON{Kind: v.Kind(), Value: value})
}

// UnmarshalJSON decodes the tagged form written by MarshalJSON.
func (v *HeaderValue) UnmarshalJSON(data []byte) error {
	var h headerJSON
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}

	var err error
	switch h.Kind {
	case KindString, "":
		var s string
		err = json.Unmarshal(h.Value, &s)
		*v = StringHeader(s)
	case KindInt:
		var i int64
		err = json.Unmarshal(h.Value, &i)
		*v = IntHeader(i)
	case KindFloat:
		var f float64
		err = json.Unmarshal(h.Value, &f)
		*v = FloatHeader(f)
	case KindBool:
		var b bool
		err = json.Unmarshal(h.Value, &b)
		*v = BoolHeader(b)
	case KindTime:
		var s string
		if err = json.Unmarshal(h.Value, &s); err == nil {
			var t time.Time
			t, err = time.Parse(time.RFC3339Nano, s)
			*v = TimeHeader(t)
		}
	default:
		return fmt.Errorf("%w: unknown header kind %q", ErrInvalidHeader, h.Kind)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	return nil
}

// Headers maps header names to scalar values.
type Headers map[string]HeaderValue

// Clone returns a shallow copy of h. A nil map clones to an empty one.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Without returns a copy of h with the given keys removed.
func (h Headers) Without(keys ...string) Headers {
	out := h.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// GetString returns the header value when present and holding a string.
func (h Headers) GetString(key string) (string, bool) {
	v, ok := h[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Value implements driver.Valuer; headers are stored as JSON text.
func (h Headers) Value() (driver.Value, error) {
	if h == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]HeaderValue(h))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (h *Headers) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*h = Headers{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("%w: cannot scan %T into headers", ErrInvalidHeader, src)
	}

	out := Headers{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, (*map[string]HeaderValue)(&out)); err != nil {
			return err
		}
	}
	*h = out
	return nil
}
