// Package convert assigns values produced by an embedded runtime (already
// lowered to plain Go values such as int64, float64, string, bool, []any and
// map[string]any) into caller-declared Go types.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Assign stores src into the variable pointed to by dst.
// Numeric kinds convert freely as long as no information is lost; a float with
// a fractional part never silently truncates into an integer.
func Assign(dst any, src any) error {
	if dst == nil {
		return fmt.Errorf("convert: nil destination")
	}
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("convert: destination must be a non-nil pointer, got %T", dst)
	}
	if p, ok := dst.(*any); ok {
		*p = src
		return nil
	}
	if src == nil {
		elem := rv.Elem()
		switch elem.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			elem.Set(reflect.Zero(elem.Type()))
			return nil
		}
		return fmt.Errorf("convert: cannot assign null to %s", elem.Type())
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: exactNumbers,
		Result:     dst,
		TagName:    "json",
	})
	if err != nil {
		return err
	}
	return dec.Decode(src)
}

// FromJSON decodes a JSON document and assigns it into dst. Integral numbers
// decode as int64 so that large integers stay exact.
func FromJSON(dst any, data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	return Assign(dst, v)
}

// ParseArgs decodes a JSON array of call arguments with the same number
// handling as FromJSON.
func ParseArgs(data []byte) ([]any, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	switch args := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return args, nil
	}
	return nil, fmt.Errorf("convert: arguments must be a JSON array, got %T", v)
}

// Normalize replaces json.Number values, at any depth, with int64 where the
// number is an exact integer and float64 otherwise.
func Normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = Normalize(x[i])
		}
		return x
	case map[string]any:
		for k, e := range x {
			x[k] = Normalize(e)
		}
		return x
	}
	return v
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("convert: decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("convert: decode json: trailing data")
	}
	return Normalize(v), nil
}

// TypeName renders the Go type of the pointee for error messages.
func TypeName(dst any) string {
	t := reflect.TypeOf(dst)
	if t == nil {
		return "<nil>"
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

// exactNumbers refuses any numeric conversion that would wrap, overflow or
// drop a fractional part.
func exactNumbers(from reflect.Type, to reflect.Type, data any) (any, error) {
	v := reflect.ValueOf(data)
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		return data, fromFloat(v.Float(), to)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return data, fromInt(v.Int(), to)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return data, fromUint(v.Uint(), to)
	}
	return data, nil
}

func fromFloat(f float64, to reflect.Type) error {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return fmt.Errorf("convert: %v is not an integer", f)
		}
		limit := math.Ldexp(1, to.Bits()-1)
		if f < -limit || f >= limit {
			return fmt.Errorf("convert: %v overflows %s", f, to)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f != math.Trunc(f) || f < 0 || math.IsInf(f, 0) {
			return fmt.Errorf("convert: %v is not an unsigned integer", f)
		}
		if f >= math.Ldexp(1, to.Bits()) {
			return fmt.Errorf("convert: %v overflows %s", f, to)
		}
	}
	return nil
}

func fromInt(n int64, to reflect.Type) error {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if bits := to.Bits(); bits < 64 {
			limit := int64(1) << (bits - 1)
			if n < -limit || n >= limit {
				return fmt.Errorf("convert: %d overflows %s", n, to)
			}
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n < 0 {
			return fmt.Errorf("convert: %d is not an unsigned integer", n)
		}
		return fromUint(uint64(n), to)
	}
	return nil
}

func fromUint(u uint64, to reflect.Type) error {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if u > uint64(1)<<(to.Bits()-1)-1 {
			return fmt.Errorf("convert: %d overflows %s", u, to)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if bits := to.Bits(); bits < 64 && u>>bits != 0 {
			return fmt.Errorf("convert: %d overflows %s", u, to)
		}
	}
	return nil
}
