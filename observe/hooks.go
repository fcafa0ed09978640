package observe

import (
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Register forwards a registered read to o and returns the value to use.
func Register[T any](o Observer, value T, fn, ident, typeName string) T {
	if o == nil {
		return value
	}
	return coerce(value, o.Register(value, fn, ident, typeName))
}

// Propose reports a bound or assigned value to o. It yields value, so it can
// wrap an initializer.
func Propose[T any](o Observer, value T, fn, ident string) T {
	if o == nil {
		return value
	}
	o.Propose(value, fn, ident)
	return value
}

// Request forwards a requested read to o and returns the value to use.
func Request[T any](o Observer, value T, fn, ident string) T {
	if o == nil {
		return value
	}
	return coerce(value, o.Request(value, fn, ident))
}

// RequestArg is the call-argument form of Request.
func RequestArg[T any](o Observer, value T) T {
	if o == nil {
		return value
	}
	if ar, ok := o.(ArgRequester); ok {
		return coerce(value, ar.RequestArg(value))
	}
	return coerce(value, o.Request(value, "", ""))
}

// TypeOf returns the name of the static type of its argument.
func TypeOf[T any](T) string {
	return reflect.TypeFor[T]().String()
}

// coerce converts an observer result back to T. A T is used as is.
// Numbers convert to numeric T when the value is exactly representable.
// Anything else goes through its text form: strings directly, Stringers via
// String, other values via fmt. When the text does not parse as a T the
// original value is kept.
func coerce[T any](in T, out any) T {
	var text string
	switch v := out.(type) {
	case T:
		return v
	case nil:
		return in
	}
	if n, ok := convertNumber[T](out); ok {
		return n
	}

	switch v := out.(type) {
	case string:
		text = v
	case fmt.Stringer:
		text = v.String()
	default:
		text = fmt.Sprint(v)
	}

	parsed, err := ParseText[T](text)
	if err != nil {
		return in
	}
	return parsed
}

// convertNumber converts a numeric value to a numeric T. Floats convert to
// integers only when they are integral and in range.
func convertNumber[T any](value any) (T, bool) {
	var out T
	src := reflect.ValueOf(value)
	dst := reflect.ValueOf(&out).Elem()

	switch {
	case isInt(dst.Kind()):
		var n int64
		switch {
		case isInt(src.Kind()):
			n = src.Int()
		case isUint(src.Kind()):
			if src.Uint() > math.MaxInt64 {
				return out, false
			}
			n = int64(src.Uint())
		case isFloat(src.Kind()):
			f := src.Float()
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
				return out, false
			}
			n = int64(f)
		default:
			return out, false
		}
		if dst.OverflowInt(n) {
			return out, false
		}
		dst.SetInt(n)
	case isUint(dst.Kind()):
		var n uint64
		switch {
		case isInt(src.Kind()):
			if src.Int() < 0 {
				return out, false
			}
			n = uint64(src.Int())
		case isUint(src.Kind()):
			n = src.Uint()
		case isFloat(src.Kind()):
			f := src.Float()
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
				return out, false
			}
			n = uint64(f)
		default:
			return out, false
		}
		if dst.OverflowUint(n) {
			return out, false
		}
		dst.SetUint(n)
	case isFloat(dst.Kind()):
		var f float64
		switch {
		case isInt(src.Kind()):
			f = float64(src.Int())
		case isUint(src.Kind()):
			f = float64(src.Uint())
		case isFloat(src.Kind()):
			f = src.Float()
		default:
			return out, false
		}
		if dst.OverflowFloat(f) {
			return out, false
		}
		dst.SetFloat(f)
	default:
		return out, false
	}
	return out, true
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// ParseText parses text into a T. Types implementing
// encoding.TextUnmarshaler parse themselves; strings, booleans and numbers
// use strconv.
func ParseText[T any](text string) (T, error) {
	var out T
	if u, ok := any(&out).(encoding.TextUnmarshaler); ok {
		err := u.UnmarshalText([]byte(text))
		return out, err
	}

	v := reflect.ValueOf(&out).Elem()
	switch v.Kind() {
	case reflect.String:
		v.SetString(text)
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return out, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(text, 10, v.Type().Bits())
		if err != nil {
			return out, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(text, 10, v.Type().Bits())
		if err != nil {
			return out, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, v.Type().Bits())
		if err != nil {
			return out, err
		}
		v.SetFloat(f)
	case reflect.Complex64, reflect.Complex128:
		c, err := strconv.ParseComplex(text, v.Type().Bits())
		if err != nil {
			return out, err
		}
		v.SetComplex(c)
	default:
		return out, fmt.Errorf("cannot parse %q as %s", text, v.Type())
	}
	return out, nil
}
