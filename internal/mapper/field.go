package mapper

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/R3E-Network/mvc_bridge/internal/node"
)

// Field is a settable member of T, declared explicitly through Bind.
type Field[T any] struct {
	member   string
	typeName string
	set      func(*T, any) error
	get      func(*T) any
}

// Bind declares member as the field reached through ptr.
func Bind[T, V any](member string, ptr func(*T) *V) Field[T] {
	return Field[T]{
		member:   member,
		typeName: reflect.TypeOf((*V)(nil)).Elem().String(),
		set: func(t *T, value any) error {
			return assign(ptr(t), value)
		},
		get: func(t *T) any {
			return *ptr(t)
		},
	}
}

// Member returns the declared member name.
func (f Field[T]) Member() string {
	return f.member
}

// Type returns the name of the member's declared type.
func (f Field[T]) Type() string {
	return f.typeName
}

// Set coerces value into the member of t. A nil value resets the member to
// its zero value.
func (f Field[T]) Set(t *T, value any) error {
	if err := f.set(t, value); err != nil {
		return fmt.Errorf("%w: %T into %s", err, value, f.typeName)
	}
	return nil
}

// Get returns the current value of the member of t.
func (f Field[T]) Get(t *T) any {
	return f.get(t)
}

// assign implements the coercion contract: identical types are assigned,
// numbers convert when the value is representable, node references accept
// their string form. Everything else is rejected.
func assign[V any](dst *V, value any) error {
	if value == nil {
		var zero V
		*dst = zero
		return nil
	}
	if v, ok := value.(V); ok {
		*dst = v
		return nil
	}

	ok := false
	switch d := any(dst).(type) {
	case *int:
		ok = setSigned(d, value)
	case *int8:
		ok = setSigned(d, value)
	case *int16:
		ok = setSigned(d, value)
	case *int32:
		ok = setSigned(d, value)
	case *int64:
		ok = setSigned(d, value)
	case *uint:
		ok = setUnsigned(d, value)
	case *uint8:
		ok = setUnsigned(d, value)
	case *uint16:
		ok = setUnsigned(d, value)
	case *uint32:
		ok = setUnsigned(d, value)
	case *uint64:
		ok = setUnsigned(d, value)
	case *float32:
		if f, isNum := asFloat64(value); isNum && math.Abs(f) <= math.MaxFloat32 {
			*d = float32(f)
			ok = true
		}
	case *float64:
		*d, ok = asFloat64(value)
	case *node.Ref:
		ok = setRef(d, value)
	}

	if !ok {
		return ErrIncompatibleValue
	}
	return nil
}

func setSigned[D ~int | ~int8 | ~int16 | ~int32 | ~int64](dst *D, value any) bool {
	n, ok := asInt64(value)
	if !ok {
		return false
	}
	d := D(n)
	if int64(d) != n {
		return false
	}
	*dst = d
	return true
}

func setUnsigned[D ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](dst *D, value any) bool {
	n, ok := asUint64(value)
	if !ok {
		return false
	}
	d := D(n)
	if uint64(d) != n {
		return false
	}
	*dst = d
	return true
}

func setRef(dst *node.Ref, value any) bool {
	switch v := value.(type) {
	case *node.Ref:
		if v == nil {
			*dst = node.Ref{}
			return true
		}
		*dst = *v
		return true
	case string:
		ref, err := node.ParseRef(v)
		if err != nil {
			return false
		}
		*dst = ref
		return true
	}
	return false
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return uintToInt(uint64(v))
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return uintToInt(v)
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return floatToInt(f)
		}
	}
	return 0, false
}

func asUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	case float32:
		return floatToUint(float64(v))
	case float64:
		return floatToUint(v)
	}
	n, ok := asInt64(value)
	if !ok || n < 0 {
		return 0, false
	}
	return uint64(n), true
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	if n, ok := asInt64(value); ok {
		return float64(n), true
	}
	if n, ok := asUint64(value); ok {
		return float64(n), true
	}
	return 0, false
}

func uintToInt(v uint64) (int64, bool) {
	if v > math.MaxInt64 {
		return 0, false
	}
	return int64(v), true
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

func floatToUint(f float64) (uint64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < 0 || f >= 1<<64 {
		return 0, false
	}
	return uint64(f), true
}
