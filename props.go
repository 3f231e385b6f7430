package fiber

import (
	"fmt"
	"reflect"
	"strconv"
)

// Props is a property set as delivered by the host tree driver.
type Props map[string]any

// Reserved property keys.
const (
	PropAttach  = "attach"
	PropArgs    = "args"
	PropDispose = "dispose"
	PropObject  = "object"
	PropEntity  = "entity"
)

// Clone returns a shallow copy of p.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// isReserved reports keys that never reach a property setter.
func isReserved(key string) bool {
	switch key {
	case PropAttach, PropArgs, PropDispose, PropObject, PropEntity, "key", "children":
		return true
	}
	return isHandlerKey(key)
}

// propEqual compares two prop values for diffing. Functions never compare
// equal, so handler props are always reassigned.
func propEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch reflect.TypeOf(a).Kind() {
	case reflect.Func:
		return false
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		// Object handles compare by identity.
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// --- Value normalization ---

// AsFloat converts any numeric value to float64.
func AsFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("%w: want number, got %T", ErrInvalidValue, v)
}

// AsInt converts any numeric value to int, truncating fractions.
func AsInt(v any) (int, error) {
	f, err := AsFloat(v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// AsBool accepts a bool.
func AsBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: want bool, got %T", ErrInvalidValue, v)
	}
	return b, nil
}

// AsString accepts a string.
func AsString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: want string, got %T", ErrInvalidValue, v)
	}
	return s, nil
}

// AsFloats normalizes a flat component list of exactly n numbers. A single
// number is broadcast to all n components.
func AsFloats(v any, n int) ([]float64, error) {
	out := make([]float64, n)
	switch s := v.(type) {
	case []float64:
		if len(s) != n {
			return nil, fmt.Errorf("%w: want %d components, got %d", ErrInvalidValue, n, len(s))
		}
		copy(out, s)
		return out, nil
	case []any:
		if len(s) != n {
			return nil, fmt.Errorf("%w: want %d components, got %d", ErrInvalidValue, n, len(s))
		}
		for i, c := range s {
			f, err := AsFloat(c)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case []int:
		if len(s) != n {
			return nil, fmt.Errorf("%w: want %d components, got %d", ErrInvalidValue, n, len(s))
		}
		for i, c := range s {
			out[i] = float64(c)
		}
		return out, nil
	}
	f, err := AsFloat(v)
	if err != nil {
		return nil, fmt.Errorf("%w: want %d components, got %T", ErrInvalidValue, n, v)
	}
	for i := range out {
		out[i] = f
	}
	return out, nil
}

// AsVec2 accepts a Vec2, *Vec2, [2]float64, a flat list or a scalar.
func AsVec2(v any) (Vec2, error) {
	switch t := v.(type) {
	case Vec2:
		return t, nil
	case *Vec2:
		if t == nil {
			return Vec2{}, fmt.Errorf("%w: nil vector", ErrInvalidValue)
		}
		return *t, nil
	case [2]float64:
		return Vec2{t[0], t[1]}, nil
	}
	c, err := AsFloats(v, 2)
	if err != nil {
		return Vec2{}, err
	}
	return Vec2{c[0], c[1]}, nil
}

// AsVec3 accepts a Vec3, *Vec3, [3]float64, a flat list or a scalar.
func AsVec3(v any) (Vec3, error) {
	switch t := v.(type) {
	case Vec3:
		return t, nil
	case *Vec3:
		if t == nil {
			return Vec3{}, fmt.Errorf("%w: nil vector", ErrInvalidValue)
		}
		return *t, nil
	case [3]float64:
		return Vec3{t[0], t[1], t[2]}, nil
	}
	c, err := AsFloats(v, 3)
	if err != nil {
		return Vec3{}, err
	}
	return Vec3{c[0], c[1], c[2]}, nil
}

// AsColor accepts a Color, *Color, a 0xRRGGBB integer, a "#rrggbb" or
// "#rrggbbaa" string, or a list of 3 or 4 components.
func AsColor(v any) (Color, error) {
	switch t := v.(type) {
	case Color:
		return t, nil
	case *Color:
		if t == nil {
			return Color{}, fmt.Errorf("%w: nil color", ErrInvalidValue)
		}
		return *t, nil
	case string:
		return parseHexColor(t)
	case int, int64, uint32, uint64:
		n, _ := AsInt(t)
		return Color{
			R: float64((n>>16)&0xff) / 255,
			G: float64((n>>8)&0xff) / 255,
			B: float64(n&0xff) / 255,
			A: 1,
		}, nil
	}
	if componentCount(v) == 4 {
		c, err := AsFloats(v, 4)
		if err != nil {
			return Color{}, err
		}
		return Color{c[0], c[1], c[2], c[3]}, nil
	}
	c, err := AsFloats(v, 3)
	if err != nil {
		return Color{}, fmt.Errorf("%w: want color, got %T", ErrInvalidValue, v)
	}
	return Color{c[0], c[1], c[2], 1}, nil
}

func componentCount(v any) int {
	switch s := v.(type) {
	case []float64:
		return len(s)
	case []any:
		return len(s)
	case []int:
		return len(s)
	}
	return 1
}

func parseHexColor(s string) (Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 && len(s) != 8 {
		return Color{}, fmt.Errorf("%w: bad hex color %q", ErrInvalidValue, s)
	}
	var ch [4]float64
	ch[3] = 1
	for i := 0; i < len(s)/2; i++ {
		b, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: bad hex color %q", ErrInvalidValue, s)
		}
		ch[i] = float64(b) / 255
	}
	return Color{ch[0], ch[1], ch[2], ch[3]}, nil
}

// --- Typed setter helpers for schemas ---

func objectAs[T any](obj any) (T, error) {
	t, ok := obj.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: setter for %T applied to %T", ErrInvalidValue, zero, obj)
	}
	return t, nil
}

// FloatProp builds a Prop assigning a normalized float64.
func FloatProp[T any](set func(o T, v float64)) Prop {
	return Prop{Set: func(obj, v any) error {
		o, err := objectAs[T](obj)
		if err != nil {
			return err
		}
		f, err := AsFloat(v)
		if err != nil {
			return err
		}
		set(o, f)
		return nil
	}}
}

// IntProp builds a Prop assigning a normalized int.
func IntProp[T any](set func(o T, v int)) Prop {
	return Prop{Set: func(obj, v any) error {
		o, err := objectAs[T](obj)
		if err != nil {
			return err
		}
		n, err := AsInt(v)
		if err != nil {
			return err
		}
		set(o, n)
		return nil
	}}
}

// BoolProp builds a Prop assigning a bool.
func BoolProp[T any](set func(o T, v bool)) Prop {
	return Prop{Set: func(obj, v any) error {
		o, err := objectAs[T](obj)
		if err != nil {
			return err
		}
		b, err := AsBool(v)
		if err != nil {
			return err
		}
		set(o, b)
		return nil
	}}
}

// StringProp builds a Prop assigning a string.
func StringProp[T any](set func(o T, v string)) Prop {
	return Prop{Set: func(obj, v any) error {
		o, err := objectAs[T](obj)
		if err != nil {
			return err
		}
		s, err := AsString(v)
		if err != nil {
			return err
		}
		set(o, s)
		return nil
	}}
}

// Vec3Prop builds a Prop over a vector field. The whole vector accepts a
// structured or flat value; the nested x, y and z paths set components.
func Vec3Prop[T any](field func(o T) *Vec3) Prop {
	return Prop{
		Set: func(obj, v any) error {
			o, err := objectAs[T](obj)
			if err != nil {
				return err
			}
			vec, err := AsVec3(v)
			if err != nil {
				return err
			}
			*field(o) = vec
			return nil
		},
		Get: func(obj any) any {
			o, err := objectAs[T](obj)
			if err != nil {
				return nil
			}
			return field(o)
		},
		Sub: vec3Schema,
	}
}

// ColorProp builds a Prop over a color field with nested r, g, b and a
// component paths.
func ColorProp[T any](field func(o T) *Color) Prop {
	return Prop{
		Set: func(obj, v any) error {
			o, err := objectAs[T](obj)
			if err != nil {
				return err
			}
			c, err := AsColor(v)
			if err != nil {
				return err
			}
			*field(o) = c
			return nil
		},
		Get: func(obj any) any {
			o, err := objectAs[T](obj)
			if err != nil {
				return nil
			}
			return field(o)
		},
		Sub: colorSchema,
	}
}

var colorSchema = &Schema{Props: map[string]Prop{
	"r": FloatProp(func(c *Color, f float64) { c.R = f }),
	"g": FloatProp(func(c *Color, f float64) { c.G = f }),
	"b": FloatProp(func(c *Color, f float64) { c.B = f }),
	"a": FloatProp(func(c *Color, f float64) { c.A = f }),
}}

var vec3Schema = &Schema{Props: map[string]Prop{
	"x": FloatProp(func(v *Vec3, f float64) { v.X = f }),
	"y": FloatProp(func(v *Vec3, f float64) { v.Y = f }),
	"z": FloatProp(func(v *Vec3, f float64) { v.Z = f }),
}}
