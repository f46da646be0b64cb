package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	"github.com/GriffinCanCode/scenemcp/internal/scene/schema"
	"github.com/GriffinCanCode/scenemcp/internal/shared/types"
)

// Args are bound, validated parameters. Values have their declared Go types:
// string, float64, int, bool, schema.Vec3, []float64, []int, []schema.Vec3,
// []schema.Keyframe, or the raw value for "any".
type Args map[string]interface{}

// Has reports whether name was supplied or defaulted
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Float(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

func (a Args) Int(name string) int {
	i, _ := a[name].(int)
	return i
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

func (a Args) Vec3(name string) schema.Vec3 {
	v, _ := a[name].(schema.Vec3)
	return v
}

func (a Args) Floats(name string) []float64 {
	v, _ := a[name].([]float64)
	return v
}

func (a Args) Ints(name string) []int {
	v, _ := a[name].([]int)
	return v
}

func (a Args) Points(name string) []schema.Vec3 {
	v, _ := a[name].([]schema.Vec3)
	return v
}

// Keyframes returns a keyframe list. Attribute is left empty.
func (a Args) Keyframes(name string) []schema.Keyframe {
	v, _ := a[name].([]schema.Keyframe)
	return v
}

// Value returns the bound value as is
func (a Args) Value(name string) interface{} {
	return a[name]
}

// bind checks raw against the declared params and fills defaults.
// Undeclared keys are ignored.
func bind(params []types.Param, raw map[string]interface{}) (Args, error) {
	args := make(Args, len(params))
	for _, p := range params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, validationf("Missing required parameter: %s", p.Name)
			}
			if p.Default == nil {
				continue
			}
			v = p.Default
		}

		nv, err := normalize(p, v)
		if err != nil {
			return nil, err
		}
		args[p.Name] = nv
	}
	return args, nil
}

func normalize(p types.Param, v interface{}) (interface{}, error) {
	switch p.Type {
	case types.ParamString:
		s, ok := v.(string)
		if !ok {
			return nil, typeError(p, v)
		}
		if p.Required && s == "" {
			return nil, validationf("Parameter %s must not be empty", p.Name)
		}
		if len(p.Enum) > 0 && !oneOf(p.Enum, s) {
			return nil, validationf("Parameter %s must be one of %v, got %q", p.Name, p.Enum, s)
		}
		return s, nil

	case types.ParamNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, typeError(p, v)
		}
		return f, checkRange(p, f)

	case types.ParamInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return nil, typeError(p, v)
		}
		if err := checkIntRange(p, f); err != nil {
			return nil, err
		}
		return int(f), checkRange(p, f)

	case types.ParamBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, typeError(p, v)
		}
		return b, nil

	case types.ParamVector3:
		fs, ok := toFloats(v)
		if !ok || len(fs) != 3 {
			return nil, validationf("Parameter %s must be a list of 3 numbers", p.Name)
		}
		for _, f := range fs {
			if err := checkRange(p, f); err != nil {
				return nil, err
			}
		}
		return schema.Vec3{fs[0], fs[1], fs[2]}, nil

	case types.ParamNumberList:
		fs, ok := toFloats(v)
		if !ok {
			return nil, typeError(p, v)
		}
		for _, f := range fs {
			if err := checkRange(p, f); err != nil {
				return nil, err
			}
		}
		return fs, nil

	case types.ParamIntegerList:
		fs, ok := toFloats(v)
		if !ok {
			return nil, typeError(p, v)
		}
		ints := make([]int, len(fs))
		for i, f := range fs {
			if f != math.Trunc(f) {
				return nil, validationf("Parameter %s must contain only integers, got %v at position %d", p.Name, f, i)
			}
			if err := checkIntRange(p, f); err != nil {
				return nil, err
			}
			if err := checkRange(p, f); err != nil {
				return nil, err
			}
			ints[i] = int(f)
		}
		return ints, nil

	case types.ParamPointList:
		items, ok := toList(v)
		if !ok {
			return nil, typeError(p, v)
		}
		points := make([]schema.Vec3, len(items))
		for i, item := range items {
			fs, ok := toFloats(item)
			if !ok || len(fs) != 3 {
				return nil, validationf("Parameter %s must contain [x, y, z] points, bad entry at position %d", p.Name, i)
			}
			points[i] = schema.Vec3{fs[0], fs[1], fs[2]}
		}
		return points, nil

	case types.ParamKeyframeList:
		items, ok := toList(v)
		if !ok {
			return nil, typeError(p, v)
		}
		keys := make([]schema.Keyframe, len(items))
		for i, item := range items {
			k, err := toKeyframe(item)
			if err != nil {
				return nil, validationf("Parameter %s has a bad keyframe at position %d: %s", p.Name, i, err)
			}
			keys[i] = k
		}
		return keys, nil

	default:
		return v, nil
	}
}

func toKeyframe(v interface{}) (schema.Keyframe, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return schema.Keyframe{}, fmt.Errorf("expected an object, got %T", v)
	}
	t, ok := toFloat(m["time"])
	if !ok {
		return schema.Keyframe{}, fmt.Errorf("time must be a number")
	}
	if m["value"] == nil {
		return schema.Keyframe{}, fmt.Errorf("value is missing")
	}
	k := schema.Keyframe{Time: t, Value: m["value"], Interpolation: "linear"}
	if raw, ok := m["interpolation"]; ok && raw != nil {
		interp, ok := raw.(string)
		if !ok || !oneOf(schema.Interpolations, interp) {
			return schema.Keyframe{}, fmt.Errorf("interpolation must be one of %v", schema.Interpolations)
		}
		k.Interpolation = interp
	}
	return k, nil
}

func typeError(p types.Param, v interface{}) error {
	return validationf("Parameter %s must be of type %s, got %T", p.Name, p.Type, v)
}

// checkIntRange keeps integers within 32 bits so the int conversion is exact
func checkIntRange(p types.Param, f float64) error {
	if math.Abs(f) > math.MaxInt32 {
		return validationf("Parameter %s is out of range, got %g", p.Name, f)
	}
	return nil
}

func checkRange(p types.Param, f float64) error {
	if p.Min != nil && p.ExclusiveMin && f <= *p.Min {
		return validationf("Parameter %s must be > %g, got %g", p.Name, *p.Min, f)
	}
	if p.Min != nil && f < *p.Min {
		return validationf("Parameter %s must be >= %g, got %g", p.Name, *p.Min, f)
	}
	if p.Max != nil && f > *p.Max {
		return validationf("Parameter %s must be <= %g, got %g", p.Name, *p.Max, f)
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toList(v interface{}) ([]interface{}, bool) {
	if xs, ok := v.([]interface{}); ok {
		return xs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	xs := make([]interface{}, rv.Len())
	for i := range xs {
		xs[i] = rv.Index(i).Interface()
	}
	return xs, true
}

func toFloats(v interface{}) ([]float64, bool) {
	items, ok := toList(v)
	if !ok {
		return nil, false
	}
	fs := make([]float64, len(items))
	for i, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return nil, false
		}
		fs[i] = f
	}
	return fs, true
}

func oneOf(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

// Bound is for Param.Min and Param.Max literals
func Bound(f float64) *float64 { return &f }
