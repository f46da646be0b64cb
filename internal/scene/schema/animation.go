package schema

import (
	"fmt"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
)

// Interpolations accepted by SetKeyframe
var Interpolations = []string{"linear", "held"}

// Keyframe is one authored sample
type Keyframe struct {
	Attribute     string
	Time          float64
	Value         interface{}
	Interpolation string
}

// SetKeyframe authors a time sample on an existing prim and widens the
// stage time-code range to include it. It returns the attribute type used.
func SetKeyframe(st scene.Stage, path string, k Keyframe) (string, error) {
	if k.Attribute == "" {
		return "", fmt.Errorf("%w: attribute name is empty", scene.ErrInvalidArgument)
	}
	if k.Value == nil {
		return "", fmt.Errorf("%w: keyframe value is missing", scene.ErrInvalidArgument)
	}
	if k.Interpolation == "" {
		k.Interpolation = "linear"
	}
	if !contains(Interpolations, k.Interpolation) {
		return "", fmt.Errorf("%w: unknown interpolation %q", scene.ErrInvalidArgument, k.Interpolation)
	}

	prim, err := RequirePrim(st, path)
	if err != nil {
		return "", err
	}

	typeName := InferTypeName(k.Value)
	if existing, ok := prim.Attribute(k.Attribute); ok && existing.TypeName != "" {
		typeName = existing.TypeName
	}

	sample := scene.TimeSample{Time: k.Time, Value: k.Value, Interpolation: k.Interpolation}
	if err := st.SetTimeSample(path, k.Attribute, typeName, sample); err != nil {
		return "", err
	}

	md := st.Metadata()
	if k.Time < md.StartTimeCode || k.Time > md.EndTimeCode {
		if k.Time < md.StartTimeCode {
			md.StartTimeCode = k.Time
		}
		if k.Time > md.EndTimeCode {
			md.EndTimeCode = k.Time
		}
		if err := st.SetMetadata(md); err != nil {
			return "", err
		}
	}
	return typeName, nil
}

// TimeRange is an explicit [start, end] time-code range
type TimeRange [2]float64

// Animation is a keyframed attribute. A nil Range keeps the widened range
// SetKeyframe leaves behind.
type Animation struct {
	Attribute string
	Keys      []Keyframe
	Range     *TimeRange
}

// Animate validates every keyframe, then authors them all on path. It
// returns the attribute type used.
func Animate(st scene.Stage, path string, a Animation) (string, error) {
	if len(a.Keys) == 0 {
		return "", fmt.Errorf("%w: at least one keyframe is required", scene.ErrInvalidArgument)
	}
	if err := a.Range.validate(); err != nil {
		return "", err
	}
	if _, err := RequirePrim(st, path); err != nil {
		return "", err
	}
	for i, k := range a.Keys {
		if k.Value == nil {
			return "", fmt.Errorf("%w: keyframe %d has no value", scene.ErrInvalidArgument, i)
		}
	}

	var typeName string
	for _, k := range a.Keys {
		k.Attribute = a.Attribute
		var err error
		if typeName, err = SetKeyframe(st, path, k); err != nil {
			return "", err
		}
	}
	return typeName, a.Range.apply(st)
}

// TransformAnimation keyframes the ops authored by SetTransform. Every
// value is an [x, y, z] vector; empty tracks are skipped.
type TransformAnimation struct {
	Translate []Keyframe
	Rotate    []Keyframe
	Scale     []Keyframe
	Range     *TimeRange
}

// AnimateTransform authors the non-empty tracks and the op order, and
// returns the number of keyframes set per op.
func AnimateTransform(st scene.Stage, path string, a TransformAnimation) (map[string]int, error) {
	tracks := []struct {
		op       string
		typeName string
		keys     []Keyframe
	}{
		{XformOpOrder[0], ValueDouble3, a.Translate},
		{XformOpOrder[1], ValueFloat3, a.Rotate},
		{XformOpOrder[2], ValueFloat3, a.Scale},
	}

	total := 0
	for t := range tracks {
		keys := make([]Keyframe, len(tracks[t].keys))
		for i, k := range tracks[t].keys {
			v, ok := toVec3(k.Value)
			if !ok {
				return nil, fmt.Errorf("%w: %s keyframe %d must be an [x, y, z] vector", scene.ErrInvalidArgument, tracks[t].op, i)
			}
			k.Value = v.Slice()
			keys[i] = k
		}
		tracks[t].keys = keys
		total += len(keys)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: at least one of translate, rotate or scale keyframes is required", scene.ErrInvalidArgument)
	}
	if err := a.Range.validate(); err != nil {
		return nil, err
	}
	prim, err := RequirePrim(st, path)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(tracks))
	for _, tr := range tracks {
		if len(tr.keys) == 0 {
			continue
		}
		if _, ok := prim.Attribute(tr.op); !ok {
			if err := st.SetAttribute(path, attr(tr.op, tr.typeName, nil)); err != nil {
				return nil, err
			}
		}
		for _, k := range tr.keys {
			k.Attribute = tr.op
			if _, err := SetKeyframe(st, path, k); err != nil {
				return nil, err
			}
		}
		counts[tr.op] = len(tr.keys)
	}
	if err := setAttrs(st, path, attr("xformOpOrder", ValueTokenArr, append([]string(nil), XformOpOrder...))); err != nil {
		return nil, err
	}
	return counts, a.Range.apply(st)
}

func (r *TimeRange) validate() error {
	if r != nil && r[0] > r[1] {
		return fmt.Errorf("%w: time range start %g is after end %g", scene.ErrInvalidArgument, r[0], r[1])
	}
	return nil
}

func (r *TimeRange) apply(st scene.Stage) error {
	if r == nil {
		return nil
	}
	md := st.Metadata()
	md.StartTimeCode, md.EndTimeCode = r[0], r[1]
	return st.SetMetadata(md)
}

func toVec3(v interface{}) (Vec3, bool) {
	switch x := v.(type) {
	case Vec3:
		return x, true
	case []float64:
		if len(x) == 3 {
			return Vec3{x[0], x[1], x[2]}, true
		}
	case []interface{}:
		if len(x) != 3 {
			return Vec3{}, false
		}
		var out Vec3
		for i, e := range x {
			switch n := e.(type) {
			case float64:
				out[i] = n
			case int:
				out[i] = float64(n)
			default:
				return Vec3{}, false
			}
		}
		return out, true
	}
	return Vec3{}, false
}
