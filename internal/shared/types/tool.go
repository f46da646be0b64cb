package types

// Category groups tools in the catalogue
type Category string

const (
	CategoryLifecycle Category = "lifecycle"
	CategoryAdmin     Category = "admin"
	CategoryInspect   Category = "inspect"
	CategoryGeometry  Category = "geometry"
	CategoryMaterials Category = "materials"
	CategoryPhysics   Category = "physics"
	CategoryAnimation Category = "animation"
)

// Form tells how a tool addresses its stage
type Form string

const (
	// FormHandle tools act on a registry-held stage named by "handle".
	FormHandle Form = "handle"
	// FormPath tools open "source_path", act, flush if mutating, and close.
	FormPath Form = "path"
	// FormNone tools do not address a single stage.
	FormNone Form = "none"
)

// ParamType is the wire type of a tool parameter
type ParamType string

const (
	ParamString      ParamType = "string"
	ParamNumber      ParamType = "number"
	ParamInteger     ParamType = "integer"
	ParamBoolean     ParamType = "boolean"
	ParamVector3     ParamType = "vector3"
	ParamNumberList  ParamType = "number[]"
	ParamIntegerList ParamType = "integer[]"
	ParamPointList   ParamType = "point[]"
	// ParamKeyframeList is a list of {"time", "value", "interpolation"} objects
	ParamKeyframeList ParamType = "keyframe[]"
	ParamAny          ParamType = "any"
)

// Param describes one tool parameter
type Param struct {
	Name        string      `json:"name"`
	Type        ParamType   `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
	// ExclusiveMin makes Min a strict lower bound
	ExclusiveMin bool `json:"exclusive_min,omitempty"`
}

// Tool is a catalogue entry
type Tool struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Form        Form     `json:"form"`
	Mutates     bool     `json:"mutates"`
	Params      []Param  `json:"params"`
}

// InputSchema renders the tool parameters as a JSON Schema object
func (t Tool) InputSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(t.Params))
	required := make([]string, 0, len(t.Params))

	for _, p := range t.Params {
		props[p.Name] = p.schema()
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (p Param) minKey() string {
	if p.ExclusiveMin {
		return "exclusiveMinimum"
	}
	return "minimum"
}

func (p Param) schema() map[string]interface{} {
	s := map[string]interface{}{}
	if p.Description != "" {
		s["description"] = p.Description
	}

	item := map[string]interface{}{"type": "number"}
	if p.Min != nil {
		item[p.minKey()] = *p.Min
	}
	if p.Max != nil {
		item["maximum"] = *p.Max
	}

	switch p.Type {
	case ParamString:
		s["type"] = "string"
		if len(p.Enum) > 0 {
			s["enum"] = p.Enum
		}
	case ParamNumber:
		for k, v := range item {
			s[k] = v
		}
	case ParamInteger:
		s["type"] = "integer"
		if p.Min != nil {
			s[p.minKey()] = *p.Min
		}
		if p.Max != nil {
			s["maximum"] = *p.Max
		}
	case ParamBoolean:
		s["type"] = "boolean"
	case ParamVector3:
		s["type"] = "array"
		s["items"] = item
		s["minItems"] = 3
		s["maxItems"] = 3
	case ParamNumberList:
		s["type"] = "array"
		s["items"] = item
	case ParamIntegerList:
		s["type"] = "array"
		s["items"] = map[string]interface{}{"type": "integer", "minimum": 0}
	case ParamPointList:
		s["type"] = "array"
		s["items"] = map[string]interface{}{
			"type":     "array",
			"items":    map[string]interface{}{"type": "number"},
			"minItems": 3,
			"maxItems": 3,
		}
	case ParamKeyframeList:
		s["type"] = "array"
		s["items"] = map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"time":          map[string]interface{}{"type": "number"},
				"value":         map[string]interface{}{},
				"interpolation": map[string]interface{}{"type": "string"},
			},
			"required": []string{"time", "value"},
		}
	}

	if p.Default != nil {
		s["default"] = p.Default
	}
	return s
}
