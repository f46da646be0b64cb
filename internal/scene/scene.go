// Package scene defines the narrow interface through which the server drives
// a scene-description engine. A Stage is one open document: a tree of typed
// prims addressed by absolute paths such as /World/Cube.
//
// The server never interprets scene semantics itself. Everything it knows
// about a document goes through Engine and Stage.
package scene

import (
	"context"
	"errors"
)

var (
	// ErrNotExist is returned by Engine.Open when no document exists at the path.
	ErrNotExist = errors.New("stage document does not exist")
	// ErrExists is returned by Engine.Create when a document already exists.
	ErrExists = errors.New("stage document already exists")
	// ErrClosed is returned by every Stage method after Close.
	ErrClosed = errors.New("stage is closed")
	// ErrInvalidPath is returned for malformed prim paths.
	ErrInvalidPath = errors.New("invalid prim path")
	// ErrPrimNotFound is returned when a prim path does not resolve.
	ErrPrimNotFound = errors.New("prim not found")
	// ErrInvalidArgument is returned when a value is outside what the engine accepts.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Up axes
const (
	AxisY = "Y"
	AxisZ = "Z"
)

// Engine opens and creates stage documents.
type Engine interface {
	// Create starts a new, empty document that will be written to path on Flush.
	Create(ctx context.Context, path string) (Stage, error)
	// Open loads the document at path.
	Open(ctx context.Context, path string) (Stage, error)
	// Exists reports whether a document is present at path.
	Exists(path string) bool
}

// Stage is an open document. Implementations must be safe for concurrent use.
type Stage interface {
	// Path is the absolute path of the backing document.
	Path() string

	Metadata() Metadata
	SetMetadata(md Metadata) error

	// DefinePrim creates the prim (and any missing ancestors, untyped) or
	// retypes an existing one when typeName is non-empty.
	DefinePrim(path, typeName string) (Prim, error)
	Prim(path string) (Prim, error)
	RemovePrim(path string) error

	// SetAttribute replaces the default value and type of an attribute,
	// keeping any time samples.
	SetAttribute(path string, attr Attribute) error
	// SetTimeSample authors one animated value, replacing a sample at the same time.
	SetTimeSample(path, name, typeName string, sample TimeSample) error
	ApplyAPI(path, schema string) error
	// RemoveAPI reports whether the schema was applied before removing it.
	RemoveAPI(path, schema string) (bool, error)
	// RemoveProperty drops an attribute or relationship and reports whether
	// one existed.
	RemoveProperty(path, name string) (bool, error)
	SetRelationship(path, name string, targets []string) error
	AddReference(path string, ref Reference) error

	// Traverse visits root and its descendants depth-first, parents before
	// children. Root "/" visits every prim but not the pseudo-root itself.
	// Visit sees snapshots, so it may call back into the stage.
	Traverse(root string, visit func(Prim) error) error

	// Flush writes the document to its backing file.
	Flush(ctx context.Context) error
	// Close releases the document. Unflushed changes are discarded.
	Close() error
}

// Metadata holds document-level settings.
type Metadata struct {
	UpAxis        string  `json:"up_axis"`
	DefaultPrim   string  `json:"default_prim,omitempty"`
	StartTimeCode float64 `json:"start_time_code"`
	EndTimeCode   float64 `json:"end_time_code"`
}

// Prim is a snapshot of one node in the document tree.
type Prim struct {
	Path          string         `json:"path"`
	Type          string         `json:"type"`
	Active        bool           `json:"active"`
	Children      []string       `json:"children"`
	Attributes    []Attribute    `json:"attributes,omitempty"`
	APISchemas    []string       `json:"api_schemas,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	References    []Reference    `json:"references,omitempty"`
}

// Name is the last path segment.
func (p Prim) Name() string {
	return Base(p.Path)
}

// Attribute looks up an attribute by name.
func (p Prim) Attribute(name string) (Attribute, bool) {
	for _, a := range p.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// HasAPI reports whether the schema has been applied.
func (p Prim) HasAPI(schema string) bool {
	for _, s := range p.APISchemas {
		if s == schema {
			return true
		}
	}
	return false
}

// Relationship looks up a relationship by name.
func (p Prim) Relationship(name string) (Relationship, bool) {
	for _, r := range p.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return Relationship{}, false
}

// Attribute is a typed property with an optional default value and time samples.
type Attribute struct {
	Name        string       `json:"name"`
	TypeName    string       `json:"type"`
	Value       interface{}  `json:"value,omitempty"`
	TimeSamples []TimeSample `json:"time_samples,omitempty"`
}

// TimeSample is one animated value.
type TimeSample struct {
	Time          float64     `json:"time"`
	Value         interface{} `json:"value"`
	Interpolation string      `json:"interpolation,omitempty"`
}

// Relationship points at other prims or properties.
type Relationship struct {
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}

// Reference composes another document (or one of its prims) into a prim.
type Reference struct {
	AssetPath string `json:"asset_path"`
	PrimPath  string `json:"prim_path,omitempty"`
}
