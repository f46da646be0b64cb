package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/GriffinCanCode/scenemcp/internal/scene"
)

// Stage is an in-memory prim tree backed by one document file.
type Stage struct {
	path string

	mu     sync.RWMutex
	meta   scene.Metadata
	prims  map[string]*node
	closed bool
}

type node struct {
	typeName string
	active   bool
	attrs    []scene.Attribute
	apis     []string
	rels     []scene.Relationship
	refs     []scene.Reference
	children []string
}

var _ scene.Stage = (*Stage)(nil)

// NewStage returns an empty, unsaved stage that will be written to path on Flush.
func NewStage(path string) *Stage {
	return newStage(path)
}

func newStage(path string) *Stage {
	return &Stage{
		path:  path,
		meta:  scene.Metadata{UpAxis: scene.AxisY},
		prims: map[string]*node{scene.Root: {active: true}},
	}
}

// Path returns the backing document path
func (s *Stage) Path() string {
	return s.path
}

// Metadata returns document-level settings
func (s *Stage) Metadata() scene.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// SetMetadata replaces document-level settings
func (s *Stage) SetMetadata(md scene.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return scene.ErrClosed
	}
	if md.UpAxis != scene.AxisY && md.UpAxis != scene.AxisZ {
		return fmt.Errorf("%w: up axis must be Y or Z, got %q", scene.ErrInvalidArgument, md.UpAxis)
	}
	if md.EndTimeCode < md.StartTimeCode {
		return fmt.Errorf("%w: end time code %g precedes start %g", scene.ErrInvalidArgument, md.EndTimeCode, md.StartTimeCode)
	}
	if md.DefaultPrim != "" {
		if _, ok := s.prims[md.DefaultPrim]; !ok || scene.Parent(md.DefaultPrim) != scene.Root {
			return fmt.Errorf("%w: default prim %q must be an existing root prim", scene.ErrInvalidArgument, md.DefaultPrim)
		}
	}
	s.meta = md
	return nil
}

// DefinePrim creates or retypes a prim
func (s *Stage) DefinePrim(path, typeName string) (scene.Prim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return scene.Prim{}, scene.ErrClosed
	}
	if err := scene.ValidatePath(path); err != nil {
		return scene.Prim{}, err
	}
	if path == scene.Root {
		return scene.Prim{}, fmt.Errorf("%w: cannot define the pseudo-root", scene.ErrInvalidPath)
	}

	for _, anc := range scene.Ancestors(path) {
		s.ensure(anc)
	}
	n := s.ensure(path)
	if typeName != "" {
		n.typeName = typeName
	}
	return s.snapshot(path, n), nil
}

// Prim returns a snapshot of the prim at path
func (s *Stage) Prim(path string) (scene.Prim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, err := s.lookup(path)
	if err != nil {
		return scene.Prim{}, err
	}
	return s.snapshot(path, n), nil
}

// RemovePrim deletes a prim and its subtree
func (s *Stage) RemovePrim(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if path == scene.Root {
		return fmt.Errorf("%w: cannot remove the pseudo-root", scene.ErrInvalidPath)
	}
	n, err := s.lookup(path)
	if err != nil {
		return err
	}

	var drop func(p string, n *node)
	drop = func(p string, n *node) {
		for _, c := range n.children {
			child := scene.Join(p, c)
			drop(child, s.prims[child])
		}
		delete(s.prims, p)
	}
	drop(path, n)

	parent := s.prims[scene.Parent(path)]
	name := scene.Base(path)
	for i, c := range parent.children {
		if c == name {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	if s.meta.DefaultPrim == path {
		s.meta.DefaultPrim = ""
	}
	return nil
}

// SetAttribute replaces the default value of an attribute
func (s *Stage) SetAttribute(path string, attr scene.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(path)
	if err != nil {
		return err
	}
	if attr.Name == "" {
		return fmt.Errorf("%w: attribute name is empty", scene.ErrInvalidArgument)
	}

	if a := findAttr(n, attr.Name); a != nil {
		a.TypeName = attr.TypeName
		a.Value = attr.Value
		return nil
	}
	n.attrs = append(n.attrs, scene.Attribute{Name: attr.Name, TypeName: attr.TypeName, Value: attr.Value})
	return nil
}

// SetTimeSample authors one animated value, keeping samples ordered by time
func (s *Stage) SetTimeSample(path, name, typeName string, sample scene.TimeSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(path)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: attribute name is empty", scene.ErrInvalidArgument)
	}

	a := findAttr(n, name)
	if a == nil {
		n.attrs = append(n.attrs, scene.Attribute{Name: name, TypeName: typeName})
		a = &n.attrs[len(n.attrs)-1]
	} else if typeName != "" {
		a.TypeName = typeName
	}

	i := sort.Search(len(a.TimeSamples), func(i int) bool { return a.TimeSamples[i].Time >= sample.Time })
	if i < len(a.TimeSamples) && a.TimeSamples[i].Time == sample.Time {
		a.TimeSamples[i] = sample
		return nil
	}
	a.TimeSamples = append(a.TimeSamples, scene.TimeSample{})
	copy(a.TimeSamples[i+1:], a.TimeSamples[i:])
	a.TimeSamples[i] = sample
	return nil
}

// ApplyAPI records an applied API schema
func (s *Stage) ApplyAPI(path, schema string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(path)
	if err != nil {
		return err
	}
	for _, existing := range n.apis {
		if existing == schema {
			return nil
		}
	}
	n.apis = append(n.apis, schema)
	return nil
}

// RemoveAPI drops an applied API schema
func (s *Stage) RemoveAPI(path, schema string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(path)
	if err != nil {
		return false, err
	}
	for i, existing := range n.apis {
		if existing == schema {
			n.apis = append(n.apis[:i], n.apis[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// RemoveProperty drops the named attribute and relationship
func (s *Stage) RemoveProperty(path, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(path)
	if err != nil {
		return false, err
	}
	found := false
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			found = true
			break
		}
	}
	for i := range n.rels {
		if n.rels[i].Name == name {
			n.rels = append(n.rels[:i], n.rels[i+1:]...)
			found = true
			break
		}
	}
	return found, nil
}

// SetRelationship replaces the targets of a relationship
func (s *Stage) SetRelationship(path, name string, targets []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(path)
	if err != nil {
		return err
	}
	targets = append([]string(nil), targets...)
	for i := range n.rels {
		if n.rels[i].Name == name {
			n.rels[i].Targets = targets
			return nil
		}
	}
	n.rels = append(n.rels, scene.Relationship{Name: name, Targets: targets})
	return nil
}

// AddReference appends a reference unless an identical one exists
func (s *Stage) AddReference(path string, ref scene.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.lookup(path)
	if err != nil {
		return err
	}
	if ref.AssetPath == "" {
		return fmt.Errorf("%w: reference asset path is empty", scene.ErrInvalidArgument)
	}
	for _, existing := range n.refs {
		if existing == ref {
			return nil
		}
	}
	n.refs = append(n.refs, ref)
	return nil
}

// Traverse visits root and its descendants depth-first
func (s *Stage) Traverse(root string, visit func(scene.Prim) error) error {
	s.mu.RLock()
	n, err := s.lookup(root)
	if err != nil {
		s.mu.RUnlock()
		return err
	}
	var prims []scene.Prim
	s.walk(root, n, root != scene.Root, func(p string, n *node) {
		prims = append(prims, s.snapshot(p, n))
	})
	s.mu.RUnlock()

	for _, p := range prims {
		if err := visit(p); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes the document atomically: a temp file in the same directory
// is renamed over the target.
func (s *Stage) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return scene.ErrClosed
	}
	doc := s.document()
	s.mu.RUnlock()

	data, err := encode(s.path, doc)
	if err != nil {
		return err
	}
	return writeAtomic(s.path, data)
}

// Close releases the document; calling it again is a no-op
func (s *Stage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.prims = nil
	return nil
}

func (s *Stage) lookup(path string) (*node, error) {
	if s.closed {
		return nil, scene.ErrClosed
	}
	if err := scene.ValidatePath(path); err != nil {
		return nil, err
	}
	n, ok := s.prims[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scene.ErrPrimNotFound, path)
	}
	return n, nil
}

// ensure returns the prim at path, creating it under an existing parent.
func (s *Stage) ensure(path string) *node {
	if n, ok := s.prims[path]; ok {
		return n
	}
	n := &node{active: true}
	s.prims[path] = n
	parent := s.prims[scene.Parent(path)]
	parent.children = append(parent.children, scene.Base(path))
	return n
}

func (s *Stage) walk(path string, n *node, self bool, fn func(string, *node)) {
	if self {
		fn(path, n)
	}
	for _, c := range n.children {
		child := scene.Join(path, c)
		s.walk(child, s.prims[child], true, fn)
	}
}

func (s *Stage) snapshot(path string, n *node) scene.Prim {
	p := scene.Prim{
		Path:     path,
		Type:     n.typeName,
		Active:   n.active,
		Children: append([]string{}, n.children...),
	}
	if len(n.attrs) > 0 {
		p.Attributes = make([]scene.Attribute, len(n.attrs))
		for i, a := range n.attrs {
			a.TimeSamples = append([]scene.TimeSample(nil), a.TimeSamples...)
			p.Attributes[i] = a
		}
	}
	if len(n.apis) > 0 {
		p.APISchemas = append([]string(nil), n.apis...)
	}
	if len(n.rels) > 0 {
		p.Relationships = make([]scene.Relationship, len(n.rels))
		for i, r := range n.rels {
			r.Targets = append([]string(nil), r.Targets...)
			p.Relationships[i] = r
		}
	}
	if len(n.refs) > 0 {
		p.References = append([]scene.Reference(nil), n.refs...)
	}
	return p
}

func (s *Stage) document() *document {
	doc := &document{
		Format:        FormatVersion,
		UpAxis:        s.meta.UpAxis,
		DefaultPrim:   s.meta.DefaultPrim,
		StartTimeCode: s.meta.StartTimeCode,
		EndTimeCode:   s.meta.EndTimeCode,
		Prims:         []primRecord{},
	}
	s.walk(scene.Root, s.prims[scene.Root], false, func(p string, n *node) {
		rec := primRecord{Path: p, Type: n.typeName, Active: n.active}
		for _, a := range n.attrs {
			ar := attrRecord{Name: a.Name, Type: a.TypeName, Value: a.Value}
			for _, ts := range a.TimeSamples {
				ar.TimeSamples = append(ar.TimeSamples, sampleRecord(ts))
			}
			rec.Attributes = append(rec.Attributes, ar)
		}
		rec.APISchemas = append(rec.APISchemas, n.apis...)
		for _, r := range n.rels {
			rec.Relationships = append(rec.Relationships, relRecord(r))
		}
		for _, r := range n.refs {
			rec.References = append(rec.References, refRecord(r))
		}
		doc.Prims = append(doc.Prims, rec)
	})
	return doc
}

// load rebuilds the tree from a decoded document.
func (s *Stage) load(doc *document) error {
	if doc.UpAxis != "" {
		s.meta.UpAxis = doc.UpAxis
	}
	s.meta.DefaultPrim = doc.DefaultPrim
	s.meta.StartTimeCode = doc.StartTimeCode
	s.meta.EndTimeCode = doc.EndTimeCode

	for _, rec := range doc.Prims {
		if err := scene.ValidatePath(rec.Path); err != nil || rec.Path == scene.Root {
			return fmt.Errorf("document %s: bad prim record %q", s.path, rec.Path)
		}
		for _, anc := range scene.Ancestors(rec.Path) {
			s.ensure(anc)
		}
		n := s.ensure(rec.Path)
		n.typeName = rec.Type
		n.active = rec.Active
		for _, ar := range rec.Attributes {
			a := scene.Attribute{Name: ar.Name, TypeName: ar.Type, Value: ar.Value}
			for _, ts := range ar.TimeSamples {
				a.TimeSamples = append(a.TimeSamples, scene.TimeSample(ts))
			}
			n.attrs = append(n.attrs, a)
		}
		n.apis = append(n.apis, rec.APISchemas...)
		for _, r := range rec.Relationships {
			n.rels = append(n.rels, scene.Relationship(r))
		}
		for _, r := range rec.References {
			n.refs = append(n.refs, scene.Reference(r))
		}
	}
	return nil
}

func findAttr(n *node, name string) *scene.Attribute {
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			return &n.attrs[i]
		}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
