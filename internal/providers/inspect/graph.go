package inspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/scenemcp/internal/domain/tools"
	"github.com/GriffinCanCode/scenemcp/internal/scene"
)

// node is one prim in a rendered hierarchy
type node struct {
	Name     string
	Path     string
	Type     string
	Children []*node
}

func (p *Provider) visualize(_ context.Context, st scene.Stage, args tools.Args) (tools.Result, error) {
	root := args.String("root_path")
	format := args.String("format")
	maxDepth := args.Int("max_depth")

	tree, count, err := buildTree(st, root, maxDepth)
	if err != nil {
		return tools.Result{}, err
	}

	var out interface{}
	switch format {
	case FormatJSON:
		out = tree.toMap()
	default:
		var b strings.Builder
		renderText(&b, tree)
		out = b.String()
	}

	return tools.Result{
		Message: "Scene graph visualization generated",
		Data: map[string]interface{}{
			"root_path":     root,
			"format":        format,
			"prim_count":    count,
			"visualization": out,
		},
	}, nil
}

// buildTree snapshots the hierarchy under root, cut at maxDepth levels below
// it when maxDepth > 0. The pseudo-root becomes an unnamed node.
func buildTree(st scene.Stage, root string, maxDepth int) (*node, int, error) {
	top := &node{Path: root, Children: []*node{}}
	if root == scene.Root {
		top.Name = scene.Root
	}
	nodes := map[string]*node{root: top}
	base := len(scene.Ancestors(root))
	if root == scene.Root {
		base = -1
	}

	count := 0
	err := st.Traverse(root, func(prim scene.Prim) error {
		if maxDepth > 0 && len(scene.Ancestors(prim.Path))-base > maxDepth {
			return nil
		}
		count++
		if prim.Path == root {
			top.Name, top.Type = prim.Name(), prim.Type
			return nil
		}
		parent, ok := nodes[scene.Parent(prim.Path)]
		if !ok {
			return nil
		}
		n := &node{Name: prim.Name(), Path: prim.Path, Type: prim.Type, Children: []*node{}}
		parent.Children = append(parent.Children, n)
		nodes[prim.Path] = n
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return top, count, nil
}

func (n *node) toMap() map[string]interface{} {
	children := make([]map[string]interface{}, len(n.Children))
	for i, c := range n.Children {
		children[i] = c.toMap()
	}
	return map[string]interface{}{
		"name":     n.Name,
		"path":     n.Path,
		"type":     n.Type,
		"children": children,
	}
}

func (n *node) label() string {
	if n.Type == "" {
		return n.Name
	}
	return fmt.Sprintf("%s (%s)", n.Name, n.Type)
}

func renderText(b *strings.Builder, root *node) {
	b.WriteString(root.label())
	b.WriteByte('\n')
	renderChildren(b, root, "")
}

func renderChildren(b *strings.Builder, n *node, prefix string) {
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		b.WriteString(prefix)
		b.WriteString(branch)
		b.WriteString(c.label())
		b.WriteByte('\n')
		renderChildren(b, c, prefix+indent)
	}
}
