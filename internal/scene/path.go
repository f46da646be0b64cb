package scene

import (
	"fmt"
	"strings"
)

// Root is the pseudo-root path.
const Root = "/"

// ValidatePath checks that p is an absolute prim path made of identifier
// segments. The pseudo-root "/" is valid.
func ValidatePath(p string) error {
	if p == Root {
		return nil
	}
	if !strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return fmt.Errorf("%w: %q must be absolute without a trailing slash", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p[1:], "/") {
		if !isIdentifier(seg) {
			return fmt.Errorf("%w: %q has invalid segment %q", ErrInvalidPath, p, seg)
		}
	}
	return nil
}

// Parent returns the parent path; the parent of a top-level prim is "/".
func Parent(p string) string {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return Root
	}
	return p[:i]
}

// Base returns the last segment of p.
func Base(p string) string {
	if p == Root {
		return ""
	}
	return p[strings.LastIndex(p, "/")+1:]
}

// Join appends a child name to a prim path.
func Join(parent, name string) string {
	if parent == Root {
		return Root + name
	}
	return parent + "/" + name
}

// Ancestors lists the proper ancestors of p from the top down, excluding "/".
func Ancestors(p string) []string {
	if p == Root {
		return nil
	}
	var out []string
	for i := 1; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[:i])
		}
	}
	return out
}

// IsDescendant reports whether p is root or below it.
func IsDescendant(p, root string) bool {
	if root == Root || p == root {
		return true
	}
	return strings.HasPrefix(p, root+"/")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
