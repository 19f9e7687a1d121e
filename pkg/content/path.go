package content

import (
	"strings"
)

// Path is a normalized, root-anchored file path.
//
// Paths are produced by ParsePath and are always absolute ("/a/b"), never
// contain empty, "." or ".." components, and never escape the root. The zero
// value is the root path "/".
//
// Path is comparable and may be used as a map key.
type Path struct {
	clean string
}

// ParsePath normalizes a raw request path.
//
// Normalization:
//   - Anything after the first '?' or '#' is dropped
//   - The path is split on '/'
//   - Empty and "." components are dropped
//   - ".." removes the previous component, and is ignored at the root
//
// Examples:
//
//	ParsePath("/index.html")       // "/index.html"
//	ParsePath("a//b/./c")          // "/a/b/c"
//	ParsePath("/../../etc/passwd") // "/etc/passwd"
//	ParsePath("/docs/?v=1")        // "/docs"
//	ParsePath("")                  // "/"
func ParsePath(raw string) Path {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}

	parts := strings.Split(raw, "/")
	components := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(components) > 0 {
				components = components[:len(components)-1]
			}
		default:
			components = append(components, part)
		}
	}

	return Path{clean: strings.Join(components, "/")}
}

// String returns the path in its absolute form, "/" for the root.
func (p Path) String() string {
	return "/" + p.clean
}

// Relative returns the path without its leading slash, "" for the root.
//
// Object stores and key-value backends use this form as the key.
func (p Path) Relative() string {
	return p.clean
}

// Components returns the path's components, empty for the root.
func (p Path) Components() []string {
	if p.clean == "" {
		return nil
	}
	return strings.Split(p.clean, "/")
}

// IsRoot reports whether p is the root path.
func (p Path) IsRoot() bool {
	return p.clean == ""
}
