// Package namespace implements the wire contract for namespaced MCP
// tool and prompt identifiers: <namespace>_<name>. The underscore is the
// sole separator; both ends of the gateway must agree on it exactly.
package namespace

import (
	"fmt"
	"strings"
)

// Separator is the reserved character between a namespace and an inner
// name in a wire identifier. It must not appear inside a namespace.
const Separator = "_"

// Join builds the wire form of a namespaced identifier.
func Join(ns, name string) string {
	return ns + Separator + name
}

// Split parses a wire identifier into its namespace and inner name.
// It splits on the first separator only, so inner names may themselves
// contain the separator. It fails if full contains no separator or if
// the resulting namespace is empty.
func Split(full string) (ns, name string, err error) {
	idx := strings.Index(full, Separator)
	if idx < 0 {
		return "", "", fmt.Errorf("namespace: %q is not a namespaced identifier", full)
	}
	ns, name = full[:idx], full[idx+1:]
	if ns == "" {
		return "", "", fmt.Errorf("namespace: %q has an empty namespace", full)
	}
	return ns, name, nil
}

// IsNamespaced reports whether full contains the namespace separator.
func IsNamespaced(full string) bool {
	return strings.Contains(full, Separator)
}

// Valid reports whether ns is usable as a namespace: non-empty and free
// of the separator character.
func Valid(ns string) bool {
	return ns != "" && !strings.Contains(ns, Separator)
}
