// Package tree implements the generic configuration-tree algorithms the
// breakout engine drives: the per-port key searcher (C2), the symmetric
// diff and write-payload synthesizer (C3), and the structural merge engine
// (C4). All three dispatch on the same tagged-variant shape: a Node is
// either a map keyed by string, a list, or a scalar (string/number/bool,
// or nil standing for JSON null).
//
// Go already decodes arbitrary JSON into exactly this shape via
// encoding/json (map[string]interface{} / []interface{} / scalars), so
// Node is a plain alias rather than a wrapper type — every ConfigTree
// read from Config DB or a defaults file is already a Node.
package tree

// Node is a generic config-tree value.
type Node = interface{}

// AsMap returns n as a map[string]Node and true if n is a map.
func AsMap(n Node) (map[string]Node, bool) {
	m, ok := n.(map[string]Node)
	return m, ok
}

// AsList returns n as a []Node and true if n is a list.
func AsList(n Node) ([]Node, bool) {
	l, ok := n.([]Node)
	return l, ok
}

// IsScalar reports whether n is neither a map nor a list (including nil).
func IsScalar(n Node) bool {
	if n == nil {
		return true
	}
	switch n.(type) {
	case map[string]Node, []Node:
		return false
	default:
		return true
	}
}

// NewMap returns an empty map node.
func NewMap() map[string]Node {
	return make(map[string]Node)
}

// NewList returns an empty list node.
func NewList() []Node {
	return make([]Node, 0)
}

// DeepCopy returns a value-typed copy of n with no aliased substructure,
// matching the "nested mutable trees become value-typed trees" design
// note: configIn and configOut must never share backing maps or slices.
func DeepCopy(n Node) Node {
	switch v := n.(type) {
	case map[string]Node:
		out := make(map[string]Node, len(v))
		for k, val := range v {
			out[k] = DeepCopy(val)
		}
		return out
	case []Node:
		out := make([]Node, len(v))
		for i, val := range v {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two nodes are structurally and value equal.
func Equal(a, b Node) bool {
	switch av := a.(type) {
	case map[string]Node:
		bv, ok := b.(map[string]Node)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, aval := range av {
			bval, ok := bv[k]
			if !ok || !Equal(aval, bval) {
				return false
			}
		}
		return true
	case []Node:
		bv, ok := b.([]Node)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// ScalarEqual reports whether a scalar list element equals the given
// string, the comparison form the key searcher and dependency scan use
// for "is this list member this port's name".
func ScalarEqual(n Node, s string) bool {
	str, ok := n.(string)
	return ok && str == s
}
