package tree

import "github.com/sonic-net/dpbreakout/pkg/util"

// Merge folds d2 into d1 per spec.md §4.4 and returns the result: map
// keys recurse, lists concatenate, a map paired with a list at the same
// position is a shape error, and scalar collisions keep d1 (first writer
// wins). Keys d2 has that d1 lacks are copied only when uniqueKeys is
// true — when merging per-port defaults into a candidate tree, the
// breakout engine calls Merge with uniqueKeys=true once per table the
// candidate already has and skips the other tables, so a port operation
// can never create a whole new table as a side effect.
func Merge(d1, d2 Node, uniqueKeys bool) (Node, error) {
	return mergeNode(d1, d2, uniqueKeys, "")
}

func mergeNode(d1, d2 Node, uniqueKeys bool, path string) (Node, error) {
	m1, ok1 := d1.(map[string]Node)
	m2, ok2 := d2.(map[string]Node)
	if ok1 && ok2 {
		return mergeMaps(m1, m2, uniqueKeys, path)
	}

	l1, ok1 := d1.([]Node)
	l2, ok2 := d2.([]Node)
	if ok1 && ok2 {
		out := make([]Node, 0, len(l1)+len(l2))
		out = append(out, l1...)
		out = append(out, l2...)
		return out, nil
	}

	if !IsScalar(d1) || !IsScalar(d2) {
		return nil, util.NewMergeShapeError(path, typeName(d1), typeName(d2))
	}

	// Both scalar: first writer (d1) wins.
	return d1, nil
}

func mergeMaps(m1, m2 map[string]Node, uniqueKeys bool, path string) (map[string]Node, error) {
	out := make(map[string]Node, len(m1))
	for k, v := range m1 {
		out[k] = v
	}
	for k, v2 := range m2 {
		v1, exists := out[k]
		if !exists {
			if uniqueKeys {
				out[k] = DeepCopy(v2)
			}
			continue
		}
		merged, err := mergeNode(v1, v2, uniqueKeys, path+"."+k)
		if err != nil {
			return nil, err
		}
		out[k] = merged
	}
	return out, nil
}

func typeName(n Node) string {
	switch n.(type) {
	case map[string]Node:
		return "map"
	case []Node:
		return "list"
	case nil:
		return "null"
	default:
		return "scalar"
	}
}
