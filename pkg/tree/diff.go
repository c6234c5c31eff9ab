package tree

import "github.com/sonic-net/dpbreakout/pkg/util"

// deleteMarker and insertMarker are the symmetric-diff tags: deleteMarker's
// value is a map of keys removed between pre and post (drawn from pre),
// insertMarker's value is a map of keys added (drawn from post). Keys
// present on both sides but structurally different recurse directly under
// their own name instead of going through either marker.
const (
	deleteMarker = "$delete"
	insertMarker = "$insert"
)

// SymmetricDiff computes the diff engine's tagged delete/insert tree
// between a pre-image and a post-image, per spec.md §4.3. Returns nil when
// pre and post are equal — diffSynthesize(T, T) must be empty.
func SymmetricDiff(pre, post Node) Node {
	if Equal(pre, post) {
		return nil
	}
	preMap, preIsMap := pre.(map[string]Node)
	postMap, postIsMap := post.(map[string]Node)
	if preIsMap && postIsMap {
		return diffMaps(preMap, postMap)
	}
	// A non-map pair that differs (two lists, two scalars, or a shape
	// change) has no natural key to recurse under; the caller that found
	// this pair at some key k is expected to have already captured it as
	// a $delete/$insert pair for k rather than calling back in here. This
	// branch only fires for a direct top-level call on non-map trees,
	// which a ConfigTree (always table-name-keyed) never does in
	// practice; it degrades to a single synthetic full replacement.
	out := NewMap()
	out[deleteMarker] = map[string]Node{"": pre}
	out[insertMarker] = map[string]Node{"": post}
	return out
}

func diffMaps(pre, post map[string]Node) Node {
	del := NewMap()
	ins := NewMap()
	result := NewMap()

	seen := make(map[string]bool, len(pre)+len(post))
	for k := range pre {
		seen[k] = true
	}
	for k := range post {
		seen[k] = true
	}

	for k := range seen {
		pv, pok := pre[k]
		qv, qok := post[k]

		switch {
		case pok && !qok:
			del[k] = pv
		case !pok && qok:
			ins[k] = qv
		case Equal(pv, qv):
			// no diff contributed
		default:
			pvMap, pvIsMap := pv.(map[string]Node)
			qvMap, qvIsMap := qv.(map[string]Node)
			if pvIsMap && qvIsMap {
				if nested := diffMaps(pvMap, qvMap); nested != nil {
					result[k] = nested
				}
				continue
			}
			// Lists or scalars that differ, or a map<->list shape
			// change: represented as a full delete+insert pair at
			// this key rather than a recursive diff.
			del[k] = pv
			ins[k] = qv
		}
	}

	if len(del) > 0 {
		result[deleteMarker] = del
	}
	if len(ins) > 0 {
		result[insertMarker] = ins
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// Synthesize translates a SymmetricDiff result into the Config DB write
// payload: a single nested map carrying the fewest key operations needed
// to turn pre into post, per spec.md §4.3. Returns nil if diff is nil or
// carries no writes once pruned.
func Synthesize(diff, pre, post Node) Node {
	if diff == nil {
		return nil
	}
	diffMap, ok := diff.(map[string]Node)
	if !ok {
		util.Logger.WithField("diff", diff).Warn("synthesize: diff node is not a map, skipping")
		return nil
	}
	preMap, _ := pre.(map[string]Node)
	postMap, _ := post.(map[string]Node)

	config := NewMap()

	if delv, ok := diffMap[deleteMarker]; ok {
		delMap, ok := delv.(map[string]Node)
		if !ok {
			util.Logger.Warn("synthesize: $delete value is not a map, skipping")
		} else {
			for k := range delMap {
				pv, exists := preMap[k]
				if !exists {
					util.Logger.WithField("key", k).Warn("synthesize: $delete key not found in pre-image, probably wrong key")
					continue
				}
				switch pv.(type) {
				case map[string]Node:
					config[k] = nil
				case []Node:
					config[k] = NewList()
				default:
					config[k] = nil
				}
			}
		}
	}

	if insv, ok := diffMap[insertMarker]; ok {
		insMap, ok := insv.(map[string]Node)
		if !ok {
			util.Logger.Warn("synthesize: $insert value is not a map, skipping")
		} else {
			for k := range insMap {
				pv, exists := postMap[k]
				if !exists {
					util.Logger.WithField("key", k).Warn("synthesize: $insert key not found in post-image, probably wrong key")
					continue
				}
				config[k] = DeepCopy(pv)
			}
		}
	}

	for k, v := range diffMap {
		if k == deleteMarker || k == insertMarker {
			continue
		}
		// A nested diff value represents a scalar-update-shaped entry
		// smuggled into a map position (diff is a list where the
		// post-image is a map): dropped per spec.md's tie-break rule.
		if _, isList := v.([]Node); isList {
			if _, postIsMap := postMap[k].(map[string]Node); postIsMap {
				continue
			}
		}
		var subPre, subPost Node
		if preMap != nil {
			subPre = preMap[k]
		}
		if postMap != nil {
			subPost = postMap[k]
		}
		sub := Synthesize(v, subPre, subPost)
		if sub == nil {
			continue
		}
		if subMap, ok := sub.(map[string]Node); ok && len(subMap) == 0 {
			continue
		}
		config[k] = sub
	}

	if len(config) == 0 {
		return nil
	}
	return config
}
