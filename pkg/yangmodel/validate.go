package yangmodel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sonic-net/dpbreakout/pkg/tree"
	"github.com/sonic-net/dpbreakout/pkg/util"
)

// Validate checks leafref resolution for every field C1 recorded as
// referencing a PORT row, plus the PORT table's "unique lanes" constraint.
// Leaf types, leafrefs to non-PORT targets, must/when expressions and
// unique statements on other tables are not checked. Every violation is
// accumulated — the caller sees the complete list, not just the first.
func (s *Store) Validate() error {
	v := &util.ValidationBuilder{}

	portNames := s.portNameSet()
	for table, ts := range s.schema {
		rows, ok := tree.AsMap(s.tree[table])
		if !ok {
			continue
		}
		for rowKey, rowNode := range rows {
			row, _ := tree.AsMap(rowNode)
			keyParts := strings.Split(rowKey, "|")
			for _, ref := range ts.portRefFields {
				switch {
				case ref.keyIndex >= 0:
					if ref.keyIndex < len(keyParts) {
						port := keyParts[ref.keyIndex]
						v.Add(portNames[port], fmt.Sprintf(
							"%s row %q: leafref field %q references unknown port %q", table, rowKey, ref.leaf, port))
					}
				case ref.leafList:
					list, _ := tree.AsList(row[ref.leaf])
					for _, item := range list {
						port, _ := item.(string)
						v.Add(portNames[port], fmt.Sprintf(
							"%s row %q: leaf-list field %q references unknown port %q", table, rowKey, ref.leaf, port))
					}
				default:
					port, _ := row[ref.leaf].(string)
					if port != "" {
						v.Add(portNames[port], fmt.Sprintf(
							"%s row %q: leafref field %q references unknown port %q", table, rowKey, ref.leaf, port))
					}
				}
			}
		}
	}

	if portSchema, ok := s.schema["PORT"]; ok {
		validateUniqueLanes(portSchema, s.tree["PORT"], v)
	}

	if v.HasErrors() {
		return v.Build()
	}
	return nil
}

func (s *Store) portNameSet() map[string]bool {
	names := make(map[string]bool)
	rows, ok := tree.AsMap(s.tree["PORT"])
	if !ok {
		return names
	}
	for key := range rows {
		names[key] = true
	}
	return names
}

var uniqueLeafPattern = regexp.MustCompile(`\w+`)

// validateUniqueLanes enforces PORT_LIST's "unique lanes" statement.
// goyang treats "unique" as an unimplemented keyword (see its own
// ToEntry TODO) and stores the raw statement under Entry.Extra["unique"]
// rather than a typed field, so the leaf name is recovered by scanning the
// statement's string form for the leaf it names.
func validateUniqueLanes(ts *tableSchema, rowsNode tree.Node, v *util.ValidationBuilder) {
	raw, ok := ts.entry.Extra["unique"]
	if !ok || len(raw) == 0 {
		return
	}
	leaf := ""
	for _, stmt := range raw {
		text := fmt.Sprintf("%v", stmt)
		if m := uniqueLeafPattern.FindString(text); m != "" {
			leaf = m
			break
		}
	}
	if leaf == "" {
		return
	}

	rows, ok := tree.AsMap(rowsNode)
	if !ok {
		return
	}
	seen := make(map[string]string)
	for rowKey, rowNode := range rows {
		row, _ := tree.AsMap(rowNode)
		val, _ := row[leaf].(string)
		if val == "" {
			continue
		}
		if owner, exists := seen[val]; exists {
			v.AddError(fmt.Sprintf("PORT rows %q and %q both claim %s=%q", owner, rowKey, leaf, val))
			continue
		}
		seen[val] = rowKey
	}
}

// FindDependencies returns every xpath in the current tree whose value
// structurally depends on the node at xpath, per the [DEPS] rules: schema
// leafref/leaf-list fields recorded at LoadModel time, plus — for tables
// outside YANG coverage — the same port-key pattern the Key Searcher uses,
// so dependency discovery and default-config discovery share one
// pattern-matching primitive.
func (s *Store) FindDependencies(xpath string) []string {
	_, rowKey, ok := parseRowXPath(xpath)
	if !ok {
		return nil
	}
	port := rowKey

	var deps []string
	for table, ts := range s.schema {
		if table == "PORT" || len(ts.portRefFields) == 0 {
			continue
		}
		rows, ok := tree.AsMap(s.tree[table])
		if !ok {
			continue
		}
		for key, rowNode := range rows {
			row, _ := tree.AsMap(rowNode)
			keyParts := strings.Split(key, "|")
			for _, ref := range ts.portRefFields {
				switch {
				case ref.keyIndex >= 0 && ref.keyIndex < len(keyParts) && keyParts[ref.keyIndex] == port:
					deps = append(deps, tableRowXPath(table, keyParts))
				case ref.leafList:
					list, _ := tree.AsList(row[ref.leaf])
					for _, item := range list {
						if s, _ := item.(string); s == port {
							deps = append(deps, tableRowXPath(table, keyParts))
						}
					}
				case !ref.leafList && ref.keyIndex < 0:
					if v, _ := row[ref.leaf].(string); v == port {
						deps = append(deps, tableRowXPath(table, keyParts))
					}
				}
			}
		}
	}

	for _, table := range s.extraTables {
		sub := map[string]tree.Node{table: s.tree[table]}
		matched, found := tree.SearchKeys(sub, []string{port})
		if !found {
			continue
		}
		matchedMap, _ := tree.AsMap(matched)
		rows, _ := tree.AsMap(matchedMap[table])
		for key := range rows {
			deps = append(deps, tableRowXPath(table, strings.Split(key, "|")))
		}
	}
	return deps
}

func tableRowXPath(table string, keyParts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "/%s:%s/%s/%s_LIST", strings.ToLower(table), strings.ToLower(table), table, table)
	for _, k := range keyParts {
		fmt.Fprintf(&b, "[key='%s']", k)
	}
	return b.String()
}
