package yangmodel

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/openconfig/goyang/pkg/yang"
)

// tableSchema is everything LoadModel distills out of a goyang Entry tree
// for one Config DB table: its row-key leaves (for composite-key tables,
// more than one, in schema order) and the leafref/leaf-list fields that
// point back at a PORT row.
type tableSchema struct {
	module   string   // defining module name, e.g. "sonic-vlan"
	listName string   // e.g. "VLAN_MEMBER_LIST"
	keyLeaves []string // schema key leaves in order, e.g. ["name", "port"]
	entry    *yang.Entry

	// portRefFields are the leaves/leaf-lists within this table's rows whose
	// YANG type is leafref targeting PORT_LIST/name. keyIndex is the
	// position in keyLeaves (composite-key dependency) or -1 (plain field,
	// scalar or leaf-list).
	portRefFields []portRefField
}

type portRefField struct {
	leaf     string
	keyIndex int
	leafList bool
}

var leafrefPortTarget = regexp.MustCompile(`PORT_LIST/(?:\w+:)?name\b`)

// loadSchema parses every *.yang file in dir with goyang and returns the
// underlying *yang.Modules set and the per-table schema keyed by table
// name (the module set is kept so callers can re-walk it, mirroring
// the way ygot's processModules retains moduleSet.Modules for code
// generation).
func loadSchema(dir string) (*yang.Modules, map[string]*tableSchema, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.yang"))
	if err != nil {
		return nil, nil, fmt.Errorf("globbing yang dir %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no .yang files found in %s", dir)
	}

	ms := yang.NewModules()
	ms.AddPath(dir)
	for _, f := range files {
		if err := ms.Read(f); err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", f, err)
		}
	}
	if errs := ms.Process(); len(errs) > 0 {
		return nil, nil, fmt.Errorf("processing yang modules: %v", errs)
	}

	seen := make(map[string]*yang.Module)
	var modNames []string
	for _, m := range ms.Modules {
		if seen[m.Name] == nil {
			seen[m.Name] = m
			modNames = append(modNames, m.Name)
		}
	}

	tables := make(map[string]*tableSchema)
	for _, name := range modNames {
		moduleEntry := yang.ToEntry(seen[name])
		if errs := moduleEntry.GetErrors(); len(errs) > 0 {
			return nil, nil, fmt.Errorf("module %s: %v", name, errs)
		}
		collectTables(name, moduleEntry, tables)
	}
	return ms, tables, nil
}

// collectTables walks one module's Entry tree looking for the
// "sonic-<x>" top container, then registers each direct child container
// (PORT, VLAN, VLAN_MEMBER, ...) as a table, keyed by its list entry.
func collectTables(module string, moduleEntry *yang.Entry, out map[string]*tableSchema) {
	for _, top := range moduleEntry.Dir {
		if top.Dir == nil {
			continue
		}
		for tableName, tableEntry := range top.Dir {
			listEntry := findListChild(tableEntry)
			if listEntry == nil {
				continue
			}
			ts := &tableSchema{
				module:    module,
				listName:  listEntry.Name,
				keyLeaves: strings.Fields(listEntry.Key),
				entry:     listEntry,
			}
			ts.portRefFields = findPortRefFields(listEntry, ts.keyLeaves)
			out[tableName] = ts
		}
	}
}

func findListChild(e *yang.Entry) *yang.Entry {
	for _, c := range e.Dir {
		if c.ListAttr != nil || c.Key != "" {
			return c
		}
	}
	return nil
}

// findPortRefFields inspects every leaf of a row schema and flags the ones
// whose YANG type is a leafref into PORT_LIST/name, whether that leaf is
// part of the composite row key (e.g. VLAN_MEMBER's "port" in "name port")
// or a plain leaf-list field (e.g. ACL_TABLE's "ports").
func findPortRefFields(listEntry *yang.Entry, keyLeaves []string) []portRefField {
	var fields []portRefField
	for leafName, leaf := range listEntry.Dir {
		if leaf.Type == nil || leaf.Type.Kind != yang.Yleafref {
			continue
		}
		path := leaf.Type.Path
		if !leafrefPortTarget.MatchString(path) {
			continue
		}
		keyIndex := -1
		for i, k := range keyLeaves {
			if k == leafName {
				keyIndex = i
				break
			}
		}
		fields = append(fields, portRefField{
			leaf:     leafName,
			keyIndex: keyIndex,
			leafList: leaf.ListAttr != nil,
		})
	}
	return fields
}
