package breakout

import (
	"github.com/sonic-net/dpbreakout/pkg/tree"
	"github.com/sonic-net/dpbreakout/pkg/yangmodel"
)

// planAdd builds the ADD_PLAN candidate tree: midImage's PORT table rows
// for req.AddPorts are overwritten with req.PortJSON, then — if
// req.LoadDefaults — the per-port defaults subtree (C2) is merged in (C4)
// table by table, with uniqueKeys=true so a port's own default rows can
// be introduced into tables it doesn't yet appear in, but never true at
// the top level: a table entirely absent from the candidate tree is
// never created as a side effect of a port operation.
func (e *Engine) planAdd(store *yangmodel.Store, midImage tree.Node, req Request) (map[string]tree.Node, error) {
	candidate, _ := tree.AsMap(tree.DeepCopy(midImage))

	portTable, ok := tree.AsMap(candidate["PORT"])
	if !ok {
		portTable = tree.NewMap()
	}
	for _, port := range req.AddPorts {
		fields, ok := req.PortJSON[port]
		if !ok {
			fields = tree.NewMap()
		}
		portTable[port] = tree.DeepCopy(fields)
	}
	candidate["PORT"] = portTable

	if !req.LoadDefaults || len(req.AddPorts) == 0 {
		return candidate, nil
	}

	defaultsStore, err := yangmodel.NewStoreFromFile(e.DefaultsFile, e.YangModelDir, true)
	if err != nil {
		return nil, err
	}
	defaultsTable, ok := tree.AsMap(defaultsStore.Get())
	if !ok {
		return candidate, nil
	}

	portDefaults, found := tree.SearchKeys(defaultsTable, req.AddPorts)
	if !found {
		return candidate, nil
	}
	portDefaultsMap, _ := tree.AsMap(portDefaults)

	return mergeDefaultsIntoTree(candidate, portDefaultsMap)
}

// mergeDefaultsIntoTree folds defaults into candidate, one table at a
// time: tables the defaults subtree names but the candidate tree lacks
// are skipped outright (refusing top-level table creation), while tables
// present on both sides merge with uniqueKeys=true, so new per-port rows
// (a VLAN_MEMBER row for a port that just gained membership, say) are
// introduced.
func mergeDefaultsIntoTree(candidate, defaults map[string]tree.Node) (map[string]tree.Node, error) {
	for table, defRows := range defaults {
		curRows, exists := candidate[table]
		if !exists {
			continue
		}
		merged, err := tree.Merge(curRows, defRows, true)
		if err != nil {
			return nil, err
		}
		candidate[table] = merged
	}
	return candidate, nil
}
