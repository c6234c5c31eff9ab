// Package yangmodel is the Tree Store (C1): an in-memory, YANG-validated
// snapshot of the Config DB tree. It wraps github.com/openconfig/goyang's
// pkg/yang front end — the same module the pack's openconfig/ygot code
// generator uses to turn .yang files into *yang.Entry schema trees — and
// layers dependency discovery, leafref/unique validation and xpath lookup
// on top of the generic tree.Node data the rest of the engine passes
// around.
package yangmodel

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openconfig/goyang/pkg/yang"
	"github.com/sonic-net/dpbreakout/pkg/dbclient"
	"github.com/sonic-net/dpbreakout/pkg/tree"
	"github.com/sonic-net/dpbreakout/pkg/util"
)

// ConfigTree is the generic nested tree described in spec.md §3: a map
// from table name to row key to field to scalar-or-list. It is exactly a
// tree.Node that happens to be a top-level map.
type ConfigTree = tree.Node

// Store is the Tree Store. Constructed once per transaction, loaded,
// validated, discarded — never reused across a second breakout call.
type Store struct {
	yangDir          string
	allowExtraTables bool

	modules *yang.Modules
	schema  map[string]*tableSchema

	tree        map[string]tree.Node // table name -> row key -> row
	extraTables []string
}

// NewStore builds a Store rooted at yangDir and loads its schema modules.
func NewStore(yangDir string, allowExtraTables bool) (*Store, error) {
	s := &Store{
		yangDir:          yangDir,
		allowExtraTables: allowExtraTables,
	}
	if err := s.LoadModel(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreFromFile builds and loads a Store directly from a defaults-file
// or snapshot JSON document at path, the same shape as a Config DB tree.
// This is how the orchestrator's C2 defaults-file reads and the CLI's
// --load-default path both construct a Tree Store without a live Config DB.
func NewStoreFromFile(path, yangDir string, allowExtraTables bool) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, util.NewDBIOError("defaultsfile", "read", err)
	}
	var decoded map[string]tree.Node
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, util.NewDBIOError("defaultsfile", "decode", err)
	}

	s, err := NewStore(yangDir, allowExtraTables)
	if err != nil {
		return nil, err
	}
	if err := s.Load(decoded, allowExtraTables); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreFromConfigDB builds and loads a Store from a live Config DB
// client's full tree snapshot.
func NewStoreFromConfigDB(client *dbclient.ConfigDBClient, yangDir string, allowExtraTables bool) (*Store, error) {
	snapshot, err := client.GetAll()
	if err != nil {
		return nil, util.NewDBIOError("configdb", "getall", err)
	}

	s, err := NewStore(yangDir, allowExtraTables)
	if err != nil {
		return nil, err
	}
	if err := s.Load(snapshot, allowExtraTables); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadModel parses every *.yang file in the model directory. Idempotent: a
// second call is a no-op once modules are loaded.
func (s *Store) LoadModel() error {
	if s.modules != nil {
		return nil
	}
	modules, schema, err := loadSchema(s.yangDir)
	if err != nil {
		util.WithField("yang_dir", s.yangDir).WithField("error", err).Error("failed to load yang model directory")
		return err
	}
	s.modules = modules
	s.schema = schema
	util.WithField("tables", len(schema)).Debug("yang schema loaded")
	return nil
}

// Load builds the in-memory data tree from in. Any top-level table with no
// matching schema entry is recorded under ExtraTables(); the load still
// succeeds if allowExtraTables is true, otherwise it fails with
// *util.SchemaCoverageError.
func (s *Store) Load(in ConfigTree, allowExtraTables bool) error {
	if err := s.LoadModel(); err != nil {
		return err
	}

	inMap, ok := tree.AsMap(in)
	if !ok {
		return fmt.Errorf("config tree root must be a map of tables, got %T", in)
	}

	s.extraTables = s.extraTables[:0]
	loaded := make(map[string]tree.Node, len(inMap))
	for table, rows := range inMap {
		if _, covered := s.schema[table]; !covered {
			s.extraTables = append(s.extraTables, table)
			if !allowExtraTables {
				return util.NewSchemaCoverageError(table)
			}
		}
		loaded[table] = tree.DeepCopy(rows)
	}
	s.tree = loaded
	return nil
}

// Get returns the canonical nested-map snapshot of the current tree.
func (s *Store) Get() ConfigTree {
	return tree.DeepCopy(s.tree)
}

// ExtraTables returns the top-level tables the last Load found with no
// corresponding YANG model, in load order.
func (s *Store) ExtraTables() []string {
	out := make([]string, len(s.extraTables))
	copy(out, s.extraTables)
	return out
}

// XPathOfPort returns the canonical xpath to a PORT row.
func (s *Store) XPathOfPort(name string) string {
	return fmt.Sprintf("/sonic-port:sonic-port/PORT/PORT_LIST[name='%s']", name)
}

// XPathOfPortLeaf returns the canonical xpath to a PORT row's name leaf.
func (s *Store) XPathOfPortLeaf(name string) string {
	return s.XPathOfPort(name) + "/name"
}

// Delete removes the row identified by xpath from the tree. Silent no-op
// if the node is already absent; never cascades on its own — the
// orchestrator drives cascading deletes via FindDependencies.
func (s *Store) Delete(xpath string) error {
	table, rowKey, ok := parseRowXPath(xpath)
	if !ok {
		return fmt.Errorf("yangmodel: cannot resolve xpath %q to a table row", xpath)
	}
	rows, ok := tree.AsMap(s.tree[table])
	if !ok {
		return nil
	}
	delete(rows, rowKey)
	s.tree[table] = rows
	return nil
}

// parseRowXPath extracts (table, rowKey) from an xpath of the canonical
// shape this package emits: ".../<TABLE>/<TABLE>_LIST[k1='v1'][k2='v2']".
// Composite keys are rejoined with "|" to match Config DB's row-key
// convention.
func parseRowXPath(xpath string) (table, rowKey string, ok bool) {
	segs := strings.Split(xpath, "/")
	for i, seg := range segs {
		bracket := strings.IndexByte(seg, '[')
		if bracket < 0 {
			continue
		}
		table = segs[i-1]
		var parts []string
		rest := seg[bracket:]
		for {
			open := strings.IndexByte(rest, '[')
			if open < 0 {
				break
			}
			close := strings.IndexByte(rest, ']')
			if close < 0 {
				break
			}
			kv := rest[open+1 : close]
			if eq := strings.IndexByte(kv, '='); eq >= 0 {
				v := strings.Trim(kv[eq+1:], "'\"")
				parts = append(parts, v)
			}
			rest = rest[close+1:]
		}
		if len(parts) == 0 {
			return "", "", false
		}
		return table, strings.Join(parts, "|"), true
	}
	return "", "", false
}
