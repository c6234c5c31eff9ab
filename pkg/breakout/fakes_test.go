package breakout

import (
	"fmt"
	"sort"
	"sync"
)

// fakeConfigStore is an in-memory stand-in for dbclient.ConfigDBClient,
// good enough to drive the state machine without a live Redis instance.
type fakeConfigStore struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]interface{}
}

func newFakeConfigStore(seed map[string]map[string]map[string]interface{}) *fakeConfigStore {
	f := &fakeConfigStore{tables: make(map[string]map[string]map[string]interface{})}
	for table, rows := range seed {
		f.tables[table] = make(map[string]map[string]interface{}, len(rows))
		for k, v := range rows {
			f.tables[table][k] = v
		}
	}
	return f
}

func (f *fakeConfigStore) GetAll() (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]interface{}, len(f.tables))
	for table, rows := range f.tables {
		rowsOut := make(map[string]interface{}, len(rows))
		for k, v := range rows {
			rowsOut[k] = v
		}
		out[table] = rowsOut
	}
	return out, nil
}

func (f *fakeConfigStore) Apply(payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for table, rowsVal := range payload {
		rows, ok := rowsVal.(map[string]interface{})
		if !ok {
			continue
		}
		if f.tables[table] == nil {
			f.tables[table] = make(map[string]map[string]interface{})
		}
		for rowKey, rowVal := range rows {
			if rowVal == nil {
				delete(f.tables[table], rowKey)
				continue
			}
			fields, ok := rowVal.(map[string]interface{})
			if !ok {
				continue
			}
			existing, ok := f.tables[table][rowKey]
			if !ok {
				existing = make(map[string]interface{})
			}
			for field, v := range fields {
				if isClearSentinel(v) {
					delete(existing, field)
					continue
				}
				existing[field] = v
			}
			f.tables[table][rowKey] = existing
		}
	}
	return nil
}

func isClearSentinel(v interface{}) bool {
	if v == nil {
		return true
	}
	if list, ok := v.([]interface{}); ok && len(list) == 0 {
		return true
	}
	return false
}

func (f *fakeConfigStore) rowKeys(table string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.tables[table] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (f *fakeConfigStore) row(table, key string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[table][key]
}

// fakeAsicStore simulates ASIC_DB: ports "release" (their oid key
// disappears) after releaseAfter polls, or never if their oid has no
// releaseAfter entry (a nil map simulates an asic stall).
type fakeAsicStore struct {
	mu           sync.Mutex
	nameToOid    map[string]string
	oidPresent   map[string]bool
	releaseAfter map[string]int // oid -> polls remaining before it vanishes
}

func newFakeAsicStore(nameToOid map[string]string, releaseAfter map[string]int) *fakeAsicStore {
	present := make(map[string]bool, len(nameToOid))
	for _, oid := range nameToOid {
		present[oid] = true
	}
	return &fakeAsicStore{nameToOid: nameToOid, oidPresent: present, releaseAfter: releaseAfter}
}

func (f *fakeAsicStore) GetInterfaceOidMap() (map[string]string, map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	nameToOid := make(map[string]string, len(f.nameToOid))
	oidToName := make(map[string]string, len(f.nameToOid))
	for name, oid := range f.nameToOid {
		nameToOid[name] = oid
		oidToName[oid] = name
	}
	return nameToOid, oidToName, nil
}

func (f *fakeAsicStore) Exists(key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	oid := key
	const prefix = "ASIC_STATE:SAI_OBJECT_TYPE_PORT:oid:0x"
	if len(key) > len(prefix) {
		oid = key[len(prefix):]
	}
	if !f.oidPresent[oid] {
		return false, nil
	}
	left, ok := f.releaseAfter[oid]
	if !ok {
		return true, nil
	}
	if left <= 0 {
		f.oidPresent[oid] = false
		return false, nil
	}
	f.releaseAfter[oid] = left - 1
	return true, nil
}

// releaseImmediately builds a releaseAfter map that frees every oid on its
// first poll, for tests where the asic is expected to converge right away.
func releaseImmediately(nameToOid map[string]string) map[string]int {
	out := make(map[string]int, len(nameToOid))
	for _, oid := range nameToOid {
		out[oid] = 0
	}
	return out
}

func portRow(lanes, speed string) map[string]interface{} {
	return map[string]interface{}{"lanes": lanes, "speed": speed}
}

func oidFor(n int) string {
	return fmt.Sprintf("1000000000%03d", n)
}
