package tree

import "testing"

func portRow(lanes, speed string) map[string]Node {
	return map[string]Node{"lanes": lanes, "speed": speed}
}

func TestSymmetricDiff_IdenticalTreesAreEmpty(t *testing.T) {
	t1 := map[string]Node{
		"PORT": map[string]Node{"Ethernet0": portRow("65", "25000")},
	}
	t2 := map[string]Node{
		"PORT": map[string]Node{"Ethernet0": portRow("65", "25000")},
	}
	if diff := SymmetricDiff(t1, t2); diff != nil {
		t.Errorf("expected nil diff for identical trees, got %v", diff)
	}
}

func TestSynthesize_IdenticalTreesProduceNoPayload(t *testing.T) {
	t1 := map[string]Node{"PORT": map[string]Node{"Ethernet0": portRow("65", "25000")}}
	t2 := DeepCopy(t1)
	diff := SymmetricDiff(t1, t2)
	payload := Synthesize(diff, t1, t2)
	if payload != nil {
		t.Errorf("expected nil payload for identical trees, got %v", payload)
	}
}

// 1x100G -> 4x25G: Ethernet0's row is rewritten field by field (its stale
// admin_status cleared) and three new rows are inserted.
func TestDiffSynthesize_Breakout100GTo4x25G(t *testing.T) {
	pre := map[string]Node{
		"PORT": map[string]Node{
			"Ethernet0": map[string]Node{"lanes": "65,66,67,68", "speed": "100000", "admin_status": "up"},
		},
	}
	post := map[string]Node{
		"PORT": map[string]Node{
			"Ethernet0": portRow("65", "25000"),
			"Ethernet1": portRow("66", "25000"),
			"Ethernet2": portRow("67", "25000"),
			"Ethernet3": portRow("68", "25000"),
		},
	}

	diff := SymmetricDiff(pre, post)
	payload := Synthesize(diff, pre, post)
	payloadMap, ok := AsMap(payload)
	if !ok {
		t.Fatalf("expected map payload, got %v", payload)
	}
	portOps, ok := AsMap(payloadMap["PORT"])
	if !ok {
		t.Fatalf("expected PORT payload, got %v", payloadMap["PORT"])
	}

	// Ethernet0's old row and new row are represented by the same table
	// key: since the row value differs (and is a map on both sides), the
	// PORT table diff recurses under "Ethernet0" rather than delete+insert.
	if _, ok := portOps["Ethernet0"]; !ok {
		t.Error("expected a write for Ethernet0")
	}
	for _, name := range []string{"Ethernet1", "Ethernet2", "Ethernet3"} {
		row, ok := AsMap(portOps[name])
		if !ok {
			t.Fatalf("expected inserted row for %s, got %v", name, portOps[name])
		}
		if row["speed"] != "25000" {
			t.Errorf("%s: expected speed 25000, got %v", name, row["speed"])
		}
	}
}

// 4x25G -> 2x50G: Ethernet1 and Ethernet3 rows are deleted outright.
func TestDiffSynthesize_Breakout4x25GTo2x50G(t *testing.T) {
	pre := map[string]Node{
		"PORT": map[string]Node{
			"Ethernet0": portRow("65", "25000"),
			"Ethernet1": portRow("66", "25000"),
			"Ethernet2": portRow("67", "25000"),
			"Ethernet3": portRow("68", "25000"),
		},
	}
	post := map[string]Node{
		"PORT": map[string]Node{
			"Ethernet0": portRow("65,66", "50000"),
			"Ethernet2": portRow("67,68", "50000"),
		},
	}

	diff := SymmetricDiff(pre, post)
	payload := Synthesize(diff, pre, post)
	payloadMap, _ := AsMap(payload)
	portOps, _ := AsMap(payloadMap["PORT"])

	if v, ok := portOps["Ethernet1"]; !ok || v != nil {
		t.Errorf("expected Ethernet1 to be a row delete (nil), got %v, present=%v", v, ok)
	}
	if v, ok := portOps["Ethernet3"]; !ok || v != nil {
		t.Errorf("expected Ethernet3 to be a row delete (nil), got %v, present=%v", v, ok)
	}
	if _, ok := portOps["Ethernet0"]; !ok {
		t.Error("expected Ethernet0 to be rewritten")
	}
}

func TestSynthesize_FieldClearUsesEmptyList(t *testing.T) {
	pre := map[string]Node{
		"ACL_TABLE": map[string]Node{
			"DATAACL": map[string]Node{"ports": []Node{"Ethernet0", "Ethernet4"}},
		},
	}
	post := map[string]Node{
		"ACL_TABLE": map[string]Node{
			"DATAACL": map[string]Node{},
		},
	}
	diff := SymmetricDiff(pre, post)
	payload := Synthesize(diff, pre, post)
	payloadMap, _ := AsMap(payload)
	aclOps, _ := AsMap(payloadMap["ACL_TABLE"])
	dataACL, _ := AsMap(aclOps["DATAACL"])
	list, ok := AsList(dataACL["ports"])
	if !ok || len(list) != 0 {
		t.Errorf("expected ports cleared to an empty list, got %v", dataACL["ports"])
	}
}

func TestSynthesize_VlanMemberRemoved(t *testing.T) {
	pre := map[string]Node{
		"VLAN_MEMBER": map[string]Node{
			"Vlan100|Ethernet0": map[string]Node{"tagging_mode": "untagged"},
		},
	}
	post := map[string]Node{
		"VLAN_MEMBER": map[string]Node{},
	}
	diff := SymmetricDiff(pre, post)
	payload := Synthesize(diff, pre, post)
	payloadMap, _ := AsMap(payload)
	members, _ := AsMap(payloadMap["VLAN_MEMBER"])
	v, ok := members["Vlan100|Ethernet0"]
	if !ok || v != nil {
		t.Errorf("expected VLAN_MEMBER row delete, got %v present=%v", v, ok)
	}
}

func TestSynthesize_CorruptDiffSkippedNotRaised(t *testing.T) {
	pre := map[string]Node{"PORT": map[string]Node{"Ethernet0": portRow("65", "25000")}}
	post := map[string]Node{"PORT": map[string]Node{"Ethernet0": portRow("65", "25000")}}
	// A hand-built diff referencing a key absent from both images.
	diff := map[string]Node{
		"PORT": map[string]Node{
			deleteMarker: map[string]Node{"Ethernet99": "anything"},
		},
	}
	payload := Synthesize(diff, pre, post)
	if payload != nil {
		t.Errorf("expected corrupt-diff key to be dropped entirely, got %v", payload)
	}
}
