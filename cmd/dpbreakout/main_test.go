package main

import (
	"reflect"
	"testing"
)

func TestValidateMode(t *testing.T) {
	if err := validateMode("4x25G[10G]"); err != nil {
		t.Errorf("unexpected error for a known mode: %v", err)
	}
	if err := validateMode("9x9G"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestResolvePortList_CommaList(t *testing.T) {
	got, err := resolvePortList("Ethernet0, Ethernet4,Ethernet8")
	if err != nil {
		t.Fatalf("resolvePortList: %v", err)
	}
	want := []string{"Ethernet0", "Ethernet4", "Ethernet8"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolvePortList_Range(t *testing.T) {
	got, err := resolvePortList("Ethernet0-3")
	if err != nil {
		t.Fatalf("resolvePortList: %v", err)
	}
	want := []string{"Ethernet0", "Ethernet1", "Ethernet2", "Ethernet3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestResolvePortList_InvalidRange(t *testing.T) {
	if _, err := resolvePortList("Ethernet3-0"); err == nil {
		t.Error("expected an error for a descending range")
	}
}
