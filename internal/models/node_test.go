package models

import (
	"path"
	"testing"
)

func sampleTree() *Node {
	root := &Node{Name: "topic-hierarchy", Role: RoleRoot}
	eu := root.AddChild(&Node{Name: "EU", Role: RoleCollection})
	eu.AddChild(&Node{Name: "P1"})
	eu.AddChild(&Node{Name: "P2"})
	root.AddChild(&Node{Name: "NA", Role: RoleCollection}).AddChild(&Node{Name: "P3"})
	return root
}

func TestNode_Count(t *testing.T) {
	if got := sampleTree().Count(); got != 6 {
		t.Errorf("Count = %d, want 6", got)
	}
}

func TestNode_WalkOrderAndPaths(t *testing.T) {
	var got []string
	err := sampleTree().Walk(func(dir string, depth int, n *Node) error {
		got = append(got, path.Join(dir, n.Name))
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{
		"topic-hierarchy",
		"topic-hierarchy/EU",
		"topic-hierarchy/EU/P1",
		"topic-hierarchy/EU/P2",
		"topic-hierarchy/NA",
		"topic-hierarchy/NA/P3",
	}
	if len(got) != len(want) {
		t.Fatalf("visited %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("visit[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNode_Child(t *testing.T) {
	root := sampleTree()
	if root.Child("NA") == nil {
		t.Fatal("expected NA child")
	}
	if root.Child("missing") != nil {
		t.Error("expected nil for unknown child")
	}
}

func TestRole_String(t *testing.T) {
	cases := map[Role]string{RoleRoot: "root", RoleCollection: "collection", RoleConcept: "concept"}
	for r, want := range cases {
		if r.String() != want {
			t.Errorf("%d.String() = %q, want %q", r, r.String(), want)
		}
	}
	if RoleConcept.HasChildren() {
		t.Error("concepts must not own children")
	}
}
