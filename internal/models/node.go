// Package models defines the domain types for the taxonomy compiler.
package models

import (
	"path"
	"time"
)

// Role tells how a node is rendered: the root register, an internal
// collection, or a leaf concept.
type Role int

const (
	RoleConcept Role = iota
	RoleCollection
	RoleRoot
)

// String implements fmt.Stringer.
func (r Role) String() string {
	switch r {
	case RoleRoot:
		return "root"
	case RoleCollection:
		return "collection"
	default:
		return "concept"
	}
}

// HasChildren reports whether nodes of this role own a directory of children.
func (r Role) HasChildren() bool {
	return r == RoleRoot || r == RoleCollection
}

// Node is one entry of the taxonomy. Children keep source-table order.
type Node struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Source      string  `json:"source,omitempty"`
	Role        Role    `json:"role"`
	Children    []*Node `json:"children,omitempty"`
}

// AddChild appends a child and returns it.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Child returns the direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Count returns the number of nodes in the subtree, n included.
func (n *Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// VisitFunc is called for every node with the slash-separated directory the
// node's document lives in (empty for the root) and its depth.
type VisitFunc func(dir string, depth int, n *Node) error

// Walk visits n and its descendants depth-first, parents before children.
// Returning an error stops the walk.
func (n *Node) Walk(fn VisitFunc) error {
	return n.walk("", 0, fn)
}

func (n *Node) walk(dir string, depth int, fn VisitFunc) error {
	if err := fn(dir, depth, n); err != nil {
		return err
	}
	childDir := path.Join(dir, n.Name)
	for _, c := range n.Children {
		if err := c.walk(childDir, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// DocumentMetadata describes one generated document on disk.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncEntry is one ledger record of a document pushed to the registry.
type SyncEntry struct {
	Path           string    `json:"path"`
	Address        string    `json:"address"`
	Checksum       string    `json:"checksum"`
	Classification string    `json:"classification"`
	Missing        int       `json:"missing"`
	Error          string    `json:"error,omitempty"`
	DryRun         bool      `json:"dry_run"`
	SyncedAt       time.Time `json:"synced_at"`
}
