// Package syncer decides, per generated document, whether the registry
// needs a create, an update or nothing, and performs it.
package syncer

import (
	"fmt"

	"github.com/wmo-im/codelists/internal/skos"
)

// Classification is the outcome of comparing a local document with its
// registry entry.
type Classification int

const (
	Equal Classification = iota
	Changed
	New
)

// String implements fmt.Stringer.
func (c Classification) String() string {
	switch c {
	case New:
		return "new"
	case Changed:
		return "changed"
	default:
		return "equal"
	}
}

// Classify compares local against remote as statement sets. The entry is
// New when the registry has none, Changed when some local statement is
// absent remotely, Equal otherwise. Statements only the registry holds
// (its own bookkeeping) never make a difference. For Changed the missing
// statements are returned in N-Triples form.
func Classify(remote []byte, found bool, local []byte, base string) (Classification, []string, error) {
	if !found {
		return New, nil, nil
	}
	lg, err := skos.ParseGraph(local, base)
	if err != nil {
		return Equal, nil, fmt.Errorf("syncer: parse local document: %w", err)
	}
	rg, err := skos.ParseGraph(remote, base)
	if err != nil {
		return Equal, nil, fmt.Errorf("syncer: parse registry document: %w", err)
	}
	if missing := lg.Missing(rg); len(missing) > 0 {
		return Changed, missing, nil
	}
	return Equal, nil, nil
}
