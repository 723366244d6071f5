package skos

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/knakk/rdf"
)

// Graph is a document reduced to a set of canonical N-Triples statements,
// so that ordering and formatting do not affect comparison.
type Graph map[string]struct{}

// ParseGraph decodes Turtle data. Relative IRIs are resolved against base,
// which should end with a slash; an empty base leaves them as written.
func ParseGraph(data []byte, base string) (Graph, error) {
	src := data
	if base != "" {
		src = append([]byte("@base <"+base+"> .\n"), data...)
	}

	g := make(Graph)
	dec := rdf.NewTripleDecoder(bytes.NewReader(src), rdf.Turtle)
	for {
		tr, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("skos: parse turtle: %w", err)
		}
		g[statementKey(tr)] = struct{}{}
	}
	return g, nil
}

// Graph parses the document's own Turtle serialization against base.
func (d *Document) Graph(base string) (Graph, error) {
	return ParseGraph(d.Turtle(), base)
}

func statementKey(tr rdf.Triple) string {
	return termKey(tr.Subj) + " " + termKey(tr.Pred) + " " + termKey(tr.Obj) + " ."
}

// termKey drops the implicit xsd:string datatype so that "x" and
// "x"^^xsd:string compare equal.
func termKey(t rdf.Term) string {
	key := strings.TrimSpace(t.Serialize(rdf.NTriples))
	return strings.TrimSuffix(key, "^^<"+NSXSD+"string>")
}

// Len returns the number of statements.
func (g Graph) Len() int { return len(g) }

// Has reports whether the statement key is present.
func (g Graph) Has(key string) bool {
	_, ok := g[key]
	return ok
}

// Missing returns the statements of g absent from other, sorted.
func (g Graph) Missing(other Graph) []string {
	var out []string
	for k := range g {
		if !other.Has(k) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// SubsetOf reports whether every statement of g is in other.
func (g Graph) SubsetOf(other Graph) bool {
	for k := range g {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Equal reports whether both graphs hold the same statements.
func (g Graph) Equal(other Graph) bool {
	return len(g) == len(other) && g.SubsetOf(other)
}

// Statements returns the sorted statement keys.
func (g Graph) Statements() []string {
	out := make([]string, 0, len(g))
	for k := range g {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
