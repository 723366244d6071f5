package skos

import (
	"fmt"
	"sort"
	"strings"
)

// Turtle serializes the document. Output is deterministic: prefixes are
// sorted, predicates and objects keep the order they were added in.
func (d *Document) Turtle() []byte {
	var sb strings.Builder

	used := d.usedPrefixes()
	for _, ns := range used {
		fmt.Fprintf(&sb, "@prefix %s: <%s> .\n", prefixes[ns], ns)
	}
	if len(used) > 0 {
		sb.WriteString("\n")
	}

	sb.WriteString("<" + escapeIRI(d.Subject) + ">")

	groups := d.groupByPredicate()
	for i, g := range groups {
		if i == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(" ;\n        ")
		}
		sb.WriteString(formatPredicate(g.predicate))
		sb.WriteString(" ")
		for j, obj := range g.objects {
			if j > 0 {
				sb.WriteString(" , ")
			}
			sb.WriteString(formatTerm(obj))
		}
	}
	sb.WriteString(" .\n")
	return []byte(sb.String())
}

type predicateGroup struct {
	predicate string
	objects   []Term
}

func (d *Document) groupByPredicate() []predicateGroup {
	var out []predicateGroup
	pos := make(map[string]int)
	for _, st := range d.Statements {
		i, ok := pos[st.Predicate]
		if !ok {
			i = len(out)
			pos[st.Predicate] = i
			out = append(out, predicateGroup{predicate: st.Predicate})
		}
		out[i].objects = append(out[i].objects, st.Object)
	}
	return out
}

func (d *Document) usedPrefixes() []string {
	seen := make(map[string]struct{})
	mark := func(iri string) {
		if ns, _, ok := splitPrefixed(iri); ok {
			seen[ns] = struct{}{}
		}
	}
	for _, st := range d.Statements {
		if st.Predicate != RDFType {
			mark(st.Predicate)
		}
		if st.Object.Kind == KindIRI {
			mark(st.Object.Value)
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return prefixes[out[i]] < prefixes[out[j]] })
	return out
}

// splitPrefixed finds the known namespace of iri.
func splitPrefixed(iri string) (ns, local string, ok bool) {
	for candidate := range prefixes {
		if strings.HasPrefix(iri, candidate) {
			local = strings.TrimPrefix(iri, candidate)
			if isPNLocal(local) {
				return candidate, local, true
			}
		}
	}
	return "", "", false
}

func isPNLocal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

func formatPredicate(iri string) string {
	if iri == RDFType {
		return "a"
	}
	return formatIRI(iri)
}

func formatIRI(iri string) string {
	if ns, local, ok := splitPrefixed(iri); ok {
		return prefixes[ns] + ":" + local
	}
	return "<" + escapeIRI(iri) + ">"
}

func formatTerm(t Term) string {
	if t.Kind == KindIRI {
		return formatIRI(t.Value)
	}
	s := `"` + escapeLiteral(t.Value) + `"`
	if t.Lang != "" {
		s += "@" + t.Lang
	}
	return s
}

// escapeLiteral escapes characters that would end or break a quoted
// Turtle string.
func escapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

// escapeIRI percent-encodes the characters IRIREF does not allow.
func escapeIRI(s string) string {
	var sb strings.Builder
	for _, b := range []byte(s) {
		if b <= 0x20 || strings.IndexByte(`<>"{}|^`+"`"+`\`, b) >= 0 {
			fmt.Fprintf(&sb, "%%%02X", b)
			continue
		}
		sb.WriteByte(b)
	}
	return sb.String()
}
