package registry

import (
	"path"
	"strings"

	"github.com/wmo-im/codelists/internal/storage"
)

// Address maps a document path of the output tree to its registry entry:
// <base>/<prefix>/<path without extension>.
func Address(base, prefix, docPath string) string {
	rel := strings.TrimSuffix(path.Clean(docPath), storage.DocumentExt)
	parts := []string{strings.TrimRight(base, "/")}
	if p := strings.Trim(prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, rel)
	return strings.Join(parts, "/")
}

// Parent returns the register that owns address: everything before the last
// path segment.
func Parent(address string) string {
	address = strings.TrimRight(address, "/")
	i := strings.LastIndex(address, "/")
	if i < 0 {
		return ""
	}
	return address[:i]
}

// ResolveBase is the IRI against which relative identifiers of a document
// are resolved: the parent register with a trailing slash.
func ResolveBase(address string) string {
	return Parent(address) + "/"
}
