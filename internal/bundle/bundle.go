// Package bundle exports the flat list of topic paths below the root of a
// compiled taxonomy as a single-column CSV.
package bundle

import (
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"

	"github.com/wmo-im/codelists/internal/models"
)

// Column is the header of the exported table.
const Column = "Name"

// Paths returns every node below root as a slash-separated path relative to
// root, sorted bytewise.
func Paths(root *models.Node) []string {
	var out []string
	for _, c := range root.Children {
		_ = c.Walk(func(dir string, _ int, n *models.Node) error {
			out = append(out, path.Join(dir, n.Name))
			return nil
		})
	}
	sort.Strings(out)
	return out
}

// Write encodes paths as a CSV table with a single Name column.
func Write(w io.Writer, paths []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{Column}); err != nil {
		return fmt.Errorf("bundle: write header: %w", err)
	}
	for _, p := range paths {
		if err := cw.Write([]string{p}); err != nil {
			return fmt.Errorf("bundle: write %s: %w", p, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile exports the bundle of root to name on fs and returns the number
// of paths written.
func WriteFile(fs billy.Filesystem, name string, root *models.Node) (int, error) {
	paths := Paths(root)

	f, err := fs.Create(name)
	if err != nil {
		return 0, fmt.Errorf("bundle: create %s: %w", name, err)
	}
	if err := Write(f, paths); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("bundle: close %s: %w", name, err)
	}
	return len(paths), nil
}
