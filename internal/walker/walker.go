// Package walker compiles a CSV source tree into a taxonomy tree and
// writes one SKOS document per node.
package walker

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/wmo-im/codelists/internal/models"
	"github.com/wmo-im/codelists/internal/source"
)

// Options configures a compile run.
type Options struct {
	// RootName is the identifier of the root register; it names the root
	// document and the directory holding the rest of the tree.
	RootName        string
	RootDescription string
	// Workers bounds concurrent document writes. Values below 1 mean 1.
	Workers int
	Logger  *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// Build reads the whole source tree and returns the root node. The source
// root directory holds the index of the root's children.
func Build(ctx context.Context, cat *source.Catalog, opts Options) (*models.Node, error) {
	if opts.RootName == "" {
		return nil, fmt.Errorf("walker: root name is required")
	}
	root := &models.Node{
		Name:        opts.RootName,
		Description: opts.RootDescription,
		Role:        models.RoleRoot,
	}
	w := &walker{cat: cat, logger: opts.logger()}
	if err := w.Walk(ctx, "", root); err != nil {
		return nil, err
	}
	return root, nil
}

type walker struct {
	cat    *source.Catalog
	logger *slog.Logger
}

// Walk decodes the index found in dir and attaches the resulting nodes to
// parent, descending into every collection. A nested index.csv wins over
// index-flat.csv. In the nested encoding a row is a collection exactly when
// a directory of the same name exists next to the index.
func (w *walker) Walk(ctx context.Context, dir string, parent *models.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch w.cat.Encoding(dir) {
	case source.EncodingNested:
		w.logger.Debug("walker: processing nested index", slog.String("dir", dir))
		rows, err := w.cat.ReadNested(dir)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if parent.Child(r.Name) != nil {
				w.logger.Warn("walker: duplicate name folded into first row",
					slog.String("dir", dir), slog.String("name", r.Name))
				continue
			}
			node := parent.AddChild(&models.Node{Name: r.Name, Description: r.Description, Source: r.Source})
			sub := path.Join(dir, r.Name)
			if !w.cat.HasDir(sub) {
				node.Role = models.RoleConcept
				continue
			}
			node.Role = models.RoleCollection
			if err := w.Walk(ctx, sub, node); err != nil {
				return err
			}
		}
		return nil

	case source.EncodingFlat:
		w.logger.Info("walker: converting flat table to subtree", slog.String("dir", dir))
		tbl, err := w.cat.ReadFlat(dir)
		if err != nil {
			return err
		}
		for _, i := range tbl.Header.DuplicatePaths(tbl.Rows) {
			w.logger.Debug("walker: duplicate flat row folded",
				slog.String("dir", dir), slog.Int("row", i+2))
		}
		return tbl.Decode(parent)

	default:
		return &source.MissingSourceError{Dir: dir}
	}
}
