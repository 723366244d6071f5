package walker

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wmo-im/codelists/internal/models"
	"github.com/wmo-im/codelists/internal/skos"
	"github.com/wmo-im/codelists/internal/storage"
)

// Result summarizes a compile run.
type Result struct {
	Documents   int
	Collections int
	Concepts    int
	// Subregisters lists the relative IRIs of the root's collections, as
	// written into the root register document.
	Subregisters []string
	Duration     time.Duration
}

type placed struct {
	dir  string
	node *models.Node
}

// DocumentPath returns where the document of a node living in dir goes.
func DocumentPath(dir, name string) string {
	return path.Join(dir, name) + storage.DocumentExt
}

// Document renders the SKOS document of n.
func Document(n *models.Node, subregisters []string) *skos.Document {
	switch n.Role {
	case models.RoleRoot:
		return skos.BuildRegister(n.Name, n.Description, subregisters)
	case models.RoleCollection:
		return skos.BuildCollection(n.Name, n.Description, n.Source)
	default:
		return skos.BuildConcept(n.Name, n.Description, n.Source)
	}
}

// Subregisters returns the relative IRIs of root's collection children.
func Subregisters(root *models.Node) []string {
	var out []string
	for _, c := range root.Children {
		if c.Role.HasChildren() {
			out = append(out, path.Join(root.Name, c.Name))
		}
	}
	return out
}

// Emit writes one document per node of the tree. Nodes are written one
// depth at a time so that a parent's document exists before any of its
// children's; siblings are written concurrently.
func Emit(ctx context.Context, root *models.Node, store storage.Provider, opts Options) (Result, error) {
	logger := opts.logger()
	res := Result{Subregisters: Subregisters(root)}

	var layers [][]placed
	err := root.Walk(func(dir string, depth int, n *models.Node) error {
		for len(layers) <= depth {
			layers = append(layers, nil)
		}
		layers[depth] = append(layers[depth], placed{dir: dir, node: n})
		switch n.Role {
		case models.RoleConcept:
			res.Concepts++
		default:
			res.Collections++
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	for depth, layer := range layers {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(opts.workers())
		for _, p := range layer {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				rel := DocumentPath(p.dir, p.node.Name)
				if err := store.Write(rel, Document(p.node, res.Subregisters).Turtle()); err != nil {
					return fmt.Errorf("walker: write %s: %w", rel, err)
				}
				logger.Debug("walker: wrote document",
					slog.String("path", rel),
					slog.String("role", p.node.Role.String()),
					slog.Int("depth", depth))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return res, err
		}
		res.Documents += len(layer)
	}
	return res, nil
}
