package walker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wmo-im/codelists/internal/models"
	"github.com/wmo-im/codelists/internal/source"
	"github.com/wmo-im/codelists/internal/storage"
)

// Compile regenerates the whole output tree: the store is emptied, the
// source tree is read and every document is written again.
func Compile(ctx context.Context, cat *source.Catalog, store storage.Provider, opts Options) (*models.Node, Result, error) {
	logger := opts.logger()
	start := time.Now()

	root, err := Build(ctx, cat, opts)
	if err != nil {
		return nil, Result{}, fmt.Errorf("walker: build tree: %w", err)
	}
	logger.Info("walker: tree built",
		slog.String("root", root.Name),
		slog.Int("nodes", root.Count()),
		slog.Int("source_dirs", cat.Dirs()))

	if err := store.Reset(); err != nil {
		return nil, Result{}, err
	}
	res, err := Emit(ctx, root, store, opts)
	if err != nil {
		return nil, res, err
	}
	res.Duration = time.Since(start)

	logger.Info("walker: compile completed",
		slog.Int("documents", res.Documents),
		slog.Int("collections", res.Collections),
		slog.Int("concepts", res.Concepts),
		slog.Duration("duration", res.Duration))
	return root, res, nil
}
