package index

import (
	"log/slog"
	"path"
	"strings"

	"github.com/wmo-im/codelists/internal/checksum"
	"github.com/wmo-im/codelists/internal/models"
	"github.com/wmo-im/codelists/internal/storage"
)

// NodePath strips the document extension from an output-tree path.
func NodePath(docPath string) string {
	return strings.TrimSuffix(docPath, storage.DocumentExt)
}

// EventCallback is called after each index mutation made by Sync.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Sync brings the index in line with a compiled tree:
//   - nodes whose document checksum changed are upserted
//   - nodes no longer in the tree are deleted
//
// cb (if non-nil) is called after each successful mutation.
func Sync(db *DB, root *models.Node, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}
	onDisk := make(map[string]string, len(metas))
	for _, m := range metas {
		onDisk[NodePath(m.Path)] = m.Checksum
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(metas))
	positions := map[string]int{}
	err = root.Walk(func(dir string, depth int, n *models.Node) error {
		p := path.Join(dir, n.Name)
		seen[p] = struct{}{}
		pos := positions[dir]
		positions[dir]++

		cs := onDisk[p]
		prev, indexed := checksums[p]
		if cs != "" && prev == cs {
			return nil
		}
		row := NodeRow{
			Path:        p,
			Parent:      dir,
			Name:        n.Name,
			Role:        n.Role.String(),
			Description: n.Description,
			Source:      n.Source,
			Depth:       depth,
			Position:    pos,
			Checksum:    cs,
		}
		if err := db.UpsertNode(row); err != nil {
			logger.Warn("index: upsert failed", slog.String("path", p), slog.String("error", err.Error()))
			return nil
		}
		logger.Debug("index: indexed", slog.String("path", p), slog.String("checksum", checksum.Short(cs)))
		if cb != nil {
			kind := "updated"
			if !indexed {
				kind = "created"
			}
			cb(kind, p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := db.DeleteNode(p); err != nil {
			logger.Warn("index: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("index: removed stale", slog.String("path", p))
			if cb != nil {
				cb("deleted", p)
			}
		}
	}
	return nil
}
