package index

import (
	"context"

	"github.com/wmo-im/codelists/internal/models"
)

// NodeIndex defines the catalog operations the browse surfaces depend on.
type NodeIndex interface {
	UpsertNode(n NodeRow) error
	DeleteNode(path string) error
	GetChecksum(path string) (string, error)
	GetNode(path string) (*NodeRow, error)
	Children(path string) ([]NodeRow, error)
	ListNodes(role string, limit, offset int) ([]NodeRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	RecordSync(ctx context.Context, e models.SyncEntry) error
	SyncLog(path string, limit int) ([]models.SyncEntry, error)
	SyncSummary() (map[string]int, error)
	Close() error
}

// Verify *DB satisfies NodeIndex at compile time.
var _ NodeIndex = (*DB)(nil)
