// Package topicservice answers read queries about the compiled taxonomy by
// combining the output tree with the SQLite catalog.
package topicservice

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/wmo-im/codelists/internal/apperr"
	"github.com/wmo-im/codelists/internal/index"
	"github.com/wmo-im/codelists/internal/models"
	"github.com/wmo-im/codelists/internal/storage"
)

const recentSyncs = 5

// TopicDetail is the full representation of one taxonomy node.
type TopicDetail struct {
	Path        string             `json:"path"`
	Parent      string             `json:"parent"`
	Name        string             `json:"name"`
	Role        string             `json:"role"`
	Description string             `json:"description"`
	Source      string             `json:"source,omitempty"`
	Depth       int                `json:"depth"`
	Checksum    string             `json:"checksum"`
	Document    string             `json:"document"`
	Children    []TopicListItem    `json:"children"`
	Syncs       []models.SyncEntry `json:"syncs"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TopicListItem is a lightweight item in a list response.
type TopicListItem struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Description string `json:"description"`
}

// SyncStatus summarizes the registry ledger.
type SyncStatus struct {
	Summary map[string]int     `json:"summary"`
	Recent  []models.SyncEntry `json:"recent"`
}

// Service coordinates storage and index reads.
type Service struct {
	store storage.Provider
	db    index.NodeIndex
}

// NewService creates a new topic service.
func NewService(store storage.Provider, db index.NodeIndex) *Service {
	return &Service{store: store, db: db}
}

// GetTopic returns a node with its document text, members and recent
// registry activity.
func (s *Service) GetTopic(ctx context.Context, path string) (*TopicDetail, error) {
	row, err := s.db.GetNode(path)
	if err != nil {
		return nil, err
	}
	doc, err := s.Document(ctx, path)
	if err != nil {
		return nil, err
	}
	children, err := s.Children(ctx, path)
	if err != nil {
		return nil, err
	}
	syncs, err := s.db.SyncLog(path+storage.DocumentExt, recentSyncs)
	if err != nil {
		return nil, err
	}
	return &TopicDetail{
		Path:        row.Path,
		Parent:      row.Parent,
		Name:        row.Name,
		Role:        row.Role,
		Description: row.Description,
		Source:      row.Source,
		Depth:       row.Depth,
		Checksum:    row.Checksum,
		Document:    string(doc),
		Children:    children,
		Syncs:       nonNilSlice(syncs),
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// Document returns the generated Turtle document of a node.
func (s *Service) Document(_ context.Context, path string) ([]byte, error) {
	data, err := s.store.Read(path + storage.DocumentExt)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Children lists the direct members of a node in source order. An empty
// path lists the root.
func (s *Service) Children(_ context.Context, path string) ([]TopicListItem, error) {
	rows, err := s.db.Children(path)
	if err != nil {
		return nil, err
	}
	return toItems(rows), nil
}

// ListTopics returns paginated nodes with an optional role filter.
func (s *Service) ListTopics(_ context.Context, role string, limit, offset int) ([]TopicListItem, int, error) {
	rows, total, err := s.db.ListNodes(role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return toItems(rows), total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// SyncStatus returns the ledger summary and its latest entries.
func (s *Service) SyncStatus(_ context.Context, limit int) (*SyncStatus, error) {
	summary, err := s.db.SyncSummary()
	if err != nil {
		return nil, err
	}
	recent, err := s.db.SyncLog("", limit)
	if err != nil {
		return nil, err
	}
	return &SyncStatus{Summary: summary, Recent: nonNilSlice(recent)}, nil
}

func toItems(rows []index.NodeRow) []TopicListItem {
	items := make([]TopicListItem, len(rows))
	for i, r := range rows {
		items[i] = TopicListItem{
			Path:        r.Path,
			Name:        r.Name,
			Role:        r.Role,
			Description: r.Description,
		}
	}
	return items
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
