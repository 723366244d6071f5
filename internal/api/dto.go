package api

import (
	"github.com/wmo-im/codelists/internal/index"
	"github.com/wmo-im/codelists/internal/topicservice"
)

// TopicDetail is the full node response type (aliased from the domain layer).
type TopicDetail = topicservice.TopicDetail

// TopicListItem is a lightweight item in a list response (aliased from the domain layer).
type TopicListItem = topicservice.TopicListItem

// SyncStatus is the ledger response type (aliased from the domain layer).
type SyncStatus = topicservice.SyncStatus

// TopicListResponse wraps paginated node listings.
type TopicListResponse struct {
	Topics []TopicListItem `json:"topics" validate:"required"`
	Total  int             `json:"total" example:"42" validate:"required"`
}

// ChildrenResponse lists the members of one node.
type ChildrenResponse struct {
	Path     string          `json:"path" example:"topic-hierarchy/ocean"`
	Children []TopicListItem `json:"children" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
