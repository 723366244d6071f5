// Package storage defines the output tree holding generated documents.
package storage

import "github.com/wmo-im/codelists/internal/models"

// DocumentExt is the extension of every generated document.
const DocumentExt = ".ttl"

// Provider is the interface for output tree operations. Paths are
// slash-separated and relative to the output root.
type Provider interface {
	// List returns metadata for every document under dir.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the document at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the document at path.
	Delete(path string) error
	// Reset empties the output tree.
	Reset() error
}
