package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wmo-im/codelists/internal/apperr"
)

// NodeRow represents a row in the nodes table. Path is the node's position
// in the output tree without the document extension.
type NodeRow struct {
	Path        string    `json:"path"`
	Parent      string    `json:"parent"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Description string    `json:"description"`
	Source      string    `json:"source,omitempty"`
	Depth       int       `json:"depth"`
	Position    int       `json:"position"`
	Checksum    string    `json:"checksum"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Snippet string `json:"snippet"`
}

const nodeColumns = `path, parent, name, role, description, source, depth, position, checksum, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (NodeRow, error) {
	var n NodeRow
	err := s.Scan(&n.Path, &n.Parent, &n.Name, &n.Role, &n.Description, &n.Source,
		&n.Depth, &n.Position, &n.Checksum, &n.UpdatedAt)
	return n, err
}

// UpsertNode inserts or replaces a node and its FTS entry within a transaction.
func (db *DB) UpsertNode(n NodeRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			parent      = excluded.parent,
			name        = excluded.name,
			role        = excluded.role,
			description = excluded.description,
			source      = excluded.source,
			depth       = excluded.depth,
			position    = excluded.position,
			checksum    = excluded.checksum,
			updated_at  = excluded.updated_at
	`, n.Path, n.Parent, n.Name, n.Role, n.Description, n.Source, n.Depth, n.Position, n.Checksum, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert node: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.Path, n.Name, n.Description); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteNode removes a node and its FTS entry.
func (db *DB) DeleteNode(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM nodes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete node: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a node, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM nodes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetNode returns one node or apperr.ErrNotFound.
func (db *DB) GetNode(path string) (*NodeRow, error) {
	n, err := scanNode(db.conn.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %q: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get node: %w", err)
	}
	return &n, nil
}

// Children returns the direct members of a collection in source order.
// An empty path lists the root nodes.
func (db *DB) Children(path string) ([]NodeRow, error) {
	rows, err := db.conn.Query(`SELECT `+nodeColumns+` FROM nodes WHERE parent = ? ORDER BY position, name`, path)
	if err != nil {
		return nil, fmt.Errorf("index: children: %w", err)
	}
	defer rows.Close()

	var out []NodeRow
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListNodes returns a page of nodes ordered by path, optionally filtered by
// role, together with the total number of matching nodes.
func (db *DB) ListNodes(role string, limit, offset int) ([]NodeRow, int, error) {
	if limit <= 0 {
		limit = 100
	}
	where, args := "", []any{}
	if role != "" {
		where = ` WHERE role = ?`
		args = append(args, role)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM nodes`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count nodes: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+nodeColumns+` FROM nodes`+where+` ORDER BY path LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list nodes: %w", err)
	}
	defer rows.Close()

	var out []NodeRow
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// AllChecksums returns the checksum of every indexed node keyed by path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
