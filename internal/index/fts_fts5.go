//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			path UNINDEXED,
			name,
			description,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, name, description string) error {
	_, _ = tx.Exec(`DELETE FROM nodes_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO nodes_fts (path, name, description) VALUES (?, ?, ?)`,
		path, name, description)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM nodes_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search over names and descriptions.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.path,
		       f.name,
		       n.role,
		       snippet(nodes_fts, 2, '<b>', '</b>', '...', 32)
		FROM nodes_fts f
		JOIN nodes n ON n.path = f.path
		WHERE nodes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Name, &r.Role, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
