package index

import (
	"context"
	"fmt"
	"time"

	"github.com/wmo-im/codelists/internal/models"
)

// RecordSync appends one entry to the sync ledger.
func (db *DB) RecordSync(ctx context.Context, e models.SyncEntry) error {
	if e.SyncedAt.IsZero() {
		e.SyncedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_log (path, address, checksum, classification, missing, error, dry_run, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.Path, e.Address, e.Checksum, e.Classification, e.Missing, e.Error, e.DryRun, e.SyncedAt)
	if err != nil {
		return fmt.Errorf("index: record sync: %w", err)
	}
	return nil
}

// SyncLog returns the most recent ledger entries, newest first. A non-empty
// path restricts the log to one document.
func (db *DB) SyncLog(path string, limit int) ([]models.SyncEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT path, address, checksum, classification, missing, error, dry_run, synced_at FROM sync_log`
	args := []any{}
	if path != "" {
		q += ` WHERE path = ?`
		args = append(args, path)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("index: sync log: %w", err)
	}
	defer rows.Close()

	var out []models.SyncEntry
	for rows.Next() {
		var e models.SyncEntry
		if err := rows.Scan(&e.Path, &e.Address, &e.Checksum, &e.Classification,
			&e.Missing, &e.Error, &e.DryRun, &e.SyncedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SyncSummary tallies the latest ledger entry of every document by
// classification. Entries carrying an error are counted as "failed".
func (db *DB) SyncSummary() (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT s.classification, s.error
		FROM sync_log s
		WHERE s.id = (SELECT max(id) FROM sync_log WHERE path = s.path)
	`)
	if err != nil {
		return nil, fmt.Errorf("index: sync summary: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var class, errText string
		if err := rows.Scan(&class, &errText); err != nil {
			return nil, err
		}
		if errText != "" {
			out["failed"]++
			continue
		}
		out[class]++
	}
	return out, rows.Err()
}
