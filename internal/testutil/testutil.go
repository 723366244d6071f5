// Package testutil provides shared test helpers for compiling small
// taxonomies and indexing them.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/wmo-im/codelists/internal/index"
	"github.com/wmo-im/codelists/internal/models"
	"github.com/wmo-im/codelists/internal/source"
	"github.com/wmo-im/codelists/internal/storage"
	"github.com/wmo-im/codelists/internal/walker"
)

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "codelists-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestOutput creates a temporary output directory with a storage.Provider.
func TestOutput(t *testing.T) storage.Provider {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// Compile writes files (slash path to CSV content) to an in-memory source
// tree, compiles it under root into a temporary output directory and
// indexes the result.
func Compile(t *testing.T, root string, files map[string]string) (storage.Provider, *index.DB, *models.Node) {
	t.Helper()

	fs := memfs.New()
	for name, content := range files {
		if err := util.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cat, err := source.NewCatalog(fs)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	store := TestOutput(t)
	tree, _, err := walker.Compile(context.Background(), cat, store, walker.Options{
		RootName: root, RootDescription: "Test taxonomy", Logger: Logger(),
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	db := TestDB(t)
	if err := index.Sync(db, tree, store, Logger(), nil); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	return store, db, tree
}
