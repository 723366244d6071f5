// Package source reads the CSV tables a taxonomy is compiled from: nested
// index.csv directories and single index-flat.csv tables.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Source file names and the suffix pairing flat description columns with
// their name columns.
const (
	IndexFile         = "index.csv"
	FlatIndexFile     = "index-flat.csv"
	DescriptionSuffix = "-description"
)

// Encoding identifies which index a directory carries.
type Encoding int

const (
	EncodingNone Encoding = iota
	EncodingNested
	EncodingFlat
)

func (e Encoding) String() string {
	switch e {
	case EncodingNested:
		return "nested"
	case EncodingFlat:
		return "flat"
	default:
		return "none"
	}
}

// Catalog records, for every directory of a source tree, which index it
// carries. It is built once per run so that collection/concept decisions
// are lookups rather than repeated filesystem probes.
type Catalog struct {
	fs   billy.Filesystem
	dirs map[string]Encoding // slash path relative to the root; "" is the root
}

// Open builds a catalog for the source tree rooted at dir on disk.
func Open(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("source: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source: root is not a directory: %s", dir)
	}
	return NewCatalog(osfs.New(dir))
}

// NewCatalog scans fs and records every directory and its index.
func NewCatalog(fs billy.Filesystem) (*Catalog, error) {
	c := &Catalog{fs: fs, dirs: make(map[string]Encoding)}
	if err := c.scan(""); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) scan(dir string) error {
	entries, err := c.fs.ReadDir(c.fsPath(dir))
	if err != nil {
		return fmt.Errorf("source: read dir %s: %w", displayDir(dir), err)
	}

	enc := EncodingNone
	var subdirs []string
	for _, e := range entries {
		name := e.Name()
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			continue
		}
		switch {
		case e.IsDir():
			if !strings.HasPrefix(name, ".") {
				subdirs = append(subdirs, name)
			}
		case name == IndexFile:
			enc = EncodingNested
		case name == FlatIndexFile && enc == EncodingNone:
			enc = EncodingFlat
		}
	}
	c.dirs[dir] = enc

	for _, name := range subdirs {
		if err := c.scan(path.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) fsPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}

// HasDir reports whether dir exists in the source tree.
func (c *Catalog) HasDir(dir string) bool {
	_, ok := c.dirs[dir]
	return ok
}

// Encoding returns the index carried by dir. A nested index takes
// precedence when both are present.
func (c *Catalog) Encoding(dir string) Encoding {
	return c.dirs[dir]
}

// Dirs returns the number of directories scanned.
func (c *Catalog) Dirs() int {
	return len(c.dirs)
}

// readCSV returns every record of the file, header included. Fields are
// trimmed and a leading UTF-8 byte order mark is dropped.
func (c *Catalog) readCSV(file string) ([][]string, error) {
	f, err := c.fs.Open(file)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", file, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("source: read %s: %w", file, err)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		records = append(records, rec)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}
