package source

import (
	"fmt"
	"strings"

	"github.com/wmo-im/codelists/internal/apperr"
)

// MalformedHeaderError reports a table whose columns cannot be mapped to
// taxonomy levels.
type MalformedHeaderError struct {
	File    string
	Columns []string
	Reason  string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("source: %s: malformed header [%s]: %s", e.File, strings.Join(e.Columns, ", "), e.Reason)
}

func (e *MalformedHeaderError) Unwrap() error { return apperr.ErrMalformedHeader }

// UnsortedTableError reports a flat table whose rows for one parent are
// not contiguous. Row is 1-based and counts the header.
type UnsortedTableError struct {
	File   string
	Row    int
	Column string
	Value  string
}

func (e *UnsortedTableError) Error() string {
	return fmt.Sprintf("source: %s row %d: %s value %q reappears after its group ended; sort the table by level columns",
		e.File, e.Row, e.Column, e.Value)
}

func (e *UnsortedTableError) Unwrap() error { return apperr.ErrUnsortedTable }

// MissingSourceError reports a collection directory carrying neither a
// nested nor a flat index.
type MissingSourceError struct {
	Dir string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("source: %s: neither %s nor %s found", displayDir(e.Dir), IndexFile, FlatIndexFile)
}

func (e *MissingSourceError) Unwrap() error { return apperr.ErrMissingSource }

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
