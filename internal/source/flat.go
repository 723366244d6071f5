package source

import (
	"fmt"
	"path"
	"strings"

	"github.com/wmo-im/codelists/internal/models"
)

// DecodeHeader splits flat-table columns into level name columns and their
// description columns. Name columns keep their left-to-right order, which
// is the level order; description columns are paired by name, so their
// position does not matter.
func DecodeHeader(columns []string) (nameKeys, descriptionKeys []string, err error) {
	if len(columns) == 0 || len(columns)%2 != 0 {
		return nil, nil, &MalformedHeaderError{
			File:    FlatIndexFile,
			Columns: columns,
			Reason:  fmt.Sprintf("unexpected number of columns %d", len(columns)),
		}
	}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c] {
			return nil, nil, &MalformedHeaderError{
				File:    FlatIndexFile,
				Columns: columns,
				Reason:  fmt.Sprintf("duplicate column %q", c),
			}
		}
		seen[c] = true
		if isDescriptionColumn(c) {
			descriptionKeys = append(descriptionKeys, c)
		} else {
			nameKeys = append(nameKeys, c)
		}
	}
	if len(descriptionKeys) != len(nameKeys) {
		return nil, nil, &MalformedHeaderError{
			File:    FlatIndexFile,
			Columns: columns,
			Reason:  fmt.Sprintf("unexpected number of description columns %d", len(descriptionKeys)),
		}
	}
	present := make(map[string]bool, len(descriptionKeys))
	for _, d := range descriptionKeys {
		present[d] = true
	}
	for _, n := range nameKeys {
		if !present[n+DescriptionSuffix] {
			return nil, nil, &MalformedHeaderError{
				File:    FlatIndexFile,
				Columns: columns,
				Reason:  fmt.Sprintf("column %q has no %q column", n, n+DescriptionSuffix),
			}
		}
	}
	return nameKeys, descriptionKeys, nil
}

func isDescriptionColumn(c string) bool {
	return len(c) > len(DescriptionSuffix) && strings.HasSuffix(c, DescriptionSuffix)
}

// Header maps taxonomy levels to column positions of a flat table.
type Header struct {
	Columns []string
	Names   []string
	nameIdx []int
	descIdx []int
}

// NewHeader decodes columns and resolves the position of every level.
func NewHeader(columns []string) (*Header, error) {
	names, _, err := DecodeHeader(columns)
	if err != nil {
		return nil, err
	}
	pos := make(map[string]int, len(columns))
	for i, c := range columns {
		pos[c] = i
	}
	h := &Header{Columns: columns, Names: names}
	for _, n := range names {
		h.nameIdx = append(h.nameIdx, pos[n])
		h.descIdx = append(h.descIdx, pos[n+DescriptionSuffix])
	}
	return h, nil
}

// Levels returns the depth of the hierarchy the table describes.
func (h *Header) Levels() int {
	return len(h.Names)
}

// IsLeafLevel reports whether level is the last column pair.
func (h *Header) IsLeafLevel(level int) bool {
	return level == len(h.Names)-1
}

// DecodeLevel reconstructs the children of parent at level, starting at
// rows[start], and returns the index of the first row it did not consume.
//
// The group of parent is the run of rows sharing the start row's values in
// every column above level (all rows at level 0). Within the group a new
// sibling starts whenever the level's name value changes; rows repeating a
// value are folded into the same node. Siblings on the last level become
// concepts, the others collections decoded one level deeper. Rows must be
// grouped; see ValidateSorted.
func (h *Header) DecodeLevel(rows [][]string, start, level int, parent *models.Node) (int, error) {
	if level >= h.Levels() {
		return start, fmt.Errorf("source: level %d out of range (%d levels)", level, h.Levels())
	}
	leaf := h.IsLeafLevel(level)
	nameCol := h.nameIdx[level]

	row := start
	var current *models.Node
	for row < len(rows) && h.sameGroup(rows[row], rows[start], level) {
		rec := rows[row]
		name := rec[nameCol]
		if name == "" {
			return row, fmt.Errorf("source: %s row %d: empty %s", FlatIndexFile, row+2, h.Names[level])
		}
		if current != nil && current.Name == name {
			row++
			continue
		}

		node := &models.Node{Name: name, Description: rec[h.descIdx[level]]}
		parent.AddChild(node)
		current = node
		if leaf {
			node.Role = models.RoleConcept
			row++
			continue
		}
		node.Role = models.RoleCollection
		next, err := h.DecodeLevel(rows, row, level+1, node)
		if err != nil {
			return next, err
		}
		row = next
	}
	return row, nil
}

// sameGroup reports whether a and b agree on every name column above level.
func (h *Header) sameGroup(a, b []string, level int) bool {
	for l := 0; l < level; l++ {
		if a[h.nameIdx[l]] != b[h.nameIdx[l]] {
			return false
		}
	}
	return true
}

// ValidateSorted checks that, at every level, the rows of each value form a
// single contiguous run within their parent group. The decoder depends on
// this; an unsorted table would otherwise split one node into several.
func (h *Header) ValidateSorted(rows [][]string) error {
	type run struct {
		last   string
		closed map[string]bool
	}
	runs := make(map[string]*run)

	for i, rec := range rows {
		prefix := ""
		for l := 0; l < h.Levels(); l++ {
			v := rec[h.nameIdx[l]]
			r, ok := runs[prefix]
			if !ok {
				r = &run{last: v, closed: make(map[string]bool)}
				runs[prefix] = r
			} else if r.last != v {
				if r.closed[v] {
					return &UnsortedTableError{File: FlatIndexFile, Row: i + 2, Column: h.Names[l], Value: v}
				}
				r.closed[r.last] = true
				r.last = v
			}
			prefix += v + "\x1f"
		}
	}
	return nil
}

// DuplicatePaths returns the data-row indexes whose full path repeats the
// previous row. Such rows are folded into the existing leaf.
func (h *Header) DuplicatePaths(rows [][]string) []int {
	var out []int
	for i := 1; i < len(rows); i++ {
		if h.sameGroup(rows[i], rows[i-1], h.Levels()) {
			out = append(out, i)
		}
	}
	return out
}

// Table is a decoded flat index: its header and data rows.
type Table struct {
	Header *Header
	Rows   [][]string
}

// ReadFlat reads dir/index-flat.csv, decodes its header and checks that
// its rows are grouped.
func (c *Catalog) ReadFlat(dir string) (*Table, error) {
	file := path.Join(dir, FlatIndexFile)
	records, err := c.readCSV(file)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &MalformedHeaderError{File: file, Reason: "empty file"}
	}
	h, err := NewHeader(records[0])
	if err != nil {
		if mh, ok := err.(*MalformedHeaderError); ok {
			mh.File = file
		}
		return nil, err
	}
	rows := records[1:]
	if err := h.ValidateSorted(rows); err != nil {
		if ue, ok := err.(*UnsortedTableError); ok {
			ue.File = file
		}
		return nil, err
	}
	return &Table{Header: h, Rows: rows}, nil
}

// Decode builds the children of parent from every row of the table.
func (t *Table) Decode(parent *models.Node) error {
	_, err := t.Header.DecodeLevel(t.Rows, 0, 0, parent)
	return err
}
