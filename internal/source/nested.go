package source

import (
	"fmt"
	"path"
)

// Row is one entry of a nested index.csv.
type Row struct {
	Name        string
	Description string
	Source      string
}

// Nested index column names.
const (
	ColumnName        = "Name"
	ColumnDescription = "Description"
	ColumnSource      = "Source"
)

// ReadNested reads dir/index.csv. The Source column is optional.
func (c *Catalog) ReadNested(dir string) ([]Row, error) {
	file := path.Join(dir, IndexFile)
	records, err := c.readCSV(file)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &MalformedHeaderError{File: file, Reason: "empty file"}
	}

	header := records[0]
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	nameIdx, okName := col[ColumnName]
	descIdx, okDesc := col[ColumnDescription]
	if !okName || !okDesc {
		return nil, &MalformedHeaderError{
			File:    file,
			Columns: header,
			Reason:  fmt.Sprintf("%q and %q columns are required", ColumnName, ColumnDescription),
		}
	}
	srcIdx, okSrc := col[ColumnSource]

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row := Row{Name: rec[nameIdx], Description: rec[descIdx]}
		if okSrc {
			row.Source = rec[srcIdx]
		}
		if row.Name == "" {
			return nil, fmt.Errorf("source: %s row %d: empty %s", file, i+2, ColumnName)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
