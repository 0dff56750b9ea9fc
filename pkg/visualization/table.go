// Package visualization renders run information as tables on the
// terminal.
package visualization

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// Table is a model for data.
type Table struct {
	headers []string
	data    [][]string
}

// NewTable creates new model of data representation.
func NewTable(headers []string, data [][]string) *Table {
	return &Table{
		headers,
		data,
	}
}

// Draw renders the table to the given writer.
func (t *Table) Draw(writer io.Writer) {
	output := tablewriter.NewWriter(writer)
	output.SetHeader(t.headers)
	for _, row := range t.data {
		output.Append(row)
	}
	output.Render()
}
