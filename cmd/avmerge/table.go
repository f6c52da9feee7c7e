package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableSpec describes a rounded go-pretty table. Columns listed in
// rightAligned (zero-based) are right aligned; headers always align left.
type tableSpec struct {
	title        string
	headers      []string
	rows         [][]string
	rightAligned []int
	colorize     bool
}

func (s tableSpec) render() string {
	columns := len(s.headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if s.colorize {
		style := tw.Style()
		style.Color.Header = text.Colors{text.Bold, text.FgCyan}
		style.Color.Footer = text.Colors{text.Faint}
	}
	if s.title != "" {
		tw.SetTitle(s.title)
	}

	tw.AppendHeader(toRow(s.headers, columns))
	for _, row := range s.rows {
		tw.AppendRow(toRow(row, columns))
	}
	if len(s.rows) == 0 {
		tw.AppendFooter(toRow([]string{"(none)"}, columns))
	}

	configs := make([]table.ColumnConfig, 0, len(s.rightAligned))
	for _, idx := range s.rightAligned {
		if idx < 0 || idx >= columns {
			continue
		}
		configs = append(configs, table.ColumnConfig{
			Number:      idx + 1,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func toRow(values []string, columns int) table.Row {
	row := make(table.Row, columns)
	for i := range columns {
		if i < len(values) {
			row[i] = values[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
