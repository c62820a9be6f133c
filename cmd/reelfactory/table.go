package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const maxColumnWidth = 60

type tableOption func(table.Writer)

// withFooter adds a single footer line spanning the table.
func withFooter(caption string) tableOption {
	return func(tw table.Writer) {
		tw.SetCaption("%s", caption)
	}
}

// renderTable draws rows in the rounded style. Short rows are padded and
// columns past len(aligns) are left aligned.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment, opts ...tableOption) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft, WidthMax: maxColumnWidth}
	}
	tw.SetColumnConfigs(configs)
	for _, opt := range opts {
		opt(tw)
	}
	return tw.Render() + "\n"
}

func toRow(cells []string, columns int) table.Row {
	row := make(table.Row, columns)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
