package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/himanishpuri/ChapterSplit/pkg/chaptersplit"
	"github.com/himanishpuri/ChapterSplit/pkg/utils"
)

// column describes one table column. Headers are upper-cased by the style.
type column struct {
	header string
	right  bool
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.header
		align := text.AlignLeft
		if col.right {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}

// renderResult lists every chapter with its boundaries, match quality and,
// once exported, its file size.
func renderResult(res *chaptersplit.Result) string {
	columns := []column{
		{header: "#", right: true},
		{header: "Start", right: true},
		{header: "Length", right: true},
		{header: "Score", right: true},
		{header: "File"},
	}
	if len(res.Exported) > 0 {
		columns = append(columns, column{header: "Size", right: true})
	}

	rows := make([][]string, 0, len(res.Plan.Chapters))
	for i, ch := range res.Plan.Chapters {
		row := []string{
			strconv.Itoa(ch.Number),
			utils.FormatLength(ch.Start),
			utils.FormatLength(ch.Length),
			scoreCell(ch),
			ch.FileName,
		}
		if i < len(res.Exported) {
			row = append(row, humanize.Bytes(uint64(res.Exported[i].Size)))
		}
		rows = append(rows, row)
	}

	return renderTable(columns, rows)
}

func scoreCell(ch chaptersplit.Chapter) string {
	if ch.Match == nil {
		return "-"
	}
	s := fmt.Sprintf("%.3f", ch.Match.Score)
	if ch.LowConfidence {
		s += " !"
	}
	return s
}
