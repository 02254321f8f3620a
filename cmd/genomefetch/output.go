package main

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"genomefetch/internal/pipeline"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderOutcomeTable(outcomes []pipeline.Outcome) string {
	headers := []string{"Genome", "Organism", "Status", "Records", "Size"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		records := ""
		if o.Records > 0 {
			records = strconv.Itoa(o.Records)
		}
		size := ""
		if o.Downloaded > 0 {
			size = humanize.IBytes(uint64(o.Downloaded))
		}
		rows = append(rows, []string{
			o.Folder,
			o.Organism,
			strings.ReplaceAll(string(o.Status), "_", " "),
			records,
			size,
		})
	}
	return renderTable(headers, rows, aligns)
}

// writeJSON encodes v as indented JSON to the command's stdout. With --json
// this is the only thing a fetch writes there.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
