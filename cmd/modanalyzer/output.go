package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/decision"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

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
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusColor(status decision.Status) string {
	switch status {
	case decision.StatusFound:
		return ansiGreen
	case decision.StatusAmbiguous:
		return ansiYellow
	case decision.StatusRejected:
		return ansiRed
	case decision.StatusNotFound:
		return ansiBlue
	default:
		return ""
	}
}

func renderStatus(status decision.Status, colorize bool) string {
	label := string(status)
	if colorize {
		if color := statusColor(status); color != "" {
			return color + label + ansiReset
		}
	}
	return label
}

// printOutcome writes the human-readable form of one decision.
func printOutcome(out io.Writer, rawURL string, o decision.Outcome, showTrail, colorize bool) {
	if rawURL != "" {
		fmt.Fprintf(out, "URL:     %s\n", rawURL)
	}
	fmt.Fprintf(out, "Result:  %s (%s)\n", renderStatus(o.Status, colorize), o.Stage)
	if o.ChosenID != "" {
		fmt.Fprintf(out, "Entry:   %s\n", o.ChosenID)
	}
	fmt.Fprintf(out, "Reason:  %s\n", o.Reason)
	if o.CacheSource != "" {
		fmt.Fprintf(out, "Cache:   %s\n", o.CacheSource)
	}
	if o.Degraded {
		fmt.Fprintln(out, "Note:    arbitration was unavailable; this is the fuzzy decision")
	}

	switch {
	case len(o.Candidates) > 0:
		rows := make([][]string, 0, len(o.Candidates))
		for _, c := range o.Candidates {
			rows = append(rows, []string{c.ID, c.Title, fmt.Sprintf("%.3f", c.Score), strings.Join(c.Reasons, "; ")})
		}
		fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Score", "Signals"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	case len(o.CandidateIDs) > 0:
		fmt.Fprintf(out, "Candidates: %s\n", strings.Join(o.CandidateIDs, ", "))
	}

	if showTrail && len(o.Trail) > 0 {
		fmt.Fprintln(out, "Trail:")
		for _, line := range o.Trail {
			fmt.Fprintf(out, "  - %s\n", line)
		}
	}
}
