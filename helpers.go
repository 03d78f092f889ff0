package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func PrintTable(w io.Writer, headers []string, rows [][]string, footers []string) {
	colWidths := make([]int, len(headers))
	for i, header := range headers {
		colWidths[i] = lipgloss.Width(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := lipgloss.Width(cell); cw > colWidths[i] {
				colWidths[i] = cw
			}
		}
	}

	// print header
	for i, header := range headers {
		fmt.Fprintf(w, "%s\t", padCell(header, colWidths[i]))
	}
	fmt.Fprintln(w)

	// print rows
	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprintf(w, "%s\t", padCell(cell, colWidths[i]))
		}
		fmt.Fprintln(w)
	}

	if len(footers) == 0 {
		return
	}

	// print footer
	for i, footer := range footers {
		// empty footers still take up their column
		fmt.Fprintf(w, "%s\t", padCell(footer, colWidths[i]))
	}
	fmt.Fprintln(w)
}

func FormatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}
