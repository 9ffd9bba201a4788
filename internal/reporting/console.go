package reporting

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// RenderConsole writes the report as plain-text tables.
func RenderConsole(w io.Writer, r *Report) {
	fmt.Fprintf(w, "%s\n\n", r.Title())
	renderTable(w, "Settings", r.SettingRows())

	if rows := r.TradeRows(); len(rows) > 0 {
		renderTable(w, "Trades", rows)
	} else {
		fmt.Fprintln(w, "No closed trades.")
		fmt.Fprintln(w)
	}

	if rows := r.DailyRows(); len(rows) > 0 {
		renderTable(w, "Daily statistics", rows)
	}
}

func renderTable(w io.Writer, title string, rows []Row) {
	fmt.Fprintf(w, "%s:\n", title)
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, row := range rows {
		table.Append([]string{row.Name, row.Value})
	}
	table.Render()
	fmt.Fprintln(w)
}
