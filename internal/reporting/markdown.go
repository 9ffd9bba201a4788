package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", r.Title()))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	writeSection(&sb, "Settings", r.SettingRows())

	sb.WriteString("## Trades\n\n")
	if rows := r.TradeRows(); len(rows) > 0 {
		writeTable(&sb, rows)
	} else {
		sb.WriteString("No closed trades.\n\n")
	}

	if rows := r.DailyRows(); len(rows) > 0 {
		writeSection(&sb, "Daily Statistics", rows)
	}

	if len(r.Daily) > 0 {
		sb.WriteString("## Daily Results\n\n")
		sb.WriteString("| Date | Close | Trades | Position | Trading Pnl | Position Pnl | Net Pnl |\n")
		sb.WriteString("|------|-------|--------|----------|-------------|--------------|---------|\n")
		for _, d := range r.Daily {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s | %s |\n",
				formatDate(d.Date), d.ClosePrice, d.TradeCount, d.ClosePosition,
				money(d.TradingPnl), money(d.PositionPnl), money(d.NetPnl)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeSection(sb *strings.Builder, title string, rows []Row) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	writeTable(sb, rows)
}

func writeTable(sb *strings.Builder, rows []Row) {
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", row.Name, strings.ReplaceAll(row.Value, "|", "\\|")))
	}
	sb.WriteString("\n")
}
