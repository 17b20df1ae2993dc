package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ledger/internal/core"
	"ledger/internal/engine"
)

var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	valueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	mutedStyle  = lipgloss.NewStyle().Foreground(ColorTextMuted)
	dimStyle    = lipgloss.NewStyle().Foreground(ColorTextDim)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorOrange)

	statusStyles = map[engine.PeriodStatus]lipgloss.Style{
		engine.StatusPaid:    lipgloss.NewStyle().Foreground(ColorGreen),
		engine.StatusUnpaid:  lipgloss.NewStyle().Foreground(ColorBlue),
		engine.StatusOverdue: lipgloss.NewStyle().Bold(true).Foreground(ColorRed),
	}
)

// Table is a bordered text table. The first column is left aligned, the rest
// right aligned. A row holding the single cell "---" draws a separator.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// CellStyle overrides the value style of a cell.
	CellStyle func(col int, cell string) (lipgloss.Style, bool)
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(55).
		Align(lipgloss.Center).
		Padding(0, 1)
	return border.Render(titleStyle.Render(title))
}

func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < numCols && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right))
		b.WriteString("\n")
	}

	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(fmt.Sprintf(" %-*s ", widths[i], h)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
		rule("├", "┼", "┤")
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			rule("├", "┼", "┤")
			continue
		}
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			var padded string
			if i == 0 {
				padded = fmt.Sprintf(" %-*s ", widths[i], cell)
			} else {
				padded = fmt.Sprintf(" %*s ", widths[i], cell)
			}
			style := valueStyle
			if t.CellStyle != nil {
				if s, ok := t.CellStyle(i, cell); ok {
					style = s
				}
			}
			b.WriteString(style.Render(padded))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}
	rule("╰", "┴", "╯")

	return b.String()
}

// RenderProgressBar renders pct (0-100) as a bar of width cells.
func RenderProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %5.1f%%", mutedStyle.Render(bar), pct)
}

// RenderSparkline draws values with unicode blocks scaled to their maximum.
func RenderSparkline(values []core.Money) string {
	if len(values) == 0 {
		return ""
	}
	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	max := values[0].Units
	for _, v := range values[1:] {
		if v.Units > max {
			max = v.Units
		}
	}
	if max <= 0 {
		max = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(float64(v.Units) / float64(max) * float64(len(blocks)-1))
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

func statusCell(col int) func(int, string) (lipgloss.Style, bool) {
	return func(c int, cell string) (lipgloss.Style, bool) {
		if c != col {
			return lipgloss.Style{}, false
		}
		for st, style := range statusStyles {
			if strings.TrimSpace(cell) == st.Label() {
				return style, true
			}
		}
		return lipgloss.Style{}, false
	}
}

// RenderPortfolio shows every obligation with its balance and status.
func RenderPortfolio(p engine.Portfolio) string {
	t := Table{
		Title:     "Obligations, " + p.Period.Label(),
		Headers:   []string{"Obligation", "Kind", "Remaining", "Paid", "Progress", "Periods", "Status"},
		CellStyle: statusCell(6),
	}
	for _, v := range p.Views {
		name := v.Obligation.Name
		if name == "" {
			name = v.Obligation.ID
		}
		if !v.Obligation.Status.IsActive() {
			name += " (completed)"
		}
		periods := ""
		if v.RemainingPeriods > 0 {
			periods = fmt.Sprintf("%d", v.RemainingPeriods)
		}
		t.Rows = append(t.Rows, []string{
			name,
			string(v.Obligation.Kind),
			v.Balance.Remaining.String(),
			v.Balance.PaidToDate.String(),
			fmt.Sprintf("%.1f%%", v.Balance.ProgressPercent),
			periods,
			v.Status.Label(),
		})
	}
	t.Rows = append(t.Rows, []string{"---"}, []string{"Total", "", p.TotalRemaining.String()})

	var b strings.Builder
	b.WriteString(RenderTable(t))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  Due this month %s  ·  paid %d  unpaid %d  overdue %d",
		p.DueThisPeriod, p.Paid, p.Unpaid, p.Overdue)))
	b.WriteString("\n")
	return b.String()
}

// RenderSchedule shows the projected payments month by month.
func RenderSchedule(s engine.Schedule) string {
	if len(s.Months) == 0 {
		return mutedStyle.Render("  Nothing left to pay.") + "\n"
	}
	t := Table{Title: "Payment schedule", Headers: []string{"Month", "Obligation", "Due", "Remaining after"}}
	for i, m := range s.Months {
		if i > 0 {
			t.Rows = append(t.Rows, []string{"---"})
		}
		for j, l := range m.Lines {
			label := ""
			if j == 0 {
				label = m.Label
			}
			name := l.Name
			if l.RemainingAfter.IsZero() {
				name += " ✓"
			}
			t.Rows = append(t.Rows, []string{label, name, l.AmountDue.String(), l.RemainingAfter.String()})
		}
		if len(m.Lines) > 1 {
			t.Rows = append(t.Rows, []string{"", "Total", m.Total.String(), ""})
		}
	}

	var b strings.Builder
	b.WriteString(RenderTable(t))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d months, %s in total", len(s.Months), s.Total())))
	b.WriteString("\n")
	if len(s.Skipped) > 0 {
		b.WriteString(mutedStyle.Render("  Not scheduled (no recurring amount): " + strings.Join(s.Skipped, ", ")))
		b.WriteString("\n")
	}
	if s.Incomplete {
		b.WriteString(warnStyle.Render(fmt.Sprintf("  Schedule truncated after %d months; balances remain.", engine.MaxScheduleMonths)))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSeries shows each balance series as a sparkline with its endpoints.
func RenderSeries(set engine.SeriesSet) string {
	if len(set.Series) == 0 {
		return mutedStyle.Render("  No installment obligations.") + "\n"
	}
	first := set.Timeline[0].Label()
	last := set.Timeline[len(set.Timeline)-1].Label()
	t := Table{
		Title:   fmt.Sprintf("Balance %s to %s", first, last),
		Headers: []string{"Obligation", "Start", "Trend", "End"},
	}
	for _, s := range set.Series {
		t.Rows = append(t.Rows, []string{
			s.Label,
			s.Points[0].String(),
			RenderSparkline(s.Points),
			s.Points[len(s.Points)-1].String(),
		})
	}
	return RenderTable(t)
}
