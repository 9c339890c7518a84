package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/iklasky/tactic-trainer/internal/hist"
	"github.com/iklasky/tactic-trainer/internal/replay"
)

const (
	gridCellWidth  = 9
	gridLabelWidth = 9
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaf5f"))
	axisStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	cellFg       = lipgloss.Color("#f2f2f2")
)

func trainerTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).Foreground(lipgloss.Color("252"))
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	return styles
}

func (m Model) View() string {
	var body string
	switch m.screen {
	case screenPlayers:
		body = m.viewPlayers()
	case screenGrid:
		body = m.viewGrid()
	case screenEvents:
		body = m.viewEvents()
	case screenReplay:
		body = m.viewReplay()
	}

	sections := []string{m.viewHeader(), body, m.viewFooter()}
	if m.status != "" {
		sections = append(sections, statusStyle.Render(m.status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) viewHeader() string {
	who := m.filters.Player
	if who == "" {
		who = "all players"
	}
	line := fmt.Sprintf("tactic trainer · %s · rating %d-%d · %s view",
		who, m.filters.MinElo, m.filters.MaxElo, m.filters.Mode)
	return headerStyle.Render(line)
}

func (m Model) viewFooter() string {
	var help string
	switch m.screen {
	case screenPlayers:
		help = "↑/↓ select · enter open · q quit"
	case screenGrid:
		help = "arrows cell · m view mode · enter drill down · esc back · q quit"
	case screenEvents:
		help = "↑/↓ select · enter replay · esc back · q quit"
	case screenReplay:
		help = "←/→ step through the line · esc back · q quit"
	}
	return helpStyle.Render(help)
}

func (m Model) viewPlayers() string {
	return m.players.View()
}

func (m Model) viewGrid() string {
	if m.loading || m.agg == nil {
		return loadingStyle.Render("loading analysis…")
	}

	var b strings.Builder
	b.WriteString(axisStyle.Render(pad("adv \\ t", gridLabelWidth)))
	for _, tl := range m.agg.TimeLabels() {
		b.WriteString(axisStyle.Render(center(tl, gridCellWidth)))
	}
	b.WriteByte('\n')

	for di, dl := range m.agg.DeltaLabels() {
		b.WriteString(axisStyle.Render(pad(dl, gridLabelWidth)))
		for ti := range m.agg.TimeLabels() {
			text, bg := m.cellDisplay(di, ti)
			style := lipgloss.NewStyle().
				Background(lipgloss.Color(bg.Hex())).
				Foreground(cellFg).
				Width(gridCellWidth).
				Align(lipgloss.Center)
			if di == m.selDelta && ti == m.selTime {
				style = style.Reverse(true).Bold(true)
			}
			b.WriteString(style.Render(text))
		}
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(summaryStyle.Render(m.gridSummary()))
	return b.String()
}

// cellDisplay resolves one grid cell's text and background for the
// current view mode.
func (m Model) cellDisplay(di, ti int) (string, hist.RGB) {
	if m.filters.Mode == hist.ModeDiff {
		if m.fieldAgg == nil {
			return "…", hist.NoDataColor
		}
		score, ok := hist.DiffScore(m.agg, m.fieldAgg, di, ti)
		if !ok {
			return "·", hist.NoDataColor
		}
		return fmt.Sprintf("%+.0f", score), hist.DiffColor(score)
	}

	value := m.agg.Value(di, ti, m.filters.Mode)
	text := strconv.Itoa(value)
	if m.filters.Mode == hist.ModePercentage {
		text += "%"
	}
	return text, hist.HeatColor(m.agg.Intensity(di, ti, m.filters.Mode))
}

func (m Model) gridSummary() string {
	if m.result == nil {
		return ""
	}
	line := fmt.Sprintf("%d opportunities · %d missed · %d converted · %d games",
		m.result.TotalEvents, m.result.MissedCount, m.result.ConvertedCount, m.result.GamesAnalyzed)
	if m.filters.Mode == hist.ModeDiff && m.loadingField {
		line += " · loading field…"
	}
	return line
}

func (m Model) viewEvents() string {
	title := fmt.Sprintf("missed in %s ×%s",
		m.agg.DeltaLabels()[m.selDelta], m.agg.TimeLabels()[m.selTime])
	return lipgloss.JoinVertical(lipgloss.Left,
		axisStyle.Render(title),
		m.events.View(),
	)
}

func (m Model) viewReplay() string {
	if m.replay == nil {
		return ""
	}
	session := m.replay
	total := session.LastPly() + 1

	position := fmt.Sprintf("ply %d of %d", session.Cursor()+1, total)
	if session.AtStart() {
		position = "your move (ply 0 of " + strconv.Itoa(total) + ")"
	}
	stats := fmt.Sprintf("%s · eval %+.2f · material %+d",
		position, session.EvalPawns(), session.MaterialDelta())

	return lipgloss.JoinVertical(lipgloss.Left,
		renderBoard(session.FEN()),
		summaryStyle.Render(stats),
		axisStyle.Render(arrowsLine(session.Arrows())),
	)
}

func arrowsLine(arrows []replay.Arrow) string {
	parts := make([]string, 0, len(arrows))
	for _, a := range arrows {
		switch a.Kind {
		case replay.ArrowMistake:
			parts = append(parts, "mistake "+a.UCI)
		case replay.ArrowBest:
			parts = append(parts, "best "+a.UCI)
		}
	}
	return strings.Join(parts, " · ")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func center(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
