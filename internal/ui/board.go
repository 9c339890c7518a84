package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/iklasky/tactic-trainer/internal/board"
)

var pieceRunes = map[byte]rune{
	'K': '♔', 'Q': '♕', 'R': '♖', 'B': '♗', 'N': '♘', 'P': '♙',
	'k': '♚', 'q': '♛', 'r': '♜', 'b': '♝', 'n': '♞', 'p': '♟',
}

var (
	lightSquare = lipgloss.NewStyle().
			Background(lipgloss.Color("#f0d9b5")).
			Foreground(lipgloss.Color("#1c1c1c"))
	darkSquare = lipgloss.NewStyle().
			Background(lipgloss.Color("#b58863")).
			Foreground(lipgloss.Color("#1c1c1c"))
	boardEdge = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderBoard draws the FEN position from white's perspective, rank 8
// at the top, with rank digits on the left and file letters below.
func renderBoard(fen string) string {
	grid, err := board.Grid(fen)
	if err != nil {
		return "invalid position: " + err.Error()
	}

	var b strings.Builder
	for rank := 7; rank >= 0; rank-- {
		b.WriteString(boardEdge.Render(string(rune('1'+rank)) + " "))
		for file := 0; file < 8; file++ {
			cell := "   "
			if piece := grid[rank][file]; piece != 0 {
				cell = " " + string(pieceRunes[piece]) + " "
			}
			if (rank+file)%2 == 0 {
				b.WriteString(darkSquare.Render(cell))
			} else {
				b.WriteString(lightSquare.Render(cell))
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString(boardEdge.Render("   a  b  c  d  e  f  g  h"))
	return b.String()
}
