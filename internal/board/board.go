// Package board adapts the pgn rules library for the analysis pipeline
// and the replay engine: FEN decoding, UCI move handling, SAN
// rendering, and material counting.
package board

import (
	"fmt"
	"strings"
)

// Grid decodes the piece-placement field of a FEN string into an 8x8
// array indexed [rank][file], rank 0 = rank 1 (the a1 corner is
// [0][0]). Empty squares are zero; occupied squares hold the FEN
// letter ('P'..'K' white, 'p'..'k' black).
func Grid(fen string) ([8][8]byte, error) {
	var grid [8][8]byte

	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return grid, fmt.Errorf("empty FEN")
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return grid, fmt.Errorf("FEN has %d ranks, want 8", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i // FEN lists rank 8 first
		file := 0
		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			if !isPieceLetter(c) {
				return grid, fmt.Errorf("invalid piece %q in FEN rank %d", c, rank+1)
			}
			if file > 7 {
				return grid, fmt.Errorf("FEN rank %d overflows 8 files", rank+1)
			}
			grid[rank][file] = c
			file++
		}
		if file != 8 {
			return grid, fmt.Errorf("FEN rank %d has %d files, want 8", rank+1, file)
		}
	}

	return grid, nil
}

func isPieceLetter(c byte) bool {
	switch c {
	case 'P', 'N', 'B', 'R', 'Q', 'K', 'p', 'n', 'b', 'r', 'q', 'k':
		return true
	}
	return false
}

// WhiteToMove reports whether the FEN's side-to-move field is white.
func WhiteToMove(fen string) bool {
	return !strings.Contains(fen, " b ")
}

// PieceValue returns the pawn-unit value of a FEN piece letter,
// positive for white pieces and negative for black. Kings are 0.
func PieceValue(piece byte) int {
	var v int
	switch piece {
	case 'P', 'p':
		v = 1
	case 'N', 'n', 'B', 'b':
		v = 3
	case 'R', 'r':
		v = 5
	case 'Q', 'q':
		v = 9
	default:
		return 0
	}
	if piece >= 'a' {
		return -v
	}
	return v
}

// Material sums piece values over the FEN's placement field and
// returns white minus black in pawn units.
func Material(fen string) (int, error) {
	grid, err := Grid(fen)
	if err != nil {
		return 0, err
	}
	total := 0
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			total += PieceValue(grid[rank][file])
		}
	}
	return total, nil
}
