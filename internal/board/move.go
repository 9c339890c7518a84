package board

import (
	"fmt"

	"github.com/freeeve/pgn/v3"
)

// ParseUCI splits a UCI move string into from/to square indices
// (0-63, a1=0) and a promotion letter ('q', 'r', 'b', 'n', or 0).
// Examples: "e2e4", "e7e8q", "a1h8"
func ParseUCI(uci string) (from, to int, promo byte, err error) {
	if len(uci) < 4 {
		return 0, 0, 0, fmt.Errorf("UCI move too short: %s", uci)
	}

	fromFile := int(uci[0] - 'a')
	fromRank := int(uci[1] - '1')
	toFile := int(uci[2] - 'a')
	toRank := int(uci[3] - '1')

	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 {
		return 0, 0, 0, fmt.Errorf("invalid from square in UCI: %s", uci)
	}
	if toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return 0, 0, 0, fmt.Errorf("invalid to square in UCI: %s", uci)
	}

	from = fromRank*8 + fromFile
	to = toRank*8 + toFile

	if len(uci) >= 5 {
		switch uci[4] {
		case 'q', 'Q':
			promo = 'q'
		case 'r', 'R':
			promo = 'r'
		case 'b', 'B':
			promo = 'b'
		case 'n', 'N':
			promo = 'n'
		default:
			return 0, 0, 0, fmt.Errorf("invalid promotion piece: %c", uci[4])
		}
	}

	return from, to, promo, nil
}

// FormatUCI converts a pgn.Mv to UCI notation (e.g., "e2e4", "e7e8q").
func FormatUCI(mv pgn.Mv) string {
	files := "abcdefgh"
	ranks := "12345678"

	from := string(files[mv.From%8]) + string(ranks[mv.From/8])
	to := string(files[mv.To%8]) + string(ranks[mv.To/8])

	uci := from + to

	switch mv.Promo {
	case pgn.PromoQueen:
		uci += "q"
	case pgn.PromoRook:
		uci += "r"
	case pgn.PromoBishop:
		uci += "b"
	case pgn.PromoKnight:
		uci += "n"
	}

	return uci
}

func promoLetter(promo pgn.PromoPiece) byte {
	switch promo {
	case pgn.PromoQueen:
		return 'q'
	case pgn.PromoRook:
		return 'r'
	case pgn.PromoBishop:
		return 'b'
	case pgn.PromoKnight:
		return 'n'
	}
	return 0
}

// FindUCI locates the legal move matching a UCI string in the given
// position. Returns an error if the string is malformed or no legal
// move matches it.
func FindUCI(pos *pgn.GameState, uci string) (pgn.Mv, error) {
	from, to, promo, err := ParseUCI(uci)
	if err != nil {
		return pgn.Mv{}, err
	}

	for _, mv := range pgn.GenerateLegalMoves(pos) {
		if int(mv.From) != from || int(mv.To) != to {
			continue
		}
		if promoLetter(mv.Promo) != promo {
			continue
		}
		return mv, nil
	}
	return pgn.Mv{}, fmt.Errorf("no legal move %s", uci)
}

// ApplyUCI applies a UCI move to the position in place.
func ApplyUCI(pos *pgn.GameState, uci string) error {
	mv, err := FindUCI(pos, uci)
	if err != nil {
		return err
	}
	if err := pgn.ApplyMove(pos, mv); err != nil {
		return fmt.Errorf("apply %s: %w", uci, err)
	}
	return nil
}

// Clone returns an independent copy of the position.
func Clone(pos *pgn.GameState) *pgn.GameState {
	return pos.Pack().Unpack()
}

// FromFEN builds a playable position from a FEN string. Move counters
// are not preserved; side to move, castling rights, and en passant are.
func FromFEN(fen string) (*pgn.GameState, error) {
	key, err := pgn.PackedPositionFromFEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse FEN: %w", err)
	}
	packed, err := pgn.ParsePackedPosition(key)
	if err != nil {
		return nil, fmt.Errorf("parse FEN: %w", err)
	}
	pos := packed.Unpack()
	if pos == nil {
		return nil, fmt.Errorf("unpack FEN %q", fen)
	}
	return pos, nil
}

// SAN converts a move to SAN notation against the position it is
// played from.
func SAN(pos *pgn.GameState, mv pgn.Mv) string {
	// Check for castling
	if mv.Flags == 4 {
		if mv.To > mv.From {
			return "O-O"
		}
		return "O-O-O"
	}

	fromSq := int(mv.From)
	toSq := int(mv.To)
	fromFile := fromSq % 8
	toFile := toSq % 8
	toRank := toSq / 8

	files := "abcdefgh"
	ranks := "12345678"

	// Piece at from square ('P', 'N', ... for white, lowercase for black)
	piece := pos.PieceAt(mv.From)
	isPawn := piece == 'P' || piece == 'p'
	isCapture := pos.PieceAt(mv.To) != 0 || (isPawn && mv.Flags == 2) // en passant

	var san string

	if isPawn {
		if isCapture {
			san = string(files[fromFile]) + "x" + string(files[toFile]) + string(ranks[toRank])
		} else {
			san = string(files[toFile]) + string(ranks[toRank])
		}
		switch mv.Promo {
		case pgn.PromoQueen:
			san += "=Q"
		case pgn.PromoRook:
			san += "=R"
		case pgn.PromoBishop:
			san += "=B"
		case pgn.PromoKnight:
			san += "=N"
		}
	} else {
		// Piece moves - use uppercase version
		pieceChar := piece
		if piece >= 'a' && piece <= 'z' {
			pieceChar = piece - 32
		}
		san = string(pieceChar)

		// Check for disambiguation
		disambig := ""
		moves := pgn.GenerateLegalMoves(pos)
		for _, other := range moves {
			if other.To == mv.To && other.From != mv.From {
				otherPiece := pos.PieceAt(other.From)
				otherUpper := otherPiece
				if otherPiece >= 'a' && otherPiece <= 'z' {
					otherUpper = otherPiece - 32
				}
				if otherUpper == pieceChar {
					// Same piece type can reach the square - disambiguate
					otherFromFile := int(other.From) % 8
					otherFromRank := int(other.From) / 8
					if fromFile != otherFromFile {
						disambig = string(files[fromFile])
					} else if fromSq/8 != otherFromRank {
						disambig = string(ranks[fromSq/8])
					} else {
						disambig = string(files[fromFile]) + string(ranks[fromSq/8])
					}
					break
				}
			}
		}
		san += disambig

		if isCapture {
			san += "x"
		}
		san += string(files[toFile]) + string(ranks[toRank])
	}

	// Check for check/checkmate
	posCopy := pos.Pack().Unpack()
	if posCopy != nil {
		_ = pgn.ApplyMove(posCopy, mv)
		if posCopy.IsInCheck() {
			moves := pgn.GenerateLegalMoves(posCopy)
			if len(moves) == 0 {
				san += "#"
			} else {
				san += "+"
			}
		}
	}

	return san
}
