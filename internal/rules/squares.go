package rules

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

func parseSquare(s string) (nchess.Square, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		var zero nchess.Square
		return zero, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}

func parsePromotion(s string) nchess.PieceType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "q":
		return nchess.Queen
	case "r":
		return nchess.Rook
	case "b":
		return nchess.Bishop
	case "n":
		return nchess.Knight
	}
	return nchess.NoPieceType
}

func pieceLetter(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "k"
	case nchess.Queen:
		return "q"
	case nchess.Rook:
		return "r"
	case nchess.Bishop:
		return "b"
	case nchess.Knight:
		return "n"
	case nchess.Pawn:
		return "p"
	}
	return ""
}

// capturedLetter reads the capture off the pre-move board, including the
// en passant case where the destination is empty.
func capturedLetter(board *nchess.Board, from, to nchess.Square) string {
	if p := board.Piece(to); p != nchess.NoPiece {
		return pieceLetter(p.Type())
	}
	if isEnPassant(board, from, to) {
		return "p"
	}
	return ""
}

func isEnPassant(board *nchess.Board, from, to nchess.Square) bool {
	p := board.Piece(from)
	return p.Type() == nchess.Pawn && from.File() != to.File() && board.Piece(to) == nchess.NoPiece
}

// moveFlags uses the single-letter vocabulary browser chess clients expect:
// n normal, c capture, b double pawn push, e en passant, p promotion,
// k and q castling.
func moveFlags(board *nchess.Board, from, to nchess.Square, promo bool) string {
	p := board.Piece(from)
	var b strings.Builder
	switch {
	case isEnPassant(board, from, to):
		b.WriteByte('e')
	case board.Piece(to) != nchess.NoPiece:
		b.WriteByte('c')
	case p.Type() == nchess.Pawn && rankDistance(from, to) == 2:
		b.WriteByte('b')
	case p.Type() == nchess.King && to.File()-from.File() == 2:
		b.WriteByte('k')
	case p.Type() == nchess.King && from.File()-to.File() == 2:
		b.WriteByte('q')
	default:
		b.WriteByte('n')
	}
	if promo {
		b.WriteByte('p')
	}
	return b.String()
}

func rankDistance(a, b nchess.Square) int {
	d := int(a.Rank()) - int(b.Rank())
	if d < 0 {
		return -d
	}
	return d
}
