package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Chess is the Oracle for standard chess.
type Chess struct {
	start Position
}

func NewChess() *Chess {
	return &Chess{start: Position(nchess.NewGame().FEN())}
}

func (c *Chess) Initial() Position { return c.start }

func (c *Chess) Validate(pos Position) error {
	_, err := load(pos)
	return err
}

func (c *Chess) Turn(pos Position) (Side, error) {
	game, err := load(pos)
	if err != nil {
		return "", err
	}
	return sideOf(game.Position().Turn()), nil
}

// LegalMoves lists the moves of the piece on square. An empty square or a
// piece of the side not to move yields an empty list.
func (c *Chess) LegalMoves(pos Position, square string) ([]Candidate, error) {
	sq, ok := parseSquare(square)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadSquare, square)
	}
	game, err := load(pos)
	if err != nil {
		return nil, err
	}
	cur := game.Position()
	board := cur.Board()
	piece := board.Piece(sq)
	if piece == nchess.NoPiece || piece.Color() != cur.Turn() {
		return []Candidate{}, nil
	}

	out := []Candidate{}
	for _, mv := range game.ValidMoves() {
		if mv.S1() != sq {
			continue
		}
		promo := pieceLetter(mv.Promo())
		out = append(out, Candidate{
			From:      mv.S1().String(),
			To:        mv.S2().String(),
			Piece:     pieceLetter(piece.Type()),
			Flags:     moveFlags(board, mv.S1(), mv.S2(), promo != ""),
			Promotion: promo,
		})
	}
	return out, nil
}

// Apply adjudicates req against the position line leads to. A promotion move
// without a promotion piece is illegal; a promotion piece on any other move
// is ignored.
func (c *Chess) Apply(line Line, req MoveRequest) (Adjudication, error) {
	from, ok := parseSquare(req.From)
	if !ok {
		return Adjudication{}, fmt.Errorf("%w: from %q", ErrBadSquare, req.From)
	}
	to, ok := parseSquare(req.To)
	if !ok {
		return Adjudication{}, fmt.Errorf("%w: to %q", ErrBadSquare, req.To)
	}
	// 재구성 + 적용
	game, err := replay(line)
	if err != nil {
		return Adjudication{}, err
	}
	pos := Position(game.FEN())
	if game.Outcome() != nchess.NoOutcome {
		return Adjudication{}, fmt.Errorf("%w: game already decided", ErrIllegalMove)
	}

	wantPromo := parsePromotion(req.Promotion)
	found, isPromo := false, false
	for _, mv := range game.ValidMoves() {
		if mv.S1() != from || mv.S2() != to {
			continue
		}
		if mv.Promo() != nchess.NoPieceType {
			if mv.Promo() != wantPromo {
				continue
			}
			isPromo = true
		}
		found = true
		break
	}
	if !found {
		return Adjudication{}, fmt.Errorf("%w: %s%s", ErrIllegalMove, req.From, req.To)
	}

	// UCI 문자열 조립 (승격이면 말 글자 추가)
	uci := from.String() + to.String()
	if isPromo {
		uci += pieceLetter(wantPromo)
	}

	before := game.Position()
	board := before.Board()
	moved := board.Piece(from)
	if err := game.PushNotationMove(uci, nchess.UCINotation{}, nil); err != nil {
		return Adjudication{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	moves := game.Moves()
	last := moves[len(moves)-1]

	rec := MoveRecord{
		Side:     sideOf(moved.Color()),
		From:     from.String(),
		To:       to.String(),
		Piece:    pieceLetter(moved.Type()),
		Captured: capturedLetter(board, from, to),
		Flags:    moveFlags(board, from, to, isPromo),
		SAN:      nchess.AlgebraicNotation{}.Encode(before, last),
		UCI:      uci,
		Before:   pos,
		After:    Position(game.FEN()),
	}
	if isPromo {
		rec.Promotion = pieceLetter(wantPromo)
	}

	adj := Adjudication{Position: rec.After, Record: rec, Outcome: Ongoing}
	switch game.Outcome() {
	case nchess.WhiteWon:
		adj.Outcome = WhiteWins
	case nchess.BlackWon:
		adj.Outcome = BlackWins
	case nchess.Draw:
		adj.Outcome = Drawn
	}
	if adj.Outcome.Decided() {
		adj.Method = strings.ToLower(game.Method().String())
	}
	return adj, nil
}

func load(pos Position) (*nchess.Game, error) {
	fen := strings.TrimSpace(string(pos))
	if fen == "" {
		return nil, fmt.Errorf("%w: empty", ErrBadPosition)
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPosition, err)
	}
	return nchess.NewGame(opt), nil
}

// replay 시작 FEN에서 기보(UCI)를 다시 적용해 게임을 재구성한다.
func replay(line Line) (*nchess.Game, error) {
	game, err := load(line.Start)
	if err != nil {
		return nil, err
	}
	for i, mv := range line.Moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("%w: replay ply %d %q: %v", ErrBadPosition, i+1, mv, err)
		}
	}
	return game, nil
}

func sideOf(c nchess.Color) Side {
	if c == nchess.White {
		return White
	}
	return Black
}
