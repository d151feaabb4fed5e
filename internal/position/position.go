// Package position holds the board the front-end displays and sends to the
// engine. Legality and FEN handling are delegated to notnil/chess.
package position

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrIllegalMove is returned for moves the current position does not allow.
var ErrIllegalMove = errors.New("illegal move")

// SquareFromRowCol converts screen coordinates to a chess.Square.
// Row 0 is rank 8 (top of the board), col 0 is file a.
func SquareFromRowCol(row, col int) chess.Square {
	return chess.NewSquare(chess.File(col), chess.Rank(7-row))
}

// RowColFromSquare converts a chess.Square back to screen coordinates.
func RowColFromSquare(sq chess.Square) (row, col int) {
	return 7 - int(sq.Rank()), int(sq.File())
}

// Position is a game started from a FEN plus the UCI moves played since.
// Not safe for concurrent use.
type Position struct {
	startFEN string
	game     *chess.Game
	moves    []string
}

// Start returns the standard initial position.
func Start() *Position {
	p, err := New(StartFEN)
	if err != nil {
		panic(fmt.Sprintf("position: start FEN rejected: %v", err))
	}
	return p
}

// New builds a position from fen. Empty fen means the initial position.
func New(fen string) (*Position, error) {
	if strings.TrimSpace(fen) == "" {
		fen = StartFEN
	}
	normalized, err := NormalizeFEN(fen)
	if err != nil {
		return nil, err
	}
	game, err := newGame(normalized)
	if err != nil {
		return nil, err
	}
	return &Position{startFEN: normalized, game: game}, nil
}

func newGame(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	return chess.NewGame(opt, chess.UseNotation(chess.UCINotation{})), nil
}

// NormalizeFEN trims fen, rejects line breaks and checks it parses.
func NormalizeFEN(fen string) (string, error) {
	trimmed := strings.TrimSpace(fen)
	if trimmed == "" {
		return "", errors.New("fen must not be empty")
	}
	if strings.ContainsAny(trimmed, "\r\n") {
		return "", errors.New("fen must be single-line")
	}
	if _, err := chess.FEN(trimmed); err != nil {
		return "", fmt.Errorf("invalid FEN %q: %w", trimmed, err)
	}
	return trimmed, nil
}

// FEN returns the current position.
func (p *Position) FEN() string {
	return p.game.FEN()
}

// Turn returns the side to move.
func (p *Position) Turn() chess.Color {
	return p.game.Position().Turn()
}

// Grid returns the board with row 0 = rank 8 and col 0 = file a.
func (p *Position) Grid() [8][8]chess.Piece {
	var grid [8][8]chess.Piece
	board := p.game.Position().Board()
	for sq := chess.A1; sq <= chess.H8; sq++ {
		row, col := RowColFromSquare(sq)
		grid[row][col] = board.Piece(sq)
	}
	return grid
}

// Move plays a move in UCI notation, e.g. "e2e4" or "e7e8q".
func (p *Position) Move(uci string) error {
	uci = strings.ToLower(strings.TrimSpace(uci))
	if p.Over() {
		return fmt.Errorf("%w %q: game is over", ErrIllegalMove, uci)
	}
	if err := p.game.MoveStr(uci); err != nil {
		return fmt.Errorf("%w %q: %v", ErrIllegalMove, uci, err)
	}
	p.moves = append(p.moves, uci)
	return nil
}

// MoveSquares plays the legal move from one square to another and returns
// it in UCI notation. Promotions pick a queen.
func (p *Position) MoveSquares(from, to chess.Square) (string, error) {
	if p.Over() {
		return "", fmt.Errorf("%w %s%s: game is over", ErrIllegalMove, from, to)
	}
	pos := p.game.Position()

	var match *chess.Move
	for _, m := range pos.ValidMoves() {
		if m.S1() != from || m.S2() != to {
			continue
		}
		if match == nil || m.Promo() == chess.Queen {
			match = m
		}
	}
	if match == nil {
		return "", fmt.Errorf("%w %s%s", ErrIllegalMove, from, to)
	}

	uci := chess.UCINotation{}.Encode(pos, match)
	if err := p.game.Move(match); err != nil {
		return "", fmt.Errorf("%w %s: %v", ErrIllegalMove, uci, err)
	}
	p.moves = append(p.moves, uci)
	return uci, nil
}

// Undo takes back the last move. It reports false when there is none.
func (p *Position) Undo() bool {
	if len(p.moves) == 0 {
		return false
	}
	game, err := newGame(p.startFEN)
	if err != nil {
		return false
	}
	keep := p.moves[:len(p.moves)-1]
	for _, m := range keep {
		if err := game.MoveStr(m); err != nil {
			return false
		}
	}
	p.game = game
	p.moves = keep
	return true
}

// Reset goes back to the start FEN, dropping every move.
func (p *Position) Reset() {
	game, err := newGame(p.startFEN)
	if err != nil {
		return
	}
	p.game = game
	p.moves = nil
}

// Moves returns the UCI moves played since the start FEN.
func (p *Position) Moves() []string {
	return append([]string(nil), p.moves...)
}

// LastMove returns the last move played, or "".
func (p *Position) LastMove() string {
	if len(p.moves) == 0 {
		return ""
	}
	return p.moves[len(p.moves)-1]
}

// Over reports whether the game has ended.
func (p *Position) Over() bool {
	return p.game.Outcome() != chess.NoOutcome
}

// Status is a human-readable game state.
func (p *Position) Status() string {
	method := p.game.Method()
	switch p.game.Outcome() {
	case chess.WhiteWon:
		return fmt.Sprintf("White wins (%s)", method)
	case chess.BlackWon:
		return fmt.Sprintf("Black wins (%s)", method)
	case chess.Draw:
		return fmt.Sprintf("Draw (%s)", method)
	}
	if p.Turn() == chess.White {
		return "White to move"
	}
	return "Black to move"
}
