package tui

import (
	"errors"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"

	"github.com/roach88/kibitz/internal/position"
)

// HandleKey applies one key press.
//
//	q, Esc      quit
//	s / x       start / stop the search
//	e           static evaluation
//	arrows      move the cursor
//	Enter/Space pick the piece under the cursor, then its target square
//	:           type a move in UCI notation (e2e4, e7e8q)
//	u           undo
//	n           new game
func (a *App) HandleKey(ev *tcell.EventKey) {
	if a.inputMode {
		a.handleInputKey(ev)
		return
	}
	a.errMsg = ""

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		a.quit = true
		return
	case tcell.KeyUp:
		a.moveCursor(-1, 0)
		return
	case tcell.KeyDown:
		a.moveCursor(1, 0)
		return
	case tcell.KeyLeft:
		a.moveCursor(0, -1)
		return
	case tcell.KeyRight:
		a.moveCursor(0, 1)
		return
	case tcell.KeyEnter:
		a.pick()
		return
	case tcell.KeyRune:
	default:
		return
	}

	switch ev.Rune() {
	case 'q':
		a.quit = true
	case 's':
		a.startSearch()
	case 'x':
		a.stopSearch()
	case 'e':
		a.requestEvaluation()
	case ' ':
		a.pick()
	case ':':
		a.inputMode = true
		a.input = a.input[:0]
	case 'u':
		if a.pos.Undo() {
			a.message = "undone"
			a.positionChanged()
		}
	case 'n':
		a.pos.Reset()
		a.message = "new game"
		a.positionChanged()
	}
}

// HandleMouse treats a left click on a board square like moving the cursor
// there and pressing Enter. Only the press is acted on, not drags.
func (a *App) HandleMouse(ev *tcell.EventMouse) {
	pressed := ev.Buttons()&tcell.Button1 != 0
	held := a.mouseDown
	a.mouseDown = pressed
	if !pressed || held || a.inputMode {
		return
	}

	sq, ok := squareAt(ev.Position())
	if !ok {
		return
	}
	a.errMsg = ""
	a.cursor = sq
	a.pick()
}

func (a *App) handleInputKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		a.inputMode = false
	case tcell.KeyEnter:
		a.inputMode = false
		a.play(string(a.input))
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(a.input) > 0 {
			a.input = a.input[:len(a.input)-1]
		}
	case tcell.KeyRune:
		if len(a.input) < 5 {
			a.input = append(a.input, ev.Rune())
		}
	}
}

func (a *App) play(uciMove string) {
	if err := a.pos.Move(uciMove); err != nil {
		a.errMsg = err.Error()
		return
	}
	a.message = "played " + a.pos.LastMove()
	a.positionChanged()
}

func (a *App) moveCursor(dRow, dCol int) {
	row, col := position.RowColFromSquare(a.cursor)
	row = min(max(row+dRow, 0), 7)
	col = min(max(col+dCol, 0), 7)
	a.cursor = position.SquareFromRowCol(row, col)
}

// pick selects the piece under the cursor or plays the selected piece to
// the cursor square.
func (a *App) pick() {
	if a.selected == nil {
		row, col := position.RowColFromSquare(a.cursor)
		piece := a.pos.Grid()[row][col]
		if piece == chess.NoPiece || piece.Color() != a.pos.Turn() {
			return
		}
		sq := a.cursor
		a.selected = &sq
		return
	}

	from := *a.selected
	if from == a.cursor {
		a.selected = nil
		return
	}
	move, err := a.pos.MoveSquares(from, a.cursor)
	if err != nil {
		if errors.Is(err, position.ErrIllegalMove) {
			a.errMsg = err.Error()
		}
		a.selected = nil
		return
	}
	a.message = "played " + move
	a.positionChanged()
}
