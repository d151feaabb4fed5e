package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"

	"github.com/roach88/kibitz/internal/engine"
	"github.com/roach88/kibitz/internal/position"
)

// Layout: the board occupies columns 0-25 (rank labels plus 8 squares of
// three cells), the panel starts at panelX.
const (
	boardX = 2
	boardY = 1
	panelX = 29
)

var (
	styleDefault  = tcell.StyleDefault
	styleLight    = tcell.StyleDefault.Background(tcell.NewRGBColor(240, 217, 181)).Foreground(tcell.ColorBlack)
	styleDark     = tcell.StyleDefault.Background(tcell.NewRGBColor(181, 136, 99)).Foreground(tcell.ColorBlack)
	styleCursor   = tcell.StyleDefault.Background(tcell.ColorYellow).Foreground(tcell.ColorBlack)
	styleSelected = tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleError    = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleDim      = tcell.StyleDefault.Dim(true)
)

var glyphs = map[chess.Piece]rune{
	chess.WhiteKing: '♔', chess.WhiteQueen: '♕', chess.WhiteRook: '♖',
	chess.WhiteBishop: '♗', chess.WhiteKnight: '♘', chess.WhitePawn: '♙',
	chess.BlackKing: '♚', chess.BlackQueen: '♛', chess.BlackRook: '♜',
	chess.BlackBishop: '♝', chess.BlackKnight: '♞', chess.BlackPawn: '♟',
}

// squareAt maps a screen cell to the board square drawn on it.
func squareAt(x, y int) (chess.Square, bool) {
	if x < boardX || y < boardY {
		return chess.NoSquare, false
	}
	row, col := y-boardY, (x-boardX)/3
	if row > 7 || col > 7 {
		return chess.NoSquare, false
	}
	return position.SquareFromRowCol(row, col), true
}

// Draw renders the whole screen.
func (a *App) Draw() {
	a.screen.Clear()
	a.drawBoard()
	a.drawPanel()
	a.screen.Show()
}

func (a *App) drawBoard() {
	grid := a.pos.Grid()
	for row := 0; row < 8; row++ {
		y := boardY + row
		drawText(a.screen, 0, y, styleDim, fmt.Sprintf("%d", 8-row))
		for col := 0; col < 8; col++ {
			sq := position.SquareFromRowCol(row, col)
			style := styleLight
			if (row+col)%2 == 1 {
				style = styleDark
			}
			if a.selected != nil && *a.selected == sq {
				style = styleSelected
			}
			if sq == a.cursor {
				style = styleCursor
			}

			glyph := ' '
			if g, ok := glyphs[grid[row][col]]; ok {
				glyph = g
			}
			x := boardX + col*3
			a.screen.SetContent(x, y, ' ', nil, style)
			a.screen.SetContent(x+1, y, glyph, nil, style)
			a.screen.SetContent(x+2, y, ' ', nil, style)
		}
	}
	for col := 0; col < 8; col++ {
		a.screen.SetContent(boardX+col*3+1, boardY+8, rune('a'+col), nil, styleDim)
	}
}

func (a *App) drawPanel() {
	y := boardY
	line := func(style tcell.Style, format string, args ...any) {
		drawText(a.screen, panelX, y, style, fmt.Sprintf(format, args...))
		y++
	}

	line(styleTitle, "kibitz  %s", a.pos.Status())
	an := a.engine.Analysis()
	state := a.engine.State().String()
	if an.Searching {
		state += "  searching"
	}
	line(styleDefault, "Engine: %s", state)
	line(styleDefault, "Depth %d  score %s  nodes %d", an.Depth, formatScore(an), an.Nodes)
	line(styleDefault, "PV: %s", strings.Join(an.PV, " "))
	best := an.BestMove
	if an.Ponder != "" {
		best += " ponder " + an.Ponder
	}
	line(styleDefault, "Best: %s", best)
	line(styleDefault, "Eval: %s", a.formatEval())
	y++
	line(styleDim, "Moves: %s", strings.Join(a.pos.Moves(), " "))

	y = boardY + 10
	drawText(a.screen, 0, y, styleDefault, "FEN: "+a.pos.FEN())
	y++
	if a.inputMode {
		drawText(a.screen, 0, y, styleDefault, "move: "+string(a.input)+"_")
	} else if a.message != "" {
		drawText(a.screen, 0, y, styleDefault, a.message)
	}
	y++
	if a.errMsg != "" {
		drawText(a.screen, 0, y, styleError, a.errMsg)
	}
	y++
	drawText(a.screen, 0, y, styleDim, "q quit  s start  x stop  e eval  : move  u undo  n new")
}

func formatScore(an engine.Analysis) string {
	switch {
	case an.Mate != nil:
		return fmt.Sprintf("#%d", *an.Mate)
	case an.ScoreCP != nil:
		return fmt.Sprintf("%+.2f", float64(*an.ScoreCP)/100)
	default:
		return "-"
	}
}

func (a *App) formatEval() string {
	if a.evalPending {
		return "..."
	}
	if a.eval == nil {
		return "-"
	}
	s := fmt.Sprintf("%.2f %.2f %.2f (%d lines)",
		a.eval.Scores[0], a.eval.Scores[1], a.eval.Scores[2], a.eval.TotalLinesSeen)
	if a.storedEval {
		s += " stored"
	}
	return s
}

func drawText(screen tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
