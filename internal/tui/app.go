// Package tui is the terminal front-end: a tcell screen showing the board,
// the engine's search output and the last static evaluation.
//
// Rendering and key handling run on one goroutine. Evaluations are requested
// from a background goroutine and come back as screen events, so a slow
// engine never freezes the screen.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"

	"github.com/roach88/kibitz/internal/engine"
	"github.com/roach88/kibitz/internal/position"
	"github.com/roach88/kibitz/internal/store"
	"github.com/roach88/kibitz/internal/uci"
)

const (
	defaultEvalTimeout = 30 * time.Second
	refreshInterval    = 250 * time.Millisecond
)

// Analyzer is the part of *engine.Engine the front-end drives.
type Analyzer interface {
	SetPosition(fen string) error
	Start() error
	Stop() error
	GetEvaluation(ctx context.Context) (uci.EvaluationResult, error)
	Analysis() engine.Analysis
	State() engine.State
}

// History is the part of *store.Store the front-end writes to.
type History interface {
	WriteEvaluation(ctx context.Context, ev store.Evaluation) (int64, error)
	WriteSearchResult(ctx context.Context, r store.SearchResult) (int64, error)
	LatestEvaluation(ctx context.Context, fen string) (store.Evaluation, bool, error)
}

// Options configures an App.
type Options struct {
	Engine Analyzer

	// History and SessionID are optional; a nil History disables it.
	History   History
	SessionID string

	// Position defaults to the initial position.
	Position *position.Position

	EvalTimeout time.Duration
}

// evalEvent carries a finished evaluation back to the event loop.
type evalEvent struct {
	tcell.EventTime
	fen    string
	result uci.EvaluationResult
	err    error
}

// refreshEvent redraws the analysis panel while a search runs.
type refreshEvent struct {
	tcell.EventTime
}

// searchPhase tracks a search until its result is recorded.
type searchPhase int

const (
	searchIdle searchPhase = iota
	searchQueued
	searchRunning
)

// App is the interactive front-end. All fields are owned by the goroutine
// running Run.
type App struct {
	screen  tcell.Screen
	ctx     context.Context // bounds background work; set by Run
	engine  Analyzer
	history History
	session string
	timeout time.Duration

	pos      *position.Position
	cursor   chess.Square
	selected *chess.Square

	inputMode bool
	input     []rune
	mouseDown bool

	eval        *uci.EvaluationResult
	storedEval  bool
	evalPending bool

	search    searchPhase
	searchFEN string

	message string
	errMsg  string
	quit    bool
}

// New creates an App on an initialized screen.
func New(screen tcell.Screen, opts Options) *App {
	pos := opts.Position
	if pos == nil {
		pos = position.Start()
	}
	timeout := opts.EvalTimeout
	if timeout <= 0 {
		timeout = defaultEvalTimeout
	}
	a := &App{
		screen:  screen,
		ctx:     context.Background(),
		engine:  opts.Engine,
		history: opts.History,
		session: opts.SessionID,
		timeout: timeout,
		pos:     pos,
		cursor:  chess.E2,
	}
	a.positionChanged()
	return a
}

// Run draws and handles events until the user quits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.ctx = ctx

	go a.refresh(ctx)
	go func() {
		<-ctx.Done()
		_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	for !a.quit {
		a.Draw()
		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.handleEvent(ev)
	}
	return nil
}

func (a *App) refresh(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev := &refreshEvent{}
			ev.SetEventNow()
			// Dropped when the queue is full; the next tick redraws anyway.
			_ = a.screen.PostEvent(ev)
		}
	}
}

func (a *App) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		a.HandleKey(ev)
	case *tcell.EventMouse:
		a.HandleMouse(ev)
	case *tcell.EventResize:
		a.screen.Sync()
	case *evalEvent:
		a.finishEvaluation(ev)
	case *refreshEvent:
		a.trackSearch()
	}
}

// Quit reports whether the user asked to leave.
func (a *App) Quit() bool {
	return a.quit
}

// positionChanged tells the engine about the new position and shows the
// stored evaluation for it, if any.
func (a *App) positionChanged() {
	a.selected = nil
	a.eval = nil
	a.storedEval = false

	fen := a.pos.FEN()
	if err := a.engine.SetPosition(fen); err != nil {
		slog.Debug("set position not queued", "error", err)
	}

	if a.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, found, err := a.history.LatestEvaluation(ctx, fen)
	if err != nil {
		slog.Warn("history lookup failed", "error", err)
		return
	}
	if found {
		result := uci.EvaluationResult{TotalLinesSeen: ev.TotalLines, Scores: ev.Scores}
		a.eval = &result
		a.storedEval = true
	}
}

func (a *App) startSearch() {
	if err := a.engine.Start(); err != nil {
		a.errMsg = err.Error()
		return
	}
	a.search = searchQueued
	a.searchFEN = a.pos.FEN()
	a.message = "searching"
}

func (a *App) stopSearch() {
	if err := a.engine.Stop(); err != nil {
		a.errMsg = err.Error()
		return
	}
	a.message = "stopping"
}

// trackSearch records a search result once the engine reports its best
// move for a search started here.
func (a *App) trackSearch() {
	an := a.engine.Analysis()
	switch a.search {
	case searchQueued:
		if an.Searching {
			a.search = searchRunning
		}
	case searchRunning:
		if an.Searching {
			return
		}
		a.search = searchIdle
		if an.BestMove == "" {
			return
		}
		a.message = "best move " + an.BestMove
		a.recordSearch(an)
	}
}

func (a *App) recordSearch(an engine.Analysis) {
	if a.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := a.history.WriteSearchResult(ctx, store.SearchResult{
		SessionID: a.session,
		FEN:       a.searchFEN,
		Depth:     an.Depth,
		ScoreCP:   an.ScoreCP,
		Mate:      an.Mate,
		Nodes:     an.Nodes,
		PV:        an.PV,
		BestMove:  an.BestMove,
		Ponder:    an.Ponder,
	})
	if err != nil {
		slog.Warn("failed to store search result", "error", err)
	}
}

// requestEvaluation asks the engine for a static evaluation without
// blocking the event loop. The request and the hand-back are abandoned once
// Run returns.
func (a *App) requestEvaluation() {
	if a.evalPending {
		return
	}
	a.evalPending = true
	a.message = "evaluating"
	fen := a.pos.FEN()
	eng, screen, runCtx, timeout := a.engine, a.screen, a.ctx, a.timeout

	go func() {
		ctx, cancel := context.WithTimeout(runCtx, timeout)
		defer cancel()
		result, err := eng.GetEvaluation(ctx)
		ev := &evalEvent{fen: fen, result: result, err: err}
		ev.SetEventNow()
		for screen.PostEvent(ev) != nil {
			select {
			case <-runCtx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
		}
	}()
}

func (a *App) finishEvaluation(ev *evalEvent) {
	a.evalPending = false
	if ev.err != nil {
		a.errMsg = "evaluation failed: " + ev.err.Error()
		slog.Warn("evaluation failed", "error", ev.err)
		return
	}
	a.message = ""
	a.storeEvaluation(ev.fen, ev.result)

	// The board moved on while the engine was busy.
	if ev.fen != a.pos.FEN() {
		return
	}
	result := ev.result
	a.eval = &result
	a.storedEval = false
}

func (a *App) storeEvaluation(fen string, result uci.EvaluationResult) {
	if a.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := a.history.WriteEvaluation(ctx, store.Evaluation{
		SessionID:  a.session,
		FEN:        fen,
		Scores:     result.Scores,
		TotalLines: result.TotalLinesSeen,
	})
	if err != nil {
		slog.Warn("failed to store evaluation", "error", err)
	}
}
