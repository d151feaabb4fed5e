package engine

import (
	"sync"

	"github.com/roach88/kibitz/internal/uci"
)

// Analysis is a snapshot of the search output seen since the last start.
type Analysis struct {
	Searching bool
	Depth     int
	// ScoreCP and Mate are nil until the engine reports them.
	ScoreCP  *int
	Mate     *int
	Nodes    int64
	PV       []string
	BestMove string
	Ponder   string
}

// analysisBox is written by the run loop and read by anyone.
type analysisBox struct {
	mu sync.RWMutex
	a  Analysis
}

func (b *analysisBox) start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.a = Analysis{Searching: true}
}

func (b *analysisBox) apply(info uci.Info) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if info.Depth != nil {
		b.a.Depth = *info.Depth
	}
	// Secondary lines of a multipv search do not replace the main line.
	if info.MultiPV != nil && *info.MultiPV > 1 {
		return
	}
	if info.ScoreCP != nil || info.Mate != nil {
		b.a.ScoreCP = copyInt(info.ScoreCP)
		b.a.Mate = copyInt(info.Mate)
	}
	if info.Nodes != nil {
		b.a.Nodes = *info.Nodes
	}
	if len(info.PV) > 0 {
		b.a.PV = append([]string(nil), info.PV...)
	}
}

func (b *analysisBox) finish(best, ponder string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.a.Searching = false
	b.a.BestMove = best
	b.a.Ponder = ponder
}

// abandon clears the searching flag when no bestmove arrived.
func (b *analysisBox) abandon() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.a.Searching = false
}

func (b *analysisBox) snapshot() Analysis {
	b.mu.RLock()
	defer b.mu.RUnlock()
	a := b.a
	a.ScoreCP = copyInt(b.a.ScoreCP)
	a.Mate = copyInt(b.a.Mate)
	a.PV = append([]string(nil), b.a.PV...)
	return a
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
