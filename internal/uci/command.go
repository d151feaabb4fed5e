package uci

import "fmt"

// Outbound protocol instructions.
const (
	CmdUCI         = "uci"
	CmdNewGame     = "ucinewgame"
	CmdPositionFEN = "position fen"
	CmdGo          = "go"
	CmdGoInfinite  = "go infinite"
	CmdStop        = "stop"
	CmdEval        = "eval"
	CmdQuit        = "quit"

	// RespUCIOK ends the option listing of the handshake.
	RespUCIOK = "uciok"
)

// CommandKind is the closed set of requests a caller may submit.
type CommandKind int

const (
	// SetPosition replaces the engine's current position.
	SetPosition CommandKind = iota + 1
	// StartAnalysis starts an open-ended search.
	StartAnalysis
	// StopAnalysis stops the search and consumes the bestmove reply.
	StopAnalysis
	// RequestEvaluation asks for a static evaluation dump.
	RequestEvaluation
)

func (k CommandKind) String() string {
	switch k {
	case SetPosition:
		return "SetPosition"
	case StartAnalysis:
		return "StartAnalysis"
	case StopAnalysis:
		return "StopAnalysis"
	case RequestEvaluation:
		return "RequestEvaluation"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is one queued request.
type Command struct {
	Kind CommandKind
	// FEN is set for SetPosition only.
	FEN string
	// ID correlates a RequestEvaluation with its published result.
	ID int64
}

// Instruction renders the line written to the engine's stdin.
// infinite selects "go infinite" for StartAnalysis.
func (c Command) Instruction(infinite bool) (string, error) {
	switch c.Kind {
	case SetPosition:
		if c.FEN == "" {
			return "", fmt.Errorf("SetPosition without FEN")
		}
		return CmdPositionFEN + " " + c.FEN, nil
	case StartAnalysis:
		if infinite {
			return CmdGoInfinite, nil
		}
		return CmdGo, nil
	case StopAnalysis:
		return CmdStop, nil
	case RequestEvaluation:
		return CmdEval, nil
	default:
		return "", fmt.Errorf("unknown command kind %d", int(c.Kind))
	}
}
