package uci

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ScoreCount is the number of trailing scored rows read from an eval dump.
const ScoreCount = 3

// scoreField is the whitespace-separated column holding a row's score.
const scoreField = 2

// evalTerminator starts the summary line closing an eval dump.
const evalTerminator = "Final evaluation"

// ErrMalformedEvaluation is matched by every evaluation parse failure.
var ErrMalformedEvaluation = errors.New("malformed evaluation output")

// EvaluationResult is the parsed outcome of a static evaluation request.
type EvaluationResult struct {
	// TotalLinesSeen counts the lines consumed while draining the dump.
	TotalLinesSeen int
	// Scores are the last three scored rows, most recent row first.
	Scores [ScoreCount]float64
}

// MalformedEvaluationError describes why an eval dump could not be parsed.
type MalformedEvaluationError struct {
	Reason string
	Line   string
	Lines  int
}

func (e *MalformedEvaluationError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("%v: %s (line %q, %d lines)", ErrMalformedEvaluation, e.Reason, e.Line, e.Lines)
	}
	return fmt.Sprintf("%v: %s (%d lines)", ErrMalformedEvaluation, e.Reason, e.Lines)
}

// Is lets errors.Is(err, ErrMalformedEvaluation) match.
func (e *MalformedEvaluationError) Is(target error) bool {
	return target == ErrMalformedEvaluation
}

// ParseEvaluation extracts the fixed-shape result from an eval dump.
//
// The dump has no stable schema, so parsing is anchored on position from the
// end: the last line is the summary and is skipped, then the three rows
// before it each contribute their third field.
func ParseEvaluation(block string) (EvaluationResult, error) {
	lines := splitLines(block)
	res := EvaluationResult{TotalLinesSeen: len(lines)}

	if len(lines) < ScoreCount+1 {
		return EvaluationResult{}, &MalformedEvaluationError{
			Reason: fmt.Sprintf("need at least %d lines", ScoreCount+1),
			Lines:  len(lines),
		}
	}

	for i := 0; i < ScoreCount; i++ {
		line := lines[len(lines)-2-i]
		fields := strings.Fields(line)
		if len(fields) <= scoreField {
			return EvaluationResult{}, &MalformedEvaluationError{
				Reason: "too few fields",
				Line:   line,
				Lines:  len(lines),
			}
		}
		v, err := strconv.ParseFloat(fields[scoreField], 64)
		if err != nil {
			return EvaluationResult{}, &MalformedEvaluationError{
				Reason: fmt.Sprintf("non-numeric score %q", fields[scoreField]),
				Line:   line,
				Lines:  len(lines),
			}
		}
		res.Scores[i] = v
	}
	return res, nil
}

// IsEvaluationTerminator reports whether line closes an eval dump.
func IsEvaluationTerminator(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), evalTerminator)
}

// splitLines splits on '\n'. A trailing newline does not add an empty line.
func splitLines(block string) []string {
	if block == "" {
		return nil
	}
	block = strings.TrimSuffix(block, "\n")
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
