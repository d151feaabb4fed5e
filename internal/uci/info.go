package uci

import (
	"strconv"
	"strings"
)

// Info is the subset of an "info" line the front-end displays.
// Nil pointers mean the field was absent from the line.
type Info struct {
	Depth   *int
	MultiPV *int
	ScoreCP *int
	Mate    *int
	Nodes   *int64
	PV      []string
}

// ParseInfo parses an engine "info ..." line. ok is false for other lines.
func ParseInfo(line string) (info Info, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return Info{}, false
	}

	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					info.Depth = &n
				}
				i++
			}
		case "multipv":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					info.MultiPV = &n
				}
				i++
			}
		case "nodes":
			if i+1 < len(fields) {
				if n, err := strconv.ParseInt(fields[i+1], 10, 64); err == nil {
					info.Nodes = &n
				}
				i++
			}
		case "score":
			if i+2 < len(fields) {
				if v, err := strconv.Atoi(fields[i+2]); err == nil {
					switch fields[i+1] {
					case "cp":
						info.ScoreCP = &v
					case "mate":
						info.Mate = &v
					}
				}
				i += 2
			}
		case "pv":
			info.PV = append([]string(nil), fields[i+1:]...)
			return info, true
		}
	}
	return info, true
}

// ParseBestMove parses "bestmove <move> [ponder <move>]".
func ParseBestMove(line string) (best, ponder string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "bestmove" {
		return "", "", false
	}
	best = fields[1]
	for i := 2; i+1 < len(fields); i++ {
		if fields[i] == "ponder" {
			ponder = fields[i+1]
			break
		}
	}
	return best, ponder, true
}

// IsBestMove reports whether line is a bestmove response.
func IsBestMove(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "bestmove")
}

// IsInfo reports whether line is an info line.
func IsInfo(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "info")
}
