package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kibitz/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Session  string
}

// SessionList is the output of "history" without --session.
type SessionList struct {
	Sessions []SessionOutput `json:"sessions"`
}

// SessionOutput is one session in command output.
type SessionOutput struct {
	ID        string `json:"id"`
	Engine    string `json:"engine"`
	StartFEN  string `json:"start_fen"`
	StartedAt string `json:"started_at"`
}

func (l SessionList) String() string {
	if len(l.Sessions) == 0 {
		return "No sessions."
	}
	var b strings.Builder
	for i, s := range l.Sessions {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s  %s  %s", s.StartedAt, s.ID, s.Engine)
	}
	return b.String()
}

// SessionDetail is the output of "history --session".
type SessionDetail struct {
	Session     string               `json:"session"`
	Evaluations []EvaluationOutput   `json:"evaluations"`
	Searches    []SearchResultOutput `json:"searches"`
}

// EvaluationOutput is one stored evaluation.
type EvaluationOutput struct {
	Seq        int64      `json:"seq"`
	FEN        string     `json:"fen"`
	Scores     [3]float64 `json:"scores"`
	TotalLines int        `json:"total_lines"`
}

// SearchResultOutput is one stored search result.
type SearchResultOutput struct {
	Seq      int64    `json:"seq"`
	FEN      string   `json:"fen"`
	Depth    int      `json:"depth"`
	ScoreCP  *int     `json:"score_cp,omitempty"`
	Mate     *int     `json:"mate,omitempty"`
	Nodes    int64    `json:"nodes"`
	PV       []string `json:"pv"`
	BestMove string   `json:"best_move"`
	Ponder   string   `json:"ponder,omitempty"`
}

func (d SessionDetail) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s", d.Session)
	for _, ev := range d.Evaluations {
		fmt.Fprintf(&b, "\neval   #%d  %.2f %.2f %.2f  (%d lines)  %s",
			ev.Seq, ev.Scores[0], ev.Scores[1], ev.Scores[2], ev.TotalLines, ev.FEN)
	}
	for _, r := range d.Searches {
		score := "-"
		switch {
		case r.Mate != nil:
			score = fmt.Sprintf("#%d", *r.Mate)
		case r.ScoreCP != nil:
			score = fmt.Sprintf("%+dcp", *r.ScoreCP)
		}
		fmt.Fprintf(&b, "\nsearch #%d  depth %d  %s  best %s  %s", r.Seq, r.Depth, score, r.BestMove, r.FEN)
	}
	return b.String()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored sessions and evaluations",
		Long: `List the sessions in a history database, or the evaluations and search
results of one session.

Example:
  kibitz history --db ./kibitz.db
  kibitz history --db ./kibitz.db --session 019a...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the history database (default: from config)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "show one session")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	settings, err := loadSettings(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load config", err)
	}
	dbPath := historyPath(opts.Database, settings)
	if dbPath == "" {
		return formatter.Fail(ExitCommandError, "no history database", fmt.Errorf("%w: set --db or history.path", errHistory))
	}
	// Reading must not create an empty database by accident.
	if _, err := os.Stat(dbPath); err != nil {
		return formatter.Fail(ExitCommandError, "database not found", fmt.Errorf("%w: %w", errHistory, err))
	}

	st, err := openHistory(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open database", err)
	}
	defer closeHistory(st)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Session == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return formatter.Fail(ExitFailure, "failed to list sessions", fmt.Errorf("%w: %w", errHistory, err))
		}
		out := SessionList{Sessions: []SessionOutput{}}
		for _, s := range sessions {
			out.Sessions = append(out.Sessions, SessionOutput{
				ID:        s.ID,
				Engine:    s.Engine,
				StartFEN:  s.StartFEN,
				StartedAt: s.StartedAt.Format(time.RFC3339),
			})
		}
		return formatter.Success(out)
	}

	detail, err := sessionDetail(ctx, st, opts.Session)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to read session", fmt.Errorf("%w: %w", errHistory, err))
	}
	return formatter.Success(detail)
}

func sessionDetail(ctx context.Context, st *store.Store, session string) (SessionDetail, error) {
	evals, err := st.ListEvaluations(ctx, session)
	if err != nil {
		return SessionDetail{}, err
	}
	results, err := st.ListSearchResults(ctx, session)
	if err != nil {
		return SessionDetail{}, err
	}

	d := SessionDetail{
		Session:     session,
		Evaluations: []EvaluationOutput{},
		Searches:    []SearchResultOutput{},
	}
	for _, ev := range evals {
		d.Evaluations = append(d.Evaluations, EvaluationOutput{
			Seq: ev.Seq, FEN: ev.FEN, Scores: ev.Scores, TotalLines: ev.TotalLines,
		})
	}
	for _, r := range results {
		d.Searches = append(d.Searches, SearchResultOutput{
			Seq: r.Seq, FEN: r.FEN, Depth: r.Depth, ScoreCP: r.ScoreCP, Mate: r.Mate,
			Nodes: r.Nodes, PV: r.PV, BestMove: r.BestMove, Ponder: r.Ponder,
		})
	}
	return d, nil
}
