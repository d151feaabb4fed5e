package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ListEvaluations returns the evaluations of a session in seq order.
// Returns an empty slice (not nil) if the session has none.
func (s *Store) ListEvaluations(ctx context.Context, sessionID string) ([]Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, fen, score_1, score_2, score_3, total_lines
		FROM evaluations
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	evals := []Evaluation{}
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return evals, nil
}

// LatestEvaluation returns the most recent evaluation of fen in any
// session. found is false when the position was never evaluated.
func (s *Store) LatestEvaluation(ctx context.Context, fen string) (ev Evaluation, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT e.session_id, e.seq, e.fen, e.score_1, e.score_2, e.score_3, e.total_lines
		FROM evaluations e
		JOIN sessions s ON e.session_id = s.id
		WHERE e.fen = ?
		ORDER BY s.started_at DESC, e.seq DESC
		LIMIT 1
	`, fen)

	ev, err = scanEvaluation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Evaluation{}, false, nil
	}
	if err != nil {
		return Evaluation{}, false, err
	}
	return ev, true, nil
}

// ListSearchResults returns the search results of a session in seq order.
func (s *Store) ListSearchResults(ctx context.Context, sessionID string) ([]SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, seq, fen, depth, score_cp, mate, nodes, pv, best_move, ponder
		FROM search_results
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query search results: %w", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		var scoreCP, mate sql.NullInt64
		var pvJSON string
		if err := rows.Scan(&r.SessionID, &r.Seq, &r.FEN, &r.Depth, &scoreCP, &mate, &r.Nodes, &pvJSON, &r.BestMove, &r.Ponder); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.ScoreCP = intPtr(scoreCP)
		r.Mate = intPtr(mate)
		if r.PV, err = unmarshalPV(pvJSON); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scanner) (Evaluation, error) {
	var ev Evaluation
	err := row.Scan(&ev.SessionID, &ev.Seq, &ev.FEN, &ev.Scores[0], &ev.Scores[1], &ev.Scores[2], &ev.TotalLines)
	if errors.Is(err, sql.ErrNoRows) {
		return Evaluation{}, err
	}
	if err != nil {
		return Evaluation{}, fmt.Errorf("scan evaluation: %w", err)
	}
	return ev, nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
