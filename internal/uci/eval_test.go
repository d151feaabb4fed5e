package uci

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvaluation_TailRowsReversed(t *testing.T) {
	block := strings.Join([]string{
		" NNUE derived piece values:",
		"+-------+-------+",
		"... 0 0.10 0",
		"... 0 0.20 0",
		"... 0 0.30 0",
		"Final evaluation: none",
	}, "\n") + "\n"

	res, err := ParseEvaluation(block)
	require.NoError(t, err)

	assert.Equal(t, 6, res.TotalLinesSeen)
	assert.Equal(t, [3]float64{0.30, 0.20, 0.10}, res.Scores)
}

func TestParseEvaluation_NoTrailingNewline(t *testing.T) {
	res, err := ParseEvaluation("a b 1.5\na b -2\na b +0.25\nFinal evaluation +0.08")
	require.NoError(t, err)
	assert.Equal(t, 4, res.TotalLinesSeen)
	assert.Equal(t, [3]float64{0.25, -2, 1.5}, res.Scores)
}

func TestParseEvaluation_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		block string
	}{
		{"empty", ""},
		{"too few lines", "a b 1\na b 2\nFinal evaluation\n"},
		{"too few fields", "a b 1\na b\na b 3\nFinal evaluation\n"},
		{"non numeric", "a b 1\na b two\na b 3\nFinal evaluation\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvaluation(tt.block)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEvaluation)

			var me *MalformedEvaluationError
			assert.ErrorAs(t, err, &me)
		})
	}
}

func TestIsEvaluationTerminator(t *testing.T) {
	assert.True(t, IsEvaluationTerminator("Final evaluation       +0.08 (white side)"))
	assert.True(t, IsEvaluationTerminator("  Final evaluation: none (in check)"))
	assert.False(t, IsEvaluationTerminator("Classical evaluation   n/a"))
}
