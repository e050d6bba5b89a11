package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorer_CleanGroup(t *testing.T) {
	s := NewScorer(DefaultScoreWeights())

	score := s.Score([]RawRecord{
		rawRow("AAPL", 1, 100, 105, 98, 103),
		rawRow("AAPL", 2, 103, 108, 101, 107),
	})

	require.NotNil(t, score.Completeness)
	require.NotNil(t, score.Accuracy)
	require.NotNil(t, score.Consistency)
	assert.Nil(t, score.Timeliness, "timeliness is not computed at ingest time")

	assert.Equal(t, 1.0, *score.Completeness)
	assert.Equal(t, 1.0, *score.Accuracy)
	assert.Equal(t, 1.0, score.Overall)
	assert.Equal(t, LevelExcellent, score.Level)
}

func TestScorer_MissingPricesLowerCompleteness(t *testing.T) {
	s := NewScorer(DefaultScoreWeights())

	missing := rawRow("AAPL", 2, 0, 0, 0, 0)
	missing.Close = nil

	score := s.Score([]RawRecord{
		rawRow("AAPL", 1, 100, 105, 98, 103),
		missing,
		rawRow("AAPL", 3, 103, 108, 101, 107),
		rawRow("AAPL", 4, 107, 110, 104, 109),
	})

	assert.InDelta(t, 0.75, *score.Completeness, 1e-9)
	assert.Equal(t, 1.0, *score.Accuracy)

	// Overall is the mean of the three available components
	assert.InDelta(t, (0.75+1.0+1.0)/3, score.Overall, 1e-9)
}

func TestScorer_AnomaliesLowerAccuracy(t *testing.T) {
	s := NewScorer(DefaultScoreWeights())

	score := s.Score([]RawRecord{
		rawRow("AAPL", 1, 100, 105, 98, 103),
		rawRow("AAPL", 2, 120, 105, 98, 103), // open > high
	})

	assert.Equal(t, 1.0, *score.Completeness)
	assert.InDelta(t, 0.5, *score.Accuracy, 1e-9)
}

func TestScorer_EmptyGroup(t *testing.T) {
	s := NewScorer(DefaultScoreWeights())

	score := s.Score(nil)
	assert.Equal(t, 0.0, score.Overall)
	assert.Equal(t, LevelUnacceptable, score.Level)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, LevelExcellent, LevelFor(0.95))
	assert.Equal(t, LevelExcellent, LevelFor(0.90))
	assert.Equal(t, LevelGood, LevelFor(0.85))
	assert.Equal(t, LevelGood, LevelFor(0.80))
	assert.Equal(t, LevelFair, LevelFor(0.70))
	assert.Equal(t, LevelFair, LevelFor(0.60))
	assert.Equal(t, LevelPoor, LevelFor(0.50))
	assert.Equal(t, LevelPoor, LevelFor(0.40))
	assert.Equal(t, LevelUnacceptable, LevelFor(0.39))
}
