package services

import (
	"math"

	"combo-arena-system/models"
)

const KFactor = 32

// Elo scores per result.
const (
	ScoreWin  = 1.0
	ScoreDraw = 0.5
	ScoreLoss = 0.0
)

// ExpectedScore is the standard Elo logistic expectation for a player
// rated eloA against an opponent rated eloB. ExpectedScore(a,b) +
// ExpectedScore(b,a) == 1 for any pair.
func ExpectedScore(eloA, eloB int) float64 {
	return 1 / (1 + math.Pow(10, float64(eloB-eloA)/400))
}

// NextElo applies one rated result to a pre-match rating. score must be
// ScoreWin, ScoreDraw or ScoreLoss.
func NextElo(elo int, score, expected float64) int {
	return int(math.Round(float64(elo) + KFactor*(score-expected)))
}

// TierFor buckets a rating into its display tier. Always recomputed from
// the rating, never stored independently.
func TierFor(elo int) string {
	switch {
	case elo < 1000:
		return models.TierBronze
	case elo < 1500:
		return models.TierSilver
	case elo < 2000:
		return models.TierGold
	default:
		return models.TierDiamond
	}
}

// ScoreForResult maps a match result string to its Elo score.
func ScoreForResult(result string) float64 {
	switch result {
	case models.ResultWin:
		return ScoreWin
	case models.ResultLoss:
		return ScoreLoss
	default:
		return ScoreDraw
	}
}
