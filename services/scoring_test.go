package services

import (
	"testing"

	"combo-arena-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanFactorRange(t *testing.T) {
	assert.InDelta(t, 0.8, CleanFactorFor(0), 1e-9)
	assert.InDelta(t, 1.0, CleanFactorFor(500), 1e-9)
	assert.InDelta(t, 1.2, CleanFactorFor(1000), 1e-9)
	// Out-of-range inputs clamp instead of extrapolating.
	assert.InDelta(t, 0.8, CleanFactorFor(-50), 1e-9)
	assert.InDelta(t, 1.2, CleanFactorFor(5000), 1e-9)
}

func TestScoreComboFullEnergyHolds(t *testing.T) {
	v := testVariant("planche", 10, 0)
	elements := []models.ComboElement{
		holdElement(v, 5, 5),
		holdElement(v, 5, 5),
		holdElement(v, 5, 5),
	}

	score, err := ScoreCombo(elements, 1000)
	require.NoError(t, err)

	// 5s * 10pts * 1.0 fingers * 1.2 clean = 60 per element.
	assert.InDelta(t, 180, score.TotalPoints, 1e-9)
	assert.InDelta(t, 1.2, score.CleanFactor, 1e-9)
}

func TestScoreComboFingerFactors(t *testing.T) {
	v := testVariant("lever", 10, 0)
	score, err := ScoreCombo([]models.ComboElement{
		holdElement(v, 2, 5),
		holdElement(v, 2, 2),
		holdElement(v, 2, 1),
	}, 500) // clean factor exactly 1.0
	require.NoError(t, err)

	require.Len(t, score.Steps, 3)
	assert.InDelta(t, 20, score.Steps[0].Points, 1e-9)
	assert.InDelta(t, 24, score.Steps[1].Points, 1e-9)
	assert.InDelta(t, 30, score.Steps[2].Points, 1e-9)
	assert.InDelta(t, 74, score.TotalPoints, 1e-9)
}

func TestScoreComboRepsUsePointsPerRep(t *testing.T) {
	v := testVariant("muscle-up", 0, 8)
	score, err := ScoreCombo([]models.ComboElement{repElement(v, 4, 5)}, 500)
	require.NoError(t, err)

	assert.InDelta(t, 32, score.TotalPoints, 1e-9)
}

func TestScoreComboTraceRunsElementByElement(t *testing.T) {
	v := testVariant("iron-cross", 6, 0)
	score, err := ScoreCombo([]models.ComboElement{
		holdElement(v, 1, 5),
		holdElement(v, 2, 5),
	}, 500)
	require.NoError(t, err)

	require.Len(t, score.Steps, 2)
	assert.InDelta(t, 6, score.Steps[0].RunningTotal, 1e-9)
	assert.InDelta(t, 18, score.Steps[1].RunningTotal, 1e-9)
	assert.Equal(t, v.Name, score.Steps[0].Name)
	assert.InDelta(t, score.TotalPoints, score.Steps[1].RunningTotal, 1e-9)
}

func TestScoreComboDeterministic(t *testing.T) {
	v := testVariant("front-lever", 7.5, 0)
	elements := []models.ComboElement{
		holdElement(v, 3.5, 2),
		holdElement(v, 1.25, 1),
		holdElement(v, 6, 5),
	}

	first, err := ScoreCombo(elements, 777)
	require.NoError(t, err)
	second, err := ScoreCombo(elements, 777)
	require.NoError(t, err)

	assert.Equal(t, first.TotalPoints, second.TotalPoints)
	assert.Equal(t, first.Steps, second.Steps)
}

func TestScoreComboMissingVariantFails(t *testing.T) {
	_, err := ScoreCombo([]models.ComboElement{{VariantID: "ghost", HoldSeconds: 3, Fingers: 5}}, 500)
	assert.Error(t, err)
}

func TestComboEnergyCost(t *testing.T) {
	v := testVariant("press", 10, 8) // energy: 1/hold-second, 2/rep
	cost, err := ComboEnergyCost([]models.ComboElement{
		holdElement(v, 10, 5),
		repElement(v, 3, 5),
	})
	require.NoError(t, err)
	assert.InDelta(t, 16, cost, 1e-9)
}

func TestComboValidate(t *testing.T) {
	v := testVariant("handstand", 5, 0)

	tooShort := testCombo("c1", "p1", models.ModeStatic, holdElement(v, 1, 5), holdElement(v, 1, 5))
	assert.Error(t, tooShort.Validate())

	both := testCombo("c2", "p1", models.ModeStatic,
		holdElement(v, 1, 5), holdElement(v, 1, 5),
		models.ComboElement{VariantID: v.ID, HoldSeconds: 2, Reps: 3, Fingers: 5, Variant: v},
	)
	assert.Error(t, both.Validate())

	badFingers := testCombo("c3", "p1", models.ModeStatic,
		holdElement(v, 1, 5), holdElement(v, 1, 5), holdElement(v, 1, 3),
	)
	assert.Error(t, badFingers.Validate())

	valid := testCombo("c4", "p1", models.ModeStatic,
		holdElement(v, 1, 5), holdElement(v, 2, 2), holdElement(v, 3, 1),
	)
	assert.NoError(t, valid.Validate())
}
