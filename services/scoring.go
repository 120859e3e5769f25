package services

import (
	"fmt"

	"combo-arena-system/models"
)

// Clean factor: energy in [0,1000] maps linearly to a [0.8,1.2]
// multiplier on every element. Low energy degrades execution quality,
// full energy rewards it.
const (
	minCleanFactor = 0.8
	maxCleanFactor = 1.2
)

// ComboScore is the result of scoring one routine: the total and the
// per-element audit trail.
type ComboScore struct {
	TotalPoints float64
	CleanFactor float64
	Steps       []models.ScoringStep
}

// CleanFactorFor normalizes current energy into the execution-quality
// multiplier.
func CleanFactorFor(energy float64) float64 {
	if energy < 0 {
		energy = 0
	}
	if energy > models.MaxEnergy {
		energy = models.MaxEnergy
	}
	return minCleanFactor + (energy/models.MaxEnergy)*(maxCleanFactor-minCleanFactor)
}

func fingersFactor(fingers int) float64 {
	// Fewer contact points is harder.
	switch fingers {
	case 1:
		return 1.5
	case 2:
		return 1.2
	default:
		return 1.0
	}
}

// ScoreCombo computes the point total for a routine at the given energy
// level. Pure and deterministic: identical inputs always produce an
// identical total and trace. Elements must carry their catalog variant.
func ScoreCombo(elements []models.ComboElement, energy float64) (*ComboScore, error) {
	cleanFactor := CleanFactorFor(energy)

	score := &ComboScore{
		CleanFactor: cleanFactor,
		Steps:       make([]models.ScoringStep, 0, len(elements)),
	}

	for i, el := range elements {
		if el.Variant == nil {
			return nil, fmt.Errorf("element %d: variant %s not loaded", i, el.VariantID)
		}

		var base float64
		if el.Reps > 0 {
			base = el.Variant.PointsPerRep * float64(el.Reps)
		} else {
			base = el.Variant.PointsPerHoldSecond * el.HoldSeconds
		}

		withFingers := base * fingersFactor(el.Fingers)
		points := withFingers * cleanFactor
		score.TotalPoints += points

		score.Steps = append(score.Steps, models.ScoringStep{
			VariantID:         el.VariantID,
			Name:              el.Variant.Name,
			HoldSeconds:       el.HoldSeconds,
			Reps:              el.Reps,
			Fingers:           el.Fingers,
			BasePoints:        base,
			PointsWithFingers: withFingers,
			CleanFactor:       cleanFactor,
			Points:            points,
			RunningTotal:      score.TotalPoints,
		})
	}

	return score, nil
}

// ComboEnergyCost prices a routine from the catalog energy stats.
// Backs the cost-preview endpoint; matches themselves charge the flat
// ranked price (casual play is free).
func ComboEnergyCost(elements []models.ComboElement) (float64, error) {
	var total float64
	for i, el := range elements {
		if el.Variant == nil {
			return 0, fmt.Errorf("element %d: variant %s not loaded", i, el.VariantID)
		}
		if el.Reps > 0 {
			total += el.Variant.EnergyPerRep * float64(el.Reps)
		} else {
			total += el.Variant.EnergyPerHoldSecond * el.HoldSeconds
		}
	}
	return total, nil
}
