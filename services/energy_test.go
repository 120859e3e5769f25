package services

import (
	"testing"
	"time"

	"combo-arena-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func energyAt(current float64, last time.Time) models.Player {
	return models.Player{
		Energy: models.Energy{Current: current, LastUpdatedAt: &last, RegenMultiplier: 1},
	}
}

func TestRegenWholeMinutesOnly(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := energyAt(100, start)

	ApplyEnergyRegen(&p, start.Add(4*time.Minute+59*time.Second))

	assert.Equal(t, 100+4*BaseRegenPerMinute, p.Energy.Current)
	// Checkpoint advanced by exactly the consumed minutes, keeping the
	// 59s remainder accruing.
	assert.Equal(t, start.Add(4*time.Minute), *p.Energy.LastUpdatedAt)
}

func TestRegenFractionalLeftoverAccrues(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := energyAt(100, start)

	ApplyEnergyRegen(&p, start.Add(90*time.Second))
	assert.Equal(t, 100+BaseRegenPerMinute, p.Energy.Current)

	// Another 30s completes the second minute.
	ApplyEnergyRegen(&p, start.Add(2*time.Minute))
	assert.Equal(t, 100+2*BaseRegenPerMinute, p.Energy.Current)
}

func TestRegenUnderAMinuteIsNoop(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := energyAt(100, start)

	ApplyEnergyRegen(&p, start.Add(59*time.Second))

	assert.Equal(t, 100.0, p.Energy.Current)
	assert.Equal(t, start, *p.Energy.LastUpdatedAt)
}

func TestRegenClampsAtMax(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := energyAt(999, start)

	ApplyEnergyRegen(&p, start.Add(time.Hour))

	assert.Equal(t, float64(models.MaxEnergy), p.Energy.Current)
}

func TestRegenAtMaxAdvancesCheckpoint(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := energyAt(models.MaxEnergy, start)

	now := start.Add(3 * time.Hour)
	ApplyEnergyRegen(&p, now)

	assert.Equal(t, float64(models.MaxEnergy), p.Energy.Current)
	// A full pool must not bank regen time.
	assert.Equal(t, now, *p.Energy.LastUpdatedAt)
}

func TestRegenNilCheckpointInitializes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := models.Player{Energy: models.Energy{Current: 500}}

	ApplyEnergyRegen(&p, now)

	assert.Equal(t, 500.0, p.Energy.Current)
	require.NotNil(t, p.Energy.LastUpdatedAt)
	assert.Equal(t, now, *p.Energy.LastUpdatedAt)
}

func TestRegenBoostMultiplier(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	boostEnd := start.Add(time.Hour)
	p := energyAt(100, start)
	p.Energy.RegenMultiplier = 2
	p.Energy.BoostExpiresAt = &boostEnd

	ApplyEnergyRegen(&p, start.Add(10*time.Minute))

	assert.Equal(t, 100+10*BaseRegenPerMinute*2, p.Energy.Current)
}

func TestRegenExpiredBoostFallsBackToBaseRate(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	boostEnd := start.Add(-time.Minute)
	p := energyAt(100, start)
	p.Energy.RegenMultiplier = 2
	p.Energy.BoostExpiresAt = &boostEnd

	ApplyEnergyRegen(&p, start.Add(10*time.Minute))

	assert.Equal(t, 100+10*BaseRegenPerMinute, p.Energy.Current)
}

func TestConsumeEnergy(t *testing.T) {
	p := models.Player{Energy: models.Energy{Current: 400}}

	require.NoError(t, ConsumeEnergy(&p, RankedEnergyCost))
	assert.Equal(t, 400-float64(RankedEnergyCost), p.Energy.Current)

	err := ConsumeEnergy(&p, RankedEnergyCost)
	assert.ErrorIs(t, err, ErrInsufficientEnergy)
	// Failed consumption leaves the pool untouched.
	assert.Equal(t, 400-float64(RankedEnergyCost), p.Energy.Current)
}
