package services

import (
	"time"

	"combo-arena-system/models"
)

// 1000 energy over ~7 hours of regen.
const BaseRegenPerMinute = 2.5

// RankedEnergyCost is the flat price of one ranked match per player.
const RankedEnergyCost = 333

// ApplyEnergyRegen credits the energy earned since the last checkpoint.
// Must run before every read or consumption so the stored value is never
// stale. Only whole elapsed minutes are credited; the checkpoint advances
// by exactly the minutes consumed, so fractional leftover keeps accruing
// instead of being dropped.
func ApplyEnergyRegen(p *models.Player, now time.Time) {
	e := &p.Energy

	if e.LastUpdatedAt == nil {
		t := now
		e.LastUpdatedAt = &t
		return
	}

	if e.Current >= models.MaxEnergy {
		e.Current = models.MaxEnergy
		t := now
		e.LastUpdatedAt = &t
		return
	}

	elapsed := now.Sub(*e.LastUpdatedAt)
	minutes := int64(elapsed / time.Minute)
	if minutes <= 0 {
		return
	}

	multiplier := 1.0
	if e.BoostExpiresAt != nil && e.BoostExpiresAt.After(now) && e.RegenMultiplier > 0 {
		multiplier = e.RegenMultiplier
	}

	e.Current += float64(minutes) * BaseRegenPerMinute * multiplier
	if e.Current > models.MaxEnergy {
		e.Current = models.MaxEnergy
	}

	t := e.LastUpdatedAt.Add(time.Duration(minutes) * time.Minute)
	e.LastUpdatedAt = &t
}

// ConsumeEnergy deducts amount from the player's pool. Callers must run
// ApplyEnergyRegen first. Fails instead of clamping negative.
func ConsumeEnergy(p *models.Player, amount float64) error {
	if p.Energy.Current < amount {
		return ErrInsufficientEnergy
	}
	p.Energy.Current -= amount
	return nil
}
