package models

import (
	"fmt"
)

const (
	ComboMinElements = 3
	ComboMaxElements = 10
)

// Combo is an ordered routine of skill-variant executions owned by a
// player. Immutable while a match that references it is being settled.
type Combo struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PlayerID string `gorm:"index;not null" json:"player_id"`
	Name     string `json:"name"`

	// Must match the mode it is used in (static/dynamic).
	Type string `json:"type" gorm:"type:varchar(16);check:type IN ('static','dynamic')"`

	Elements []ComboElement `json:"elements" gorm:"foreignKey:ComboID;constraint:OnDelete:CASCADE"`

	Timestamps
}

// ComboElement is one step of a routine. Exactly one of HoldSeconds or
// Reps must be positive; Fingers counts contact points (1, 2 or 5).
type ComboElement struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ComboID   string `gorm:"index;not null" json:"combo_id"`
	Position  int    `json:"position" gorm:"not null"`
	VariantID string `gorm:"type:uuid;not null" json:"variant_id"`

	HoldSeconds float64 `json:"hold_seconds" gorm:"default:0"`
	Reps        int     `json:"reps" gorm:"default:0"`
	Fingers     int     `json:"fingers" gorm:"default:5;check:fingers IN (1,2,5)"`

	// Denormalized from the catalog at load time; not persisted.
	Variant *SkillVariant `json:"variant,omitempty" gorm:"-"`
}

// Validate enforces the routine-build invariants: 3-10 elements, exactly
// one of hold/reps positive per element, finger count in {1,2,5}.
func (c *Combo) Validate() error {
	if n := len(c.Elements); n < ComboMinElements || n > ComboMaxElements {
		return fmt.Errorf("combo must have %d-%d elements, got %d", ComboMinElements, ComboMaxElements, n)
	}
	for i, el := range c.Elements {
		hasHold := el.HoldSeconds > 0
		hasReps := el.Reps > 0
		if hasHold == hasReps {
			return fmt.Errorf("element %d: exactly one of hold_seconds or reps must be positive", i)
		}
		switch el.Fingers {
		case 1, 2, 5:
		default:
			return fmt.Errorf("element %d: fingers must be 1, 2 or 5, got %d", i, el.Fingers)
		}
	}
	return nil
}
