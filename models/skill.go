package models

import (
	"github.com/gosimple/slug"
)

// SkillVariant is one scoring-relevant entry of the skill catalog
// (e.g. "full planche", "one-arm pull-up"). The catalog itself is
// administered by an external subsystem; this service reads the stats
// to score and price combos.
type SkillVariant struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SkillID    string `gorm:"index;not null" json:"skill_id"`
	VariantKey string `gorm:"uniqueIndex;not null" json:"variant_key"`
	Name       string `gorm:"not null" json:"name"`

	// static variants are hold-based, dynamic variants are rep-based
	Type string `json:"type" gorm:"type:varchar(16);check:type IN ('static','dynamic')"`

	PointsPerHoldSecond float64 `json:"points_per_hold_second" gorm:"default:0"`
	PointsPerRep        float64 `json:"points_per_rep" gorm:"default:0"`
	EnergyPerHoldSecond float64 `json:"energy_per_hold_second" gorm:"default:0"`
	EnergyPerRep        float64 `json:"energy_per_rep" gorm:"default:0"`

	Timestamps
}

// VariantKeyFor derives the stable catalog key for a variant name,
// e.g. "Full Planche (90°)" -> "full-planche-90".
func VariantKeyFor(name string) string {
	return slug.Make(name)
}
