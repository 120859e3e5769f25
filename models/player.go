package models

import (
	"time"
)

// Match modes supported by the arena. "static" combos are hold-based
// (planches, levers), "dynamic" combos are rep-based.
const (
	ModeStatic  = "static"
	ModeDynamic = "dynamic"
)

// Rating tiers derived from Elo.
const (
	TierBronze  = "Bronze"
	TierSilver  = "Silver"
	TierGold    = "Gold"
	TierDiamond = "Diamond"
)

const (
	StartingElo = 1000
	MaxEnergy   = 1000
)

// Ranking holds a player's competitive record for one mode.
type Ranking struct {
	Elo    int    `json:"elo" gorm:"default:1000"`
	Tier   string `json:"tier" gorm:"type:varchar(16);default:'Bronze'"`
	Wins   int    `json:"wins" gorm:"default:0"`
	Losses int    `json:"losses" gorm:"default:0"`
	Draws  int    `json:"draws" gorm:"default:0"`
}

// Energy is the time-regenerating resource that gates ranked play.
// Current regenerates lazily: callers must run the regen pass before
// reading or consuming (see services.ApplyEnergyRegen).
type Energy struct {
	Current         float64    `json:"current" gorm:"default:1000"`
	LastUpdatedAt   *time.Time `json:"last_updated_at"`
	RegenMultiplier float64    `json:"regen_multiplier" gorm:"default:1"`
	BoostExpiresAt  *time.Time `json:"boost_expires_at"`
}

// Player is the local snapshot of a profile-service user, plus the
// competitive state this service owns (rankings, energy, challenge flag).
// Identity fields are populated by the profile sync worker; rating and
// energy fields are mutated here during settlement.
type Player struct {
	ID             string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string  `gorm:"index;not null" json:"username"`
	AvatarURL      *string `json:"avatar_url,omitempty"`

	RankingStatic  Ranking `gorm:"embedded;embeddedPrefix:ranking_static_" json:"ranking_static"`
	RankingDynamic Ranking `gorm:"embedded;embeddedPrefix:ranking_dynamic_" json:"ranking_dynamic"`

	Energy Energy `gorm:"embedded;embeddedPrefix:energy_" json:"energy"`

	// One favorite combo per mode; ranked search requires one for the mode.
	FavoriteStaticComboID  *string `gorm:"type:uuid" json:"favorite_static_combo_id,omitempty"`
	FavoriteDynamicComboID *string `gorm:"type:uuid" json:"favorite_dynamic_combo_id,omitempty"`

	HasPendingChallenge bool    `gorm:"default:false" json:"has_pending_challenge"`
	PendingChallengeID  *string `gorm:"type:uuid" json:"pending_challenge_id,omitempty"`

	RankingUnlocked bool `gorm:"default:true" json:"ranking_unlocked"`

	Timestamps
}

// ValidMode reports whether mode names a supported game mode.
func ValidMode(mode string) bool {
	return mode == ModeStatic || mode == ModeDynamic
}

// Ranking returns the record for the given mode. Callers must validate
// the mode first; unknown modes fall back to static.
func (p *Player) Ranking(mode string) *Ranking {
	if mode == ModeDynamic {
		return &p.RankingDynamic
	}
	return &p.RankingStatic
}

// FavoriteComboID returns the favorite combo reference for a mode, or nil.
func (p *Player) FavoriteComboID(mode string) *string {
	if mode == ModeDynamic {
		return p.FavoriteDynamicComboID
	}
	return p.FavoriteStaticComboID
}
