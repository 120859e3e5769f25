package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Match results per player.
const (
	ResultWin  = "win"
	ResultLoss = "loss"
	ResultDraw = "draw"
)

// ScoringStep is one audited line of the combo score computation.
type ScoringStep struct {
	VariantID         string  `json:"variant_id"`
	Name              string  `json:"name"`
	HoldSeconds       float64 `json:"hold_seconds"`
	Reps              int     `json:"reps"`
	Fingers           int     `json:"fingers"`
	BasePoints        float64 `json:"base_points"`
	PointsWithFingers float64 `json:"points_with_fingers"`
	CleanFactor       float64 `json:"clean_factor"`
	Points            float64 `json:"points"`
	RunningTotal      float64 `json:"running_total"`
}

// MatchPlayerData is one side's outcome inside a match record.
type MatchPlayerData struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MatchID string `gorm:"index;not null" json:"match_id"`

	PlayerID string `gorm:"index;not null" json:"player_id"`
	ComboID  string `gorm:"type:uuid;not null" json:"combo_id"`

	Points      float64 `json:"points"`
	EnergySpent float64 `json:"energy_spent" gorm:"default:0"`
	Result      string  `json:"result" gorm:"type:varchar(8);check:result IN ('win','loss','draw')"`

	// nil for casual matches
	EloBefore *int `json:"elo_before,omitempty"`
	EloAfter  *int `json:"elo_after,omitempty"`

	ScoringTrace datatypes.JSON `json:"scoring_trace" gorm:"type:jsonb"`
}

// Trace decodes the persisted scoring steps.
func (d *MatchPlayerData) Trace() ([]ScoringStep, error) {
	var steps []ScoringStep
	if len(d.ScoringTrace) == 0 {
		return steps, nil
	}
	err := json.Unmarshal(d.ScoringTrace, &steps)
	return steps, err
}

// Match is the immutable audit record of a settled duel. Created once by
// match settlement; never updated afterward.
type Match struct {
	ID string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`

	PlayerAID string `gorm:"index;not null" json:"player_a_id"`
	PlayerBID string `gorm:"index;not null" json:"player_b_id"`

	PlayerData []MatchPlayerData `json:"player_data" gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`

	// nil on a draw
	WinnerID *string `gorm:"type:uuid" json:"winner_id,omitempty"`
	LoserID  *string `gorm:"type:uuid" json:"loser_id,omitempty"`

	Mode      string `json:"mode" gorm:"type:varchar(16);not null"`
	MatchType string `json:"match_type" gorm:"type:varchar(16);not null;check:match_type IN ('casual','ranked')"`

	PointsMargin     float64 `json:"points_margin"`
	TotalEnergySpent float64 `json:"total_energy_spent" gorm:"default:0"`

	Timestamps
}
