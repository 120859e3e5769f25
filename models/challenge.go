package models

import (
	"time"
)

// Challenge lifecycle. pending is the only non-terminal state besides
// accepted; accepted is transitional while settlement runs.
const (
	ChallengePending   = "pending"
	ChallengeAccepted  = "accepted"
	ChallengeRejected  = "rejected"
	ChallengeExpired   = "expired"
	ChallengeCancelled = "cancelled"
	ChallengeCompleted = "completed"
)

const (
	MatchTypeCasual = "casual"
	MatchTypeRanked = "ranked"
)

// EloSnapshot freezes both participants' ratings at accept time so a
// delayed settlement never double-counts rating drift.
type EloSnapshot struct {
	FromPlayer int `json:"from_player"`
	ToPlayer   int `json:"to_player"`
}

// Challenge is a direct invite from one player to another. It is the one
// durable piece of coordination state: it survives restarts and backs the
// "pending challenge" UI, while all matchmaking state stays in memory.
type Challenge struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	FromPlayerID string `gorm:"index;not null" json:"from_player_id"`
	ToPlayerID   string `gorm:"index;not null" json:"to_player_id"`

	Mode      string `json:"mode" gorm:"type:varchar(16);not null;check:mode IN ('static','dynamic')"`
	MatchType string `json:"match_type" gorm:"type:varchar(16);default:'casual';check:match_type IN ('casual','ranked')"`

	Status string `json:"status" gorm:"type:varchar(16);index;default:'pending'"`

	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`

	RematchOfID *string `gorm:"type:uuid" json:"rematch_of_id,omitempty"`

	// Only set for ranked challenges, captured at accept.
	EloSnapshot *EloSnapshot `gorm:"embedded;embeddedPrefix:elo_snapshot_" json:"elo_snapshot,omitempty"`

	MatchID *string `gorm:"type:uuid" json:"match_id,omitempty"`

	Timestamps
}

// Terminal reports whether the challenge can no longer transition.
func (c *Challenge) Terminal() bool {
	switch c.Status {
	case ChallengeRejected, ChallengeExpired, ChallengeCancelled, ChallengeCompleted:
		return true
	}
	return false
}
