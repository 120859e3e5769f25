package models

// Notification kinds this service emits.
const (
	NotificationChallenge = "challenge"
	NotificationMatch     = "match"
)

// Notification is a persisted inbox entry for a player. Challenge
// notifications are deleted whenever their challenge reaches a terminal
// state, so the inbox never shows stale invites.
type Notification struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PlayerID     string `gorm:"index;not null" json:"player_id"`
	FromPlayerID string `gorm:"index" json:"from_player_id"`

	Kind    string `json:"kind" gorm:"type:varchar(16);not null"`
	Message string `json:"message"`

	ChallengeID *string `gorm:"type:uuid;index" json:"challenge_id,omitempty"`
	MatchID     *string `gorm:"type:uuid" json:"match_id,omitempty"`

	Read bool `gorm:"default:false" json:"read"`

	Timestamps
}
