package services

import (
	"context"
	"errors"
	"time"

	"combo-arena-system/models"

	"gorm.io/gorm"
)

// The competition core talks to persistence through these narrow
// contracts so settlement and the challenge state machine can be tested
// without a database. GormStore is the production implementation.

type PlayerStore interface {
	FindPlayer(ctx context.Context, id string) (*models.Player, error)
	SavePlayer(ctx context.Context, p *models.Player) error
	// ClaimPendingChallenge atomically flags all given players as busy
	// with the challenge. false with no error means at least one of them
	// was already flagged; nothing is left half-claimed.
	ClaimPendingChallenge(ctx context.Context, challengeID string, playerIDs ...string) (bool, error)
	SetPendingChallenge(ctx context.Context, challengeID *string, playerIDs ...string) error
	Leaderboard(ctx context.Context, mode string, limit, offset int) ([]models.Player, int64, error)
}

type ComboStore interface {
	// FindCombo loads the combo with its elements and their catalog
	// variants attached.
	FindCombo(ctx context.Context, id string) (*models.Combo, error)
}

type ChallengeStore interface {
	FindChallenge(ctx context.Context, id string) (*models.Challenge, error)
	CreateChallenge(ctx context.Context, c *models.Challenge) error
	SaveChallenge(ctx context.Context, c *models.Challenge) error
	HasPendingChallenge(ctx context.Context, playerIDs ...string) (bool, error)
	StalePendingChallenges(ctx context.Context, now time.Time) ([]models.Challenge, error)
}

type MatchStore interface {
	CreateMatch(ctx context.Context, m *models.Match) error
	FindMatch(ctx context.Context, id string) (*models.Match, error)
	MatchesForPlayer(ctx context.Context, playerID, matchType string, limit, offset int) ([]models.Match, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	DeleteChallengeNotifications(ctx context.Context, challengeID string) error
}

// Emitter pushes realtime events to a player's live connections. The
// websocket hub implements it; tests use a recording fake.
type Emitter interface {
	EmitToPlayer(playerID, event string, data any)
}

// GormStore backs every store contract with the service database.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) FindPlayer(ctx context.Context, id string) (*models.Player, error) {
	var p models.Player
	if err := s.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) SavePlayer(ctx context.Context, p *models.Player) error {
	return s.DB.WithContext(ctx).Save(p).Error
}

// errClaimLost aborts the claim transaction so a partial flag update
// rolls back instead of leaving one player claimed.
var errClaimLost = errors.New("pending challenge claim lost")

func (s *GormStore) ClaimPendingChallenge(ctx context.Context, challengeID string, playerIDs ...string) (bool, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Player{}).
			Where("id IN ? AND has_pending_challenge = ?", playerIDs, false).
			Updates(map[string]interface{}{
				"has_pending_challenge": true,
				"pending_challenge_id":  challengeID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(playerIDs)) {
			return errClaimLost
		}
		return nil
	})
	if errors.Is(err, errClaimLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GormStore) SetPendingChallenge(ctx context.Context, challengeID *string, playerIDs ...string) error {
	return s.DB.WithContext(ctx).Model(&models.Player{}).
		Where("id IN ?", playerIDs).
		Updates(map[string]interface{}{
			"has_pending_challenge": challengeID != nil,
			"pending_challenge_id":  challengeID,
		}).Error
}

func (s *GormStore) Leaderboard(ctx context.Context, mode string, limit, offset int) ([]models.Player, int64, error) {
	eloColumn := "ranking_static_elo"
	if mode == models.ModeDynamic {
		eloColumn = "ranking_dynamic_elo"
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Player{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var players []models.Player
	err := s.DB.WithContext(ctx).
		Order(eloColumn + " DESC, id ASC"). // stable tie-break by identity
		Limit(limit).Offset(offset).
		Find(&players).Error
	return players, total, err
}

func (s *GormStore) FindCombo(ctx context.Context, id string) (*models.Combo, error) {
	var combo models.Combo
	err := s.DB.WithContext(ctx).
		Preload("Elements", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&combo, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.attachVariants(ctx, combo.Elements); err != nil {
		return nil, err
	}
	return &combo, nil
}

// attachVariants batch-loads catalog variants onto combo elements.
func (s *GormStore) attachVariants(ctx context.Context, elements []models.ComboElement) error {
	if len(elements) == 0 {
		return nil
	}

	ids := make([]string, 0, len(elements))
	for _, el := range elements {
		ids = append(ids, el.VariantID)
	}

	var variants []models.SkillVariant
	if err := s.DB.WithContext(ctx).Find(&variants, "id IN ?", ids).Error; err != nil {
		return err
	}

	byID := make(map[string]*models.SkillVariant, len(variants))
	for i := range variants {
		byID[variants[i].ID] = &variants[i]
	}

	for i := range elements {
		v, ok := byID[elements[i].VariantID]
		if !ok {
			return Validationf("skill variant %s no longer exists in the catalog", elements[i].VariantID)
		}
		elements[i].Variant = v
	}
	return nil
}

func (s *GormStore) FindChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	if err := s.DB.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) CreateChallenge(ctx context.Context, c *models.Challenge) error {
	return s.DB.WithContext(ctx).Create(c).Error
}

func (s *GormStore) SaveChallenge(ctx context.Context, c *models.Challenge) error {
	return s.DB.WithContext(ctx).Save(c).Error
}

func (s *GormStore) HasPendingChallenge(ctx context.Context, playerIDs ...string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Challenge{}).
		Where("status = ?", models.ChallengePending).
		Where("from_player_id IN ? OR to_player_id IN ?", playerIDs, playerIDs).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) StalePendingChallenges(ctx context.Context, now time.Time) ([]models.Challenge, error) {
	var stale []models.Challenge
	err := s.DB.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.ChallengePending, now).
		Find(&stale).Error
	return stale, err
}

func (s *GormStore) CreateMatch(ctx context.Context, m *models.Match) error {
	return s.DB.WithContext(ctx).Create(m).Error
}

func (s *GormStore) FindMatch(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	err := s.DB.WithContext(ctx).
		Preload("PlayerData").
		First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *GormStore) MatchesForPlayer(ctx context.Context, playerID, matchType string, limit, offset int) ([]models.Match, error) {
	q := s.DB.WithContext(ctx).
		Preload("PlayerData").
		Where("player_a_id = ? OR player_b_id = ?", playerID, playerID)
	if matchType != "" {
		q = q.Where("match_type = ?", matchType)
	}

	var matches []models.Match
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&matches).Error
	return matches, err
}

func (s *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.DB.WithContext(ctx).Create(n).Error
}

func (s *GormStore) DeleteChallengeNotifications(ctx context.Context, challengeID string) error {
	return s.DB.WithContext(ctx).
		Where("challenge_id = ?", challengeID).
		Delete(&models.Notification{}).Error
}
