package services

import (
	"context"
	"sync"
	"time"

	"combo-arena-system/models"
)

// In-memory store fakes. Each one is safe for use from timer goroutines
// because the challenge and matchmaking tests fire clock callbacks.

type fakeStore struct {
	mu            sync.Mutex
	players       map[string]*models.Player
	combos        map[string]*models.Combo
	challenges    map[string]*models.Challenge
	matches       map[string]*models.Match
	notifications []models.Notification

	matchSeq     int
	challengeSeq int

	failSaveChallenge bool
	failCreateMatch   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		players:    make(map[string]*models.Player),
		combos:     make(map[string]*models.Combo),
		challenges: make(map[string]*models.Challenge),
		matches:    make(map[string]*models.Match),
	}
}

func (f *fakeStore) FindPlayer(_ context.Context, id string) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) SavePlayer(_ context.Context, p *models.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.players[p.ID] = &cp
	return nil
}

func (f *fakeStore) ClaimPendingChallenge(_ context.Context, challengeID string, playerIDs ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range playerIDs {
		if p, ok := f.players[id]; ok && p.HasPendingChallenge {
			return false, nil
		}
	}
	for _, id := range playerIDs {
		if p, ok := f.players[id]; ok {
			cid := challengeID
			p.HasPendingChallenge = true
			p.PendingChallengeID = &cid
		}
	}
	return true, nil
}

func (f *fakeStore) SetPendingChallenge(_ context.Context, challengeID *string, playerIDs ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range playerIDs {
		p, ok := f.players[id]
		if !ok {
			continue
		}
		p.HasPendingChallenge = challengeID != nil
		p.PendingChallengeID = challengeID
	}
	return nil
}

func (f *fakeStore) Leaderboard(_ context.Context, mode string, limit, offset int) ([]models.Player, int64, error) {
	return nil, 0, nil
}

func (f *fakeStore) FindCombo(_ context.Context, id string) (*models.Combo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.combos[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) FindChallenge(_ context.Context, id string) (*models.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) CreateChallenge(_ context.Context, c *models.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == "" {
		f.challengeSeq++
		c.ID = "challenge-" + string(rune('a'+f.challengeSeq-1))
	}
	cp := *c
	f.challenges[c.ID] = &cp
	return nil
}

func (f *fakeStore) SaveChallenge(_ context.Context, c *models.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaveChallenge {
		return ErrNotFound
	}
	cp := *c
	f.challenges[c.ID] = &cp
	return nil
}

func (f *fakeStore) HasPendingChallenge(_ context.Context, playerIDs ...string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.challenges {
		if c.Status != models.ChallengePending {
			continue
		}
		for _, id := range playerIDs {
			if c.FromPlayerID == id || c.ToPlayerID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) StalePendingChallenges(_ context.Context, now time.Time) ([]models.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stale []models.Challenge
	for _, c := range f.challenges {
		if c.Status == models.ChallengePending && c.ExpiresAt.Before(now) {
			stale = append(stale, *c)
		}
	}
	return stale, nil
}

func (f *fakeStore) CreateMatch(_ context.Context, m *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateMatch {
		return ErrNotFound
	}
	if m.ID == "" {
		f.matchSeq++
		m.ID = "match-" + string(rune('a'+f.matchSeq-1))
	}
	cp := *m
	f.matches[m.ID] = &cp
	return nil
}

func (f *fakeStore) FindMatch(_ context.Context, id string) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) MatchesForPlayer(_ context.Context, playerID, matchType string, limit, offset int) ([]models.Match, error) {
	return nil, nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeStore) DeleteChallengeNotifications(_ context.Context, challengeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.notifications[:0]
	for _, n := range f.notifications {
		if n.ChallengeID == nil || *n.ChallengeID != challengeID {
			kept = append(kept, n)
		}
	}
	f.notifications = kept
	return nil
}

// recordedEvent is one emission captured by the fake emitter.
type recordedEvent struct {
	PlayerID string
	Event    string
	Data     any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *fakeEmitter) EmitToPlayer(playerID, event string, data any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{PlayerID: playerID, Event: event, Data: data})
}

// eventsFor returns the event names sent to one player, in order.
func (e *fakeEmitter) eventsFor(playerID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var names []string
	for _, ev := range e.events {
		if ev.PlayerID == playerID {
			names = append(names, ev.Event)
		}
	}
	return names
}

func (e *fakeEmitter) has(playerID, event string) bool {
	for _, name := range e.eventsFor(playerID) {
		if name == event {
			return true
		}
	}
	return false
}

func (e *fakeEmitter) lastData(playerID, event string) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	var data any
	for _, ev := range e.events {
		if ev.PlayerID == playerID && ev.Event == event {
			data = ev.Data
		}
	}
	return data
}

// Test fixture helpers.

func testVariant(id string, pointsPerSecond, pointsPerRep float64) *models.SkillVariant {
	return &models.SkillVariant{
		ID:                  id,
		SkillID:             "skill-" + id,
		VariantKey:          models.VariantKeyFor(id),
		Name:                id,
		PointsPerHoldSecond: pointsPerSecond,
		PointsPerRep:        pointsPerRep,
		EnergyPerHoldSecond: 1,
		EnergyPerRep:        2,
	}
}

func holdElement(variant *models.SkillVariant, seconds float64, fingers int) models.ComboElement {
	return models.ComboElement{
		VariantID:   variant.ID,
		HoldSeconds: seconds,
		Fingers:     fingers,
		Variant:     variant,
	}
}

func repElement(variant *models.SkillVariant, reps, fingers int) models.ComboElement {
	return models.ComboElement{
		VariantID: variant.ID,
		Reps:      reps,
		Fingers:   fingers,
		Variant:   variant,
	}
}

func testCombo(id, playerID, mode string, elements ...models.ComboElement) *models.Combo {
	return &models.Combo{
		ID:       id,
		PlayerID: playerID,
		Name:     "routine " + id,
		Type:     mode,
		Elements: elements,
	}
}

// testPlayer builds a ranked-eligible player with full energy and a
// favorite static combo reference.
func testPlayer(id string, elo int, favoriteStatic *string) *models.Player {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.Player{
		ID:              id,
		ExternalUserID:  "ext-" + id,
		Username:        id,
		RankingStatic:   models.Ranking{Elo: elo, Tier: TierFor(elo)},
		RankingDynamic:  models.Ranking{Elo: models.StartingElo, Tier: models.TierSilver},
		Energy:          models.Energy{Current: models.MaxEnergy, LastUpdatedAt: &now, RegenMultiplier: 1},
		RankingUnlocked: true,
		FavoriteStaticComboID: favoriteStatic,
	}
}

func strPtr(s string) *string { return &s }
