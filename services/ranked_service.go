package services

import (
	"context"
	"log"
	"time"

	"combo-arena-system/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// RankedService orchestrates the ranked flow: eligibility checks before
// enqueue, pairing, the mutual-acceptance window, and the handoff into
// settlement once both players confirmed.
type RankedService struct {
	Matchmaker *Matchmaker
	Players    PlayerStore
	Combos     ComboStore
	Matches    *MatchService
	Emitter    Emitter
	Clock      clockwork.Clock

	AcceptTimeout time.Duration
}

func NewRankedService(mm *Matchmaker, players PlayerStore, combos ComboStore, matches *MatchService, emitter Emitter, clock clockwork.Clock) *RankedService {
	return &RankedService{
		Matchmaker:    mm,
		Players:       players,
		Combos:        combos,
		Matches:       matches,
		Emitter:       emitter,
		Clock:         clock,
		AcceptTimeout: DefaultAcceptTimeout,
	}
}

// Search validates eligibility and either pairs the player immediately
// or parks them in the queue. Returns the session token identifying this
// search so a later cancel cannot race a newer one.
func (s *RankedService) Search(ctx context.Context, playerID, mode string) (string, error) {
	if !models.ValidMode(mode) {
		return "", Validationf("invalid mode %q", mode)
	}
	if s.Matchmaker.IsLocked(playerID) {
		return "", ErrPlayerLocked
	}

	player, err := s.Players.FindPlayer(ctx, playerID)
	if err != nil {
		return "", err
	}
	if !player.RankingUnlocked {
		return "", Validationf("ranked play is locked for this player")
	}

	ApplyEnergyRegen(player, s.Clock.Now())
	if player.Energy.Current < RankedEnergyCost {
		return "", ErrInsufficientEnergy
	}
	if err := s.Players.SavePlayer(ctx, player); err != nil {
		return "", err
	}

	comboID := player.FavoriteComboID(mode)
	if comboID == nil {
		return "", Validationf("no favorite combo set for %s", mode)
	}
	combo, err := s.Combos.FindCombo(ctx, *comboID)
	if err != nil {
		return "", err
	}
	if combo.Type != mode {
		return "", Validationf("favorite combo does not match mode %s", mode)
	}

	entry := QueueEntry{
		PlayerID:     playerID,
		SessionToken: uuid.NewString(),
		Elo:          player.Ranking(mode).Elo,
		ComboID:      combo.ID,
	}

	s.Matchmaker.Lock(playerID)
	opponent, err := s.Matchmaker.EnqueueOrPair(mode, entry)
	if err != nil {
		s.Matchmaker.Unlock(playerID)
		return "", err
	}

	if opponent == nil {
		log.Printf("🕒 [RANKED] %s queued for %s (elo %d)", playerID, mode, entry.Elo)
		return entry.SessionToken, nil
	}

	pm := s.Matchmaker.CreatePendingMatch(mode, entry.PlayerID, opponent.PlayerID)
	log.Printf("⚔️ [RANKED] match found: %s vs %s (%s)", entry.PlayerID, opponent.PlayerID, pm.MatchToken)

	for _, pair := range [][2]string{
		{entry.PlayerID, opponent.PlayerID},
		{opponent.PlayerID, entry.PlayerID},
	} {
		s.Emitter.EmitToPlayer(pair[0], "rankedFound", map[string]any{
			"opponentId": pair[1],
			"matchToken": pm.MatchToken,
			"mode":       mode,
		})
		s.Emitter.EmitToPlayer(pair[0], "rankedReadyCheck", map[string]any{
			"matchToken": pm.MatchToken,
			"timeoutMs":  s.AcceptTimeout.Milliseconds(),
		})
	}

	s.Matchmaker.StartAcceptCheck(pm.MatchToken, pm.Players[:], s.AcceptTimeout, func(reason string, players []string) {
		for _, p := range players {
			s.Emitter.EmitToPlayer(p, "rankedCancelled", map[string]any{"reason": reason})
		}
	})

	return entry.SessionToken, nil
}

// Accept records one player's confirmation. The final acceptance of an
// accept check triggers settlement; anything referencing an already
// resolved token is a silent no-op.
func (s *RankedService) Accept(ctx context.Context, playerID, matchToken string) error {
	pm, ok := s.Matchmaker.PendingMatchFor(matchToken)
	if !ok {
		return nil
	}
	if pm.Players[0] != playerID && pm.Players[1] != playerID {
		return nil
	}

	ready, ok := s.Matchmaker.ConfirmAccept(matchToken, playerID)
	if !ok || !ready {
		return nil
	}

	playerA, err := s.Players.FindPlayer(ctx, pm.Players[0])
	if err != nil {
		s.abortPendingMatch(pm, err)
		return err
	}
	playerB, err := s.Players.FindPlayer(ctx, pm.Players[1])
	if err != nil {
		s.abortPendingMatch(pm, err)
		return err
	}

	match, err := s.Matches.Settle(ctx, SettlementParams{
		PlayerAID: pm.Players[0],
		PlayerBID: pm.Players[1],
		Mode:      pm.Mode,
		MatchType: models.MatchTypeRanked,
		EloSnapshot: &models.EloSnapshot{
			FromPlayer: playerA.Ranking(pm.Mode).Elo,
			ToPlayer:   playerB.Ranking(pm.Mode).Elo,
		},
	})
	if err != nil {
		s.abortPendingMatch(pm, err)
		return err
	}

	for _, p := range pm.Players {
		s.Emitter.EmitToPlayer(p, "rankedStarted", map[string]any{
			"matchId": match.ID,
			"mode":    pm.Mode,
		})
		s.Matchmaker.Unlock(p)
	}
	s.Matchmaker.RemovePendingMatch(pm.MatchToken)
	return nil
}

// abortPendingMatch unwinds a pending match whose settlement failed:
// both players unlock and receive a generic cancellation. The cause is
// logged, never forwarded.
func (s *RankedService) abortPendingMatch(pm *PendingMatch, cause error) {
	log.Printf("❌ [RANKED] settlement for %s failed: %v", pm.MatchToken, cause)
	for _, p := range pm.Players {
		s.Emitter.EmitToPlayer(p, "rankedCancelled", map[string]any{"reason": CancelReasonError})
		s.Matchmaker.Unlock(p)
	}
	s.Matchmaker.RemovePendingMatch(pm.MatchToken)
}

// CancelSearch withdraws a parked search. The session token guards
// against a stale cancel removing a newer entry, and the lock clears
// only when a live entry actually came out of the queue: a cancel that
// removed nothing (stale token, or the player already moved into an
// accept check) must not unlock a player another flow still owns.
func (s *RankedService) CancelSearch(playerID, mode, sessionToken string) {
	if !s.Matchmaker.Dequeue(mode, playerID, sessionToken) {
		return
	}
	s.Matchmaker.Unlock(playerID)
	log.Printf("🚫 [RANKED] %s left the %s queue", playerID, mode)
}

// Disconnect runs full matchmaking cleanup for a dropped connection.
func (s *RankedService) Disconnect(playerID string) {
	s.Matchmaker.DropPlayer(playerID)
}
