package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"combo-arena-system/models"

	"github.com/jonboulle/clockwork"
)

// Challenge acceptance windows. Rematches get a shorter window because
// both players already have context.
const (
	CasualChallengeWindow  = 10 * time.Second
	RankedChallengeWindow  = 30 * time.Second
	RematchChallengeWindow = 15 * time.Second
)

// ErrNotAuthorized rejects a transition attempted by the wrong party
// (only the addressee may respond, only the requester may cancel).
var ErrNotAuthorized = errors.New("not authorized for this challenge")

// ExpiryWindow returns the acceptance deadline for a challenge flavor.
func ExpiryWindow(matchType string, rematch bool) time.Duration {
	if rematch {
		return RematchChallengeWindow
	}
	if matchType == models.MatchTypeRanked {
		return RankedChallengeWindow
	}
	return CasualChallengeWindow
}

// ChallengeService drives the direct-invite state machine:
// pending -> accepted -> completed, or pending -> rejected / expired /
// cancelled. Challenges are persisted; their expiry timers are not, so a
// gocron sweep backs the in-process timers after a restart.
type ChallengeService struct {
	Challenges    ChallengeStore
	Players       PlayerStore
	Notifications NotificationStore
	Matches       *MatchService
	Emitter       Emitter
	Clock         clockwork.Clock

	mu     sync.Mutex
	timers map[string]clockwork.Timer
}

func NewChallengeService(challenges ChallengeStore, players PlayerStore, notifications NotificationStore, matches *MatchService, emitter Emitter, clock clockwork.Clock) *ChallengeService {
	return &ChallengeService{
		Challenges:    challenges,
		Players:       players,
		Notifications: notifications,
		Matches:       matches,
		Emitter:       emitter,
		Clock:         clock,
		timers:        make(map[string]clockwork.Timer),
	}
}

// Create opens a challenge from one player to another. Either party
// already holding a pending challenge is a conflict: a player may have
// at most one non-terminal challenge, sent or received, at a time.
func (s *ChallengeService) Create(ctx context.Context, fromID, toID, mode, matchType string, rematchOf *string) (*models.Challenge, error) {
	if fromID == toID {
		return nil, Validationf("cannot challenge yourself")
	}
	if !models.ValidMode(mode) {
		return nil, Validationf("invalid mode %q", mode)
	}
	if matchType != models.MatchTypeCasual && matchType != models.MatchTypeRanked {
		return nil, Validationf("invalid match type %q", matchType)
	}

	busy, err := s.Challenges.HasPendingChallenge(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, Conflictf("a pending challenge already exists for one of the players")
	}

	window := ExpiryWindow(matchType, rematchOf != nil)
	challenge := &models.Challenge{
		FromPlayerID: fromID,
		ToPlayerID:   toID,
		Mode:         mode,
		MatchType:    matchType,
		Status:       models.ChallengePending,
		ExpiresAt:    s.Clock.Now().Add(window),
		RematchOfID:  rematchOf,
	}
	if err := s.Challenges.CreateChallenge(ctx, challenge); err != nil {
		return nil, err
	}

	// The flag claim is the real mutual exclusion: the row check above
	// is advisory and two concurrent creates can both pass it. Exactly
	// one of them wins the claim; the loser voids its row.
	claimed, err := s.Players.ClaimPendingChallenge(ctx, challenge.ID, fromID, toID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		challenge.Status = models.ChallengeCancelled
		if saveErr := s.Challenges.SaveChallenge(ctx, challenge); saveErr != nil {
			log.Printf("⚠️ [CHALLENGE] failed to void %s after lost claim: %v", challenge.ID, saveErr)
		}
		return nil, Conflictf("a pending challenge already exists for one of the players")
	}

	notification := &models.Notification{
		PlayerID:     toID,
		FromPlayerID: fromID,
		Kind:         models.NotificationChallenge,
		Message:      "You have been challenged to a duel",
		ChallengeID:  &challenge.ID,
	}
	if err := s.Notifications.CreateNotification(ctx, notification); err != nil {
		log.Printf("⚠️ [CHALLENGE] failed to create notification for %s: %v", toID, err)
	}

	s.Emitter.EmitToPlayer(toID, "challengeCreated", map[string]any{
		"challengeId":  challenge.ID,
		"fromPlayerId": fromID,
		"mode":         mode,
		"matchType":    matchType,
		"expiresAt":    challenge.ExpiresAt,
		"notification": notification,
	})
	s.syncPlayers(ctx, fromID, toID)

	s.ScheduleExpiry(challenge)

	log.Printf("🤺 [CHALLENGE] %s challenged %s (%s %s, expires in %s)", fromID, toID, matchType, mode, window)
	return challenge, nil
}

// Respond accepts or rejects a pending challenge. Only the addressee may
// respond. Accepting a ranked challenge snapshots both ratings at this
// instant; live ratings may drift before settlement completes.
func (s *ChallengeService) Respond(ctx context.Context, challengeID, playerID string, accepted bool) (*models.Challenge, *models.Match, error) {
	challenge, err := s.Challenges.FindChallenge(ctx, challengeID)
	if err != nil {
		return nil, nil, err
	}
	if challenge.Status != models.ChallengePending {
		return nil, nil, ErrNotFound
	}
	if challenge.ToPlayerID != playerID {
		return nil, nil, ErrNotAuthorized
	}

	s.stopTimer(challengeID)

	if !accepted {
		challenge.Status = models.ChallengeRejected
		if err := s.Challenges.SaveChallenge(ctx, challenge); err != nil {
			return nil, nil, err
		}
		s.cleanup(ctx, challenge)
		s.Emitter.EmitToPlayer(challenge.FromPlayerID, "challengeResponded", map[string]any{
			"challengeId": challenge.ID,
			"accepted":    false,
		})
		return challenge, nil, nil
	}

	if challenge.MatchType == models.MatchTypeRanked {
		snapshot, err := s.snapshotRatings(ctx, challenge)
		if err != nil {
			return nil, nil, err
		}
		challenge.EloSnapshot = snapshot
	}

	// Two-step transition: accepted first, completed only once a match
	// exists. Settlement may fail and must not leave the challenge
	// silently accepted with no match behind it.
	challenge.Status = models.ChallengeAccepted
	if err := s.Challenges.SaveChallenge(ctx, challenge); err != nil {
		return nil, nil, err
	}

	match, err := s.Matches.Settle(ctx, SettlementParams{
		PlayerAID:   challenge.FromPlayerID,
		PlayerBID:   challenge.ToPlayerID,
		Mode:        challenge.Mode,
		MatchType:   challenge.MatchType,
		EloSnapshot: challenge.EloSnapshot,
	})
	if err != nil {
		log.Printf("❌ [CHALLENGE] settlement failed for %s: %v", challenge.ID, err)
		challenge.Status = models.ChallengeCancelled
		if saveErr := s.Challenges.SaveChallenge(ctx, challenge); saveErr != nil {
			log.Printf("❌ [CHALLENGE] failed to cancel %s after settlement error: %v", challenge.ID, saveErr)
		}
		s.cleanup(ctx, challenge)
		s.Emitter.EmitToPlayer(challenge.FromPlayerID, "challengeCancelled", map[string]any{
			"challengeId": challenge.ID,
			"reason":      CancelReasonError,
		})
		s.Emitter.EmitToPlayer(challenge.ToPlayerID, "challengeCancelled", map[string]any{
			"challengeId": challenge.ID,
			"reason":      CancelReasonError,
		})
		return nil, nil, err
	}

	challenge.MatchID = &match.ID
	challenge.Status = models.ChallengeCompleted
	if err := s.Challenges.SaveChallenge(ctx, challenge); err != nil {
		return nil, nil, err
	}

	s.cleanup(ctx, challenge)
	s.Emitter.EmitToPlayer(challenge.FromPlayerID, "challengeResponded", map[string]any{
		"challengeId": challenge.ID,
		"accepted":    true,
		"matchId":     match.ID,
	})

	return challenge, match, nil
}

// Cancel withdraws a pending challenge. Only the requester may cancel,
// and only while the challenge is still pending.
func (s *ChallengeService) Cancel(ctx context.Context, challengeID, playerID string) (*models.Challenge, error) {
	challenge, err := s.Challenges.FindChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Status != models.ChallengePending {
		return nil, ErrNotFound
	}
	if challenge.FromPlayerID != playerID {
		return nil, ErrNotAuthorized
	}

	s.stopTimer(challengeID)

	challenge.Status = models.ChallengeCancelled
	if err := s.Challenges.SaveChallenge(ctx, challenge); err != nil {
		return nil, err
	}

	s.cleanup(ctx, challenge)
	s.Emitter.EmitToPlayer(challenge.ToPlayerID, "challengeCancelled", map[string]any{
		"challengeId": challenge.ID,
	})

	return challenge, nil
}

// Expire resolves a deadline hit. Challenges that already left pending
// (a response raced the timer) are left alone.
func (s *ChallengeService) Expire(ctx context.Context, challengeID string) error {
	challenge, err := s.Challenges.FindChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if challenge.Status != models.ChallengePending {
		return nil
	}

	s.stopTimer(challengeID)

	challenge.Status = models.ChallengeExpired
	if err := s.Challenges.SaveChallenge(ctx, challenge); err != nil {
		return err
	}

	s.cleanup(ctx, challenge)
	s.Emitter.EmitToPlayer(challenge.FromPlayerID, "challengeExpired", map[string]any{
		"challengeId": challenge.ID,
	})
	s.Emitter.EmitToPlayer(challenge.ToPlayerID, "challengeExpired", map[string]any{
		"challengeId": challenge.ID,
	})

	log.Printf("⌛ [CHALLENGE] %s expired", challenge.ID)
	return nil
}

// DropPlayer treats a disconnect like an explicit cancel of any pending
// challenge the player is part of.
func (s *ChallengeService) DropPlayer(ctx context.Context, playerID string) {
	player, err := s.Players.FindPlayer(ctx, playerID)
	if err != nil || player.PendingChallengeID == nil {
		return
	}

	challenge, err := s.Challenges.FindChallenge(ctx, *player.PendingChallengeID)
	if err != nil || challenge.Status != models.ChallengePending {
		return
	}

	s.stopTimer(challenge.ID)

	challenge.Status = models.ChallengeCancelled
	if err := s.Challenges.SaveChallenge(ctx, challenge); err != nil {
		log.Printf("❌ [CHALLENGE] disconnect cleanup failed for %s: %v", challenge.ID, err)
		return
	}

	s.cleanup(ctx, challenge)
	other := challenge.FromPlayerID
	if other == playerID {
		other = challenge.ToPlayerID
	}
	s.Emitter.EmitToPlayer(other, "challengeCancelled", map[string]any{
		"challengeId": challenge.ID,
		"reason":      CancelReasonDisconnect,
	})
}

// ScheduleExpiry arms the in-process deadline timer for a pending
// challenge. Also used at boot to re-arm timers for challenges that
// survived a restart with time left on the clock.
func (s *ChallengeService) ScheduleExpiry(challenge *models.Challenge) {
	remaining := challenge.ExpiresAt.Sub(s.Clock.Now())
	if remaining < 0 {
		remaining = 0
	}

	id := challenge.ID
	timer := s.Clock.AfterFunc(remaining, func() {
		if err := s.Expire(context.Background(), id); err != nil {
			log.Printf("❌ [CHALLENGE] expiry of %s failed: %v", id, err)
		}
	})

	s.mu.Lock()
	if old, ok := s.timers[id]; ok {
		old.Stop()
	}
	s.timers[id] = timer
	s.mu.Unlock()
}

func (s *ChallengeService) stopTimer(challengeID string) {
	s.mu.Lock()
	if timer, ok := s.timers[challengeID]; ok {
		timer.Stop()
		delete(s.timers, challengeID)
	}
	s.mu.Unlock()
}

// cleanup runs the synchronous side effects every terminal transition
// requires: derived notifications deleted, pending flags cleared on both
// players, both sides told their player state changed.
func (s *ChallengeService) cleanup(ctx context.Context, challenge *models.Challenge) {
	if err := s.Notifications.DeleteChallengeNotifications(ctx, challenge.ID); err != nil {
		log.Printf("⚠️ [CHALLENGE] notification cleanup failed for %s: %v", challenge.ID, err)
	}
	if err := s.Players.SetPendingChallenge(ctx, nil, challenge.FromPlayerID, challenge.ToPlayerID); err != nil {
		log.Printf("⚠️ [CHALLENGE] pending flag cleanup failed for %s: %v", challenge.ID, err)
	}
	s.syncPlayers(ctx, challenge.FromPlayerID, challenge.ToPlayerID)
}

// syncPlayers pushes fresh player snapshots over the live channel.
func (s *ChallengeService) syncPlayers(ctx context.Context, playerIDs ...string) {
	for _, id := range playerIDs {
		player, err := s.Players.FindPlayer(ctx, id)
		if err != nil {
			continue
		}
		s.Emitter.EmitToPlayer(id, "playerUpdated", map[string]any{"player": player})
	}
}

func (s *ChallengeService) snapshotRatings(ctx context.Context, challenge *models.Challenge) (*models.EloSnapshot, error) {
	from, err := s.Players.FindPlayer(ctx, challenge.FromPlayerID)
	if err != nil {
		return nil, err
	}
	to, err := s.Players.FindPlayer(ctx, challenge.ToPlayerID)
	if err != nil {
		return nil, err
	}
	return &models.EloSnapshot{
		FromPlayer: from.Ranking(challenge.Mode).Elo,
		ToPlayer:   to.Ranking(challenge.Mode).Elo,
	}, nil
}
