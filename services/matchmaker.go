package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Matchmaking pairs players whose ratings differ by at most this much.
const EloRange = 100

// DefaultAcceptTimeout is the window both players have to confirm a
// found match.
const DefaultAcceptTimeout = 10 * time.Second

// Accept-check cancellation reasons sent to participants.
const (
	CancelReasonTimeout    = "timeout"
	CancelReasonDisconnect = "disconnect"
	CancelReasonError      = "error"
)

// QueueEntry is one waiting player in a mode's ranked queue. The session
// token disambiguates re-entry races: a stale cancel or disconnect
// carrying an old token cannot remove a newer entry.
type QueueEntry struct {
	PlayerID     string
	SessionToken string
	Elo          int
	ComboID      string
}

// PendingMatch is a freshly paired duo awaiting mutual acceptance.
type PendingMatch struct {
	MatchToken string
	Mode       string
	Players    [2]string
}

type acceptCheck struct {
	players     []string
	accepted    map[string]struct{}
	timer       clockwork.Timer
	onCancelled func(reason string, players []string)
}

// Matchmaker owns every piece of transient matchmaking state: per-mode
// FIFO queues, the locked-player set, pending matches and live accept
// checks. All of it lives in process memory and is guarded by one mutex;
// a restart drops it (persisted challenges are handled elsewhere).
// Timers come from an injected clock so timeout paths are testable.
type Matchmaker struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	queues  map[string][]QueueEntry
	locked  map[string]struct{}
	pending map[string]*PendingMatch
	checks  map[string]*acceptCheck
}

func NewMatchmaker(clock clockwork.Clock) *Matchmaker {
	return &Matchmaker{
		clock:   clock,
		queues:  make(map[string][]QueueEntry),
		locked:  make(map[string]struct{}),
		pending: make(map[string]*PendingMatch),
		checks:  make(map[string]*acceptCheck),
	}
}

// EnqueueOrPair matches the caller against the first queued entry of the
// same mode within EloRange, removing that opponent atomically. With no
// eligible opponent the caller is appended and nil is returned. The scan
// is first-eligible-by-arrival, not best-fit: queue depth stays small
// enough that O(n) beats optimal pairing.
func (m *Matchmaker) EnqueueOrPair(mode string, entry QueueEntry) (*QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.queues[mode]
	for _, e := range queue {
		if e.PlayerID == entry.PlayerID {
			return nil, Conflictf("player %s already queued for %s", entry.PlayerID, mode)
		}
	}

	for i, e := range queue {
		if abs(e.Elo-entry.Elo) <= EloRange {
			opponent := e
			m.queues[mode] = append(queue[:i:i], queue[i+1:]...)
			return &opponent, nil
		}
	}

	m.queues[mode] = append(queue, entry)
	return nil, nil
}

// Dequeue removes a specific queue entry and reports whether it did.
// No-op when the session token does not match the live entry, so a
// stale cancel never evicts a newer search from the same player.
func (m *Matchmaker) Dequeue(mode, playerID, sessionToken string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.queues[mode]
	for i, e := range queue {
		if e.PlayerID == playerID && e.SessionToken == sessionToken {
			m.queues[mode] = append(queue[:i:i], queue[i+1:]...)
			return true
		}
	}
	return false
}

// QueueDepth reports the number of waiting players in a mode.
func (m *Matchmaker) QueueDepth(mode string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[mode])
}

// Lock marks a player busy (searching or in an accept check). Locked
// players get new search/accept requests rejected, not queued.
func (m *Matchmaker) Lock(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked[playerID] = struct{}{}
}

func (m *Matchmaker) Unlock(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locked, playerID)
}

func (m *Matchmaker) IsLocked(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locked[playerID]
	return ok
}

// CreatePendingMatch registers a paired duo and returns its match token.
func (m *Matchmaker) CreatePendingMatch(mode, playerA, playerB string) *PendingMatch {
	pm := &PendingMatch{
		MatchToken: fmt.Sprintf("%s_%s", mode, uuid.NewString()),
		Mode:       mode,
		Players:    [2]string{playerA, playerB},
	}

	m.mu.Lock()
	m.pending[pm.MatchToken] = pm
	m.mu.Unlock()

	return pm
}

// PendingMatchFor looks up a live pending match by token.
func (m *Matchmaker) PendingMatchFor(matchToken string) (*PendingMatch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.pending[matchToken]
	return pm, ok
}

// RemovePendingMatch drops a pending match after settlement resolved it.
func (m *Matchmaker) RemovePendingMatch(matchToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, matchToken)
}

// StartAcceptCheck locks both players and arms the acceptance deadline.
// When the deadline fires first, the check cancels: participants are
// unlocked and onCancelled runs with reason timeout.
func (m *Matchmaker) StartAcceptCheck(matchToken string, players []string, timeout time.Duration, onCancelled func(reason string, players []string)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	check := &acceptCheck{
		players:     players,
		accepted:    make(map[string]struct{}),
		onCancelled: onCancelled,
	}
	for _, p := range players {
		m.locked[p] = struct{}{}
	}
	check.timer = m.clock.AfterFunc(timeout, func() {
		m.cancelCheck(matchToken, CancelReasonTimeout)
	})
	m.checks[matchToken] = check
}

// ConfirmAccept records one player's acceptance. Idempotent per player.
// ready is true only on the final acceptance, which also disarms the
// deadline and retires the check so it cannot fire or double-settle.
// A token that no longer has a live check is a no-op (ok == false).
func (m *Matchmaker) ConfirmAccept(matchToken, playerID string) (ready, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	check, exists := m.checks[matchToken]
	if !exists {
		return false, false
	}

	participant := false
	for _, p := range check.players {
		if p == playerID {
			participant = true
			break
		}
	}
	if !participant {
		return false, false
	}

	check.accepted[playerID] = struct{}{}
	if len(check.accepted) < len(check.players) {
		return false, true
	}

	check.timer.Stop()
	delete(m.checks, matchToken)
	return true, true
}

// CancelAcceptCheck resolves a live check as cancelled: players unlock,
// the pending match disappears, and onCancelled runs with the reason.
// Already-resolved tokens are ignored.
func (m *Matchmaker) CancelAcceptCheck(matchToken, reason string) {
	m.cancelCheck(matchToken, reason)
}

func (m *Matchmaker) cancelCheck(matchToken, reason string) {
	m.mu.Lock()
	check, ok := m.checks[matchToken]
	if !ok {
		m.mu.Unlock()
		return
	}
	check.timer.Stop()
	delete(m.checks, matchToken)
	delete(m.pending, matchToken)
	for _, p := range check.players {
		delete(m.locked, p)
	}
	onCancelled := check.onCancelled
	players := check.players
	m.mu.Unlock()

	log.Printf("🚫 [MATCHMAKER] accept check %s cancelled (%s)", matchToken, reason)
	if onCancelled != nil {
		onCancelled(reason, players)
	}
}

// DropPlayer runs the full disconnect cleanup for one player: every
// queue entry goes away, any accept check they sit in cancels as a
// disconnect (which unlocks the other participant too), and their own
// lock clears.
func (m *Matchmaker) DropPlayer(playerID string) {
	m.mu.Lock()
	for mode, queue := range m.queues {
		kept := queue[:0]
		for _, e := range queue {
			if e.PlayerID != playerID {
				kept = append(kept, e)
			}
		}
		m.queues[mode] = kept
	}

	var affected []string
	inPending := false
	for token, pm := range m.pending {
		if pm.Players[0] == playerID || pm.Players[1] == playerID {
			inPending = true
			affected = append(affected, token)
		}
	}
	// A pending match whose accept check already completed is settling;
	// that flow owns the lock and releases it when it resolves. Clearing
	// it here would let a quick reconnect re-enter the queue mid-settle.
	if !inPending {
		delete(m.locked, playerID)
	}
	m.mu.Unlock()

	for _, token := range affected {
		m.cancelCheck(token, CancelReasonDisconnect)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
