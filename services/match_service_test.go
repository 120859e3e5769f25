package services

import (
	"context"
	"testing"
	"time"

	"combo-arena-system/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settlementFixture wires a MatchService against fakes with two ranked-
// eligible players, alice holding the stronger routine.
func settlementFixture(t *testing.T) (*MatchService, *fakeStore, *fakeEmitter, clockwork.Clock) {
	t.Helper()

	store := newFakeStore()
	emitter := &fakeEmitter{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	strong := testVariant("full-planche", 10, 0)
	weak := testVariant("tuck-planche", 4, 0)

	store.combos["combo-alice"] = testCombo("combo-alice", "alice", models.ModeStatic,
		holdElement(strong, 5, 5), holdElement(strong, 5, 5), holdElement(strong, 5, 5))
	store.combos["combo-bob"] = testCombo("combo-bob", "bob", models.ModeStatic,
		holdElement(weak, 5, 5), holdElement(weak, 5, 5), holdElement(weak, 5, 5))

	alice := testPlayer("alice", 1000, strPtr("combo-alice"))
	bob := testPlayer("bob", 1000, strPtr("combo-bob"))
	store.players["alice"] = alice
	store.players["bob"] = bob

	svc := NewMatchService(store, store, store, emitter, clock)
	return svc, store, emitter, clock
}

func rankedParams() SettlementParams {
	return SettlementParams{
		PlayerAID:   "alice",
		PlayerBID:   "bob",
		Mode:        models.ModeStatic,
		MatchType:   models.MatchTypeRanked,
		EloSnapshot: &models.EloSnapshot{FromPlayer: 1000, ToPlayer: 1000},
	}
}

func TestSettleRankedWinUpdatesBothPlayers(t *testing.T) {
	svc, store, emitter, _ := settlementFixture(t)

	match, err := svc.Settle(context.Background(), rankedParams())
	require.NoError(t, err)

	require.NotNil(t, match.WinnerID)
	assert.Equal(t, "alice", *match.WinnerID)
	assert.Equal(t, "bob", *match.LoserID)

	alice := store.players["alice"]
	bob := store.players["bob"]
	assert.Equal(t, 1016, alice.RankingStatic.Elo)
	assert.Equal(t, 984, bob.RankingStatic.Elo)
	assert.Equal(t, models.TierSilver, alice.RankingStatic.Tier)
	assert.Equal(t, models.TierBronze, bob.RankingStatic.Tier)
	assert.Equal(t, 1, alice.RankingStatic.Wins)
	assert.Equal(t, 1, bob.RankingStatic.Losses)

	// Both paid the flat ranked price.
	assert.Equal(t, float64(models.MaxEnergy-RankedEnergyCost), alice.Energy.Current)
	assert.Equal(t, float64(models.MaxEnergy-RankedEnergyCost), bob.Energy.Current)
	assert.Equal(t, float64(2*RankedEnergyCost), match.TotalEnergySpent)

	assert.True(t, emitter.has("alice", "matchCompleted"))
	assert.True(t, emitter.has("bob", "matchCompleted"))
}

func TestSettleRankedRecordsTraceAndEloColumns(t *testing.T) {
	svc, _, _, _ := settlementFixture(t)

	match, err := svc.Settle(context.Background(), rankedParams())
	require.NoError(t, err)
	require.Len(t, match.PlayerData, 2)

	for _, pd := range match.PlayerData {
		require.NotNil(t, pd.EloBefore)
		require.NotNil(t, pd.EloAfter)
		assert.Equal(t, 1000, *pd.EloBefore)

		steps, err := pd.Trace()
		require.NoError(t, err)
		require.Len(t, steps, 3)
		assert.InDelta(t, pd.Points, steps[2].RunningTotal, 1e-9)
	}
}

func TestSettleDrawBetweenEqualRoutines(t *testing.T) {
	svc, store, _, _ := settlementFixture(t)
	// Give bob the same routine as alice.
	store.combos["combo-bob"] = testCombo("combo-bob", "bob", models.ModeStatic,
		store.combos["combo-alice"].Elements...)

	match, err := svc.Settle(context.Background(), rankedParams())
	require.NoError(t, err)

	assert.Nil(t, match.WinnerID)
	assert.Nil(t, match.LoserID)
	assert.Zero(t, match.PointsMargin)

	// Equal ratings drawing leaves both exactly where they were.
	assert.Equal(t, 1000, store.players["alice"].RankingStatic.Elo)
	assert.Equal(t, 1000, store.players["bob"].RankingStatic.Elo)
	assert.Equal(t, 1, store.players["alice"].RankingStatic.Draws)
	assert.Equal(t, 1, store.players["bob"].RankingStatic.Draws)
}

func TestSettleCasualTouchesNeitherRatingNorEnergy(t *testing.T) {
	svc, store, _, _ := settlementFixture(t)

	params := rankedParams()
	params.MatchType = models.MatchTypeCasual
	params.EloSnapshot = nil

	match, err := svc.Settle(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 1000, store.players["alice"].RankingStatic.Elo)
	assert.Equal(t, 0, store.players["alice"].RankingStatic.Wins)
	assert.Equal(t, float64(models.MaxEnergy), store.players["alice"].Energy.Current)
	assert.Zero(t, match.TotalEnergySpent)
	for _, pd := range match.PlayerData {
		assert.Nil(t, pd.EloBefore)
		assert.Nil(t, pd.EloAfter)
	}
	// The outcome itself is still recorded.
	require.NotNil(t, match.WinnerID)
	assert.Equal(t, "alice", *match.WinnerID)
}

func TestSettleRankedUsesSnapshotNotLiveRatings(t *testing.T) {
	svc, store, _, _ := settlementFixture(t)
	// Live ratings drifted after the snapshot was taken.
	store.players["alice"].RankingStatic.Elo = 1400
	store.players["bob"].RankingStatic.Elo = 900

	params := rankedParams() // snapshot still says 1000 vs 1000
	match, err := svc.Settle(context.Background(), params)
	require.NoError(t, err)

	// Update is computed from the snapshot: an even-odds win.
	assert.Equal(t, 1016, store.players["alice"].RankingStatic.Elo)
	assert.Equal(t, 984, store.players["bob"].RankingStatic.Elo)
	for _, pd := range match.PlayerData {
		assert.Equal(t, 1000, *pd.EloBefore)
	}
}

func TestSettleRankedRequiresSnapshot(t *testing.T) {
	svc, _, _, _ := settlementFixture(t)

	params := rankedParams()
	params.EloSnapshot = nil
	_, err := svc.Settle(context.Background(), params)

	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestSettleRankedInsufficientEnergy(t *testing.T) {
	svc, store, _, _ := settlementFixture(t)
	store.players["bob"].Energy.Current = RankedEnergyCost - 1

	_, err := svc.Settle(context.Background(), rankedParams())
	assert.ErrorIs(t, err, ErrInsufficientEnergy)

	// Nothing was persisted for either side.
	assert.Equal(t, float64(models.MaxEnergy), store.players["alice"].Energy.Current)
	assert.Empty(t, store.matches)
}

func TestSettleWrongModeCombo(t *testing.T) {
	svc, store, _, _ := settlementFixture(t)
	store.combos["combo-bob"].Type = models.ModeDynamic

	_, err := svc.Settle(context.Background(), rankedParams())

	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)
}

func TestSettlePersistenceFailureIsSettlementError(t *testing.T) {
	svc, store, _, _ := settlementFixture(t)
	store.failCreateMatch = true

	_, err := svc.Settle(context.Background(), rankedParams())

	var settlement *SettlementError
	assert.ErrorAs(t, err, &settlement)
}

func TestSettleRunsRegenBeforeEnergyCheck(t *testing.T) {
	svc, store, _, clock := settlementFixture(t)

	// Bob is short on energy but has banked regen time.
	past := clock.Now().Add(-3 * time.Hour)
	store.players["bob"].Energy.Current = 100
	store.players["bob"].Energy.LastUpdatedAt = &past

	_, err := svc.Settle(context.Background(), rankedParams())
	require.NoError(t, err)

	// 100 + 180min * 2.5 = 550, minus the ranked cost.
	assert.InDelta(t, 550-RankedEnergyCost, store.players["bob"].Energy.Current, 1e-9)
}
