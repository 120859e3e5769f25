package services

import (
	"context"
	"encoding/json"
	"log"

	"combo-arena-system/models"

	"github.com/jonboulle/clockwork"
)

// MatchService is the single settlement path for both ranked and casual
// duels: it scores both favorite combos, decides the result, applies the
// Elo/tier/energy effects for ranked play, and persists the immutable
// match record.
type MatchService struct {
	Players PlayerStore
	Combos  ComboStore
	Matches MatchStore
	Emitter Emitter
	Clock   clockwork.Clock
}

func NewMatchService(players PlayerStore, combos ComboStore, matches MatchStore, emitter Emitter, clock clockwork.Clock) *MatchService {
	return &MatchService{
		Players: players,
		Combos:  combos,
		Matches: matches,
		Emitter: emitter,
		Clock:   clock,
	}
}

// SettlementParams parameterizes one settlement. EloSnapshot must carry
// the pre-match ratings for ranked matches and stays nil for casual ones.
type SettlementParams struct {
	PlayerAID   string
	PlayerBID   string
	Mode        string
	MatchType   string
	EloSnapshot *models.EloSnapshot
}

type playerSettlement struct {
	player *models.Player
	combo  *models.Combo
	score  *ComboScore
	result string
}

// Settle runs the full settlement and returns the persisted match. Any
// failure after validation comes back as *SettlementError so callers can
// unlock participants and notify them generically without leaking the
// cause.
func (s *MatchService) Settle(ctx context.Context, params SettlementParams) (*models.Match, error) {
	if !models.ValidMode(params.Mode) {
		return nil, Validationf("invalid mode %q", params.Mode)
	}
	if params.MatchType != models.MatchTypeCasual && params.MatchType != models.MatchTypeRanked {
		return nil, Validationf("invalid match type %q", params.MatchType)
	}
	ranked := params.MatchType == models.MatchTypeRanked
	if ranked && params.EloSnapshot == nil {
		return nil, Validationf("ranked settlement requires an elo snapshot")
	}

	a, err := s.loadSide(ctx, params.PlayerAID, params.Mode)
	if err != nil {
		return nil, err
	}
	b, err := s.loadSide(ctx, params.PlayerBID, params.Mode)
	if err != nil {
		return nil, err
	}

	if ranked {
		if a.player.Energy.Current < RankedEnergyCost {
			return nil, ErrInsufficientEnergy
		}
		if b.player.Energy.Current < RankedEnergyCost {
			return nil, ErrInsufficientEnergy
		}
	}

	a.score, err = ScoreCombo(a.combo.Elements, a.player.Energy.Current)
	if err != nil {
		return nil, &SettlementError{Err: err}
	}
	b.score, err = ScoreCombo(b.combo.Elements, b.player.Energy.Current)
	if err != nil {
		return nil, &SettlementError{Err: err}
	}

	a.result, b.result = models.ResultDraw, models.ResultDraw
	var winnerID, loserID *string
	if a.score.TotalPoints > b.score.TotalPoints {
		a.result, b.result = models.ResultWin, models.ResultLoss
		winnerID, loserID = &a.player.ID, &b.player.ID
	} else if b.score.TotalPoints > a.score.TotalPoints {
		a.result, b.result = models.ResultLoss, models.ResultWin
		winnerID, loserID = &b.player.ID, &a.player.ID
	}

	var eloBeforeA, eloAfterA, eloBeforeB, eloAfterB *int
	var energyCost float64
	if ranked {
		energyCost = RankedEnergyCost

		// Ratings update from the pre-match snapshot, never from live
		// values: the live rating may have drifted since pairing and
		// would double-count.
		snapA, snapB := params.EloSnapshot.FromPlayer, params.EloSnapshot.ToPlayer
		expectedA := ExpectedScore(snapA, snapB)
		expectedB := ExpectedScore(snapB, snapA)
		scoreA := ScoreForResult(a.result)
		scoreB := ScoreForResult(b.result)
		newA := NextElo(snapA, scoreA, expectedA)
		newB := NextElo(snapB, scoreB, expectedB)

		eloBeforeA, eloAfterA = &snapA, &newA
		eloBeforeB, eloAfterB = &snapB, &newB

		applyRankedOutcome(a.player.Ranking(params.Mode), newA, a.result)
		applyRankedOutcome(b.player.Ranking(params.Mode), newB, b.result)

		if err := ConsumeEnergy(a.player, energyCost); err != nil {
			return nil, &SettlementError{Err: err}
		}
		if err := ConsumeEnergy(b.player, energyCost); err != nil {
			return nil, &SettlementError{Err: err}
		}
	}

	match := &models.Match{
		PlayerAID: a.player.ID,
		PlayerBID: b.player.ID,
		WinnerID:  winnerID,
		LoserID:   loserID,
		Mode:      params.Mode,
		MatchType: params.MatchType,
		PointsMargin: absFloat(
			a.score.TotalPoints - b.score.TotalPoints,
		),
		TotalEnergySpent: energyCost * 2,
		PlayerData: []models.MatchPlayerData{
			buildPlayerData(a, energyCost, eloBeforeA, eloAfterA),
			buildPlayerData(b, energyCost, eloBeforeB, eloAfterB),
		},
	}

	if err := s.Players.SavePlayer(ctx, a.player); err != nil {
		return nil, &SettlementError{Err: err}
	}
	if err := s.Players.SavePlayer(ctx, b.player); err != nil {
		return nil, &SettlementError{Err: err}
	}
	if err := s.Matches.CreateMatch(ctx, match); err != nil {
		return nil, &SettlementError{Err: err}
	}

	log.Printf("⚔️ [SETTLEMENT] %s match %s settled: %s %.1f vs %s %.1f",
		params.MatchType, match.ID, a.player.ID, a.score.TotalPoints, b.player.ID, b.score.TotalPoints)

	s.Emitter.EmitToPlayer(a.player.ID, "matchCompleted", map[string]any{"matchId": match.ID})
	s.Emitter.EmitToPlayer(b.player.ID, "matchCompleted", map[string]any{"matchId": match.ID})

	return match, nil
}

// loadSide fetches one participant, runs the energy regen pass and loads
// their favorite combo for the mode.
func (s *MatchService) loadSide(ctx context.Context, playerID, mode string) (*playerSettlement, error) {
	player, err := s.Players.FindPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	ApplyEnergyRegen(player, s.Clock.Now())

	comboID := player.FavoriteComboID(mode)
	if comboID == nil {
		return nil, Validationf("player %s has no favorite combo for %s", playerID, mode)
	}
	combo, err := s.Combos.FindCombo(ctx, *comboID)
	if err != nil {
		return nil, err
	}
	if combo.Type != mode {
		return nil, Validationf("favorite combo %s does not match mode %s", combo.ID, mode)
	}

	return &playerSettlement{player: player, combo: combo}, nil
}

func applyRankedOutcome(r *models.Ranking, newElo int, result string) {
	r.Elo = newElo
	r.Tier = TierFor(newElo)
	switch result {
	case models.ResultWin:
		r.Wins++
	case models.ResultLoss:
		r.Losses++
	default:
		r.Draws++
	}
}

func buildPlayerData(side *playerSettlement, energySpent float64, eloBefore, eloAfter *int) models.MatchPlayerData {
	trace, _ := json.Marshal(side.score.Steps)
	return models.MatchPlayerData{
		PlayerID:     side.player.ID,
		ComboID:      side.combo.ID,
		Points:       side.score.TotalPoints,
		EnergySpent:  energySpent,
		Result:       side.result,
		EloBefore:    eloBefore,
		EloAfter:     eloAfter,
		ScoringTrace: trace,
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
