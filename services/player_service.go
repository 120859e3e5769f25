package services

import (
	"errors"
	"log"

	"combo-arena-system/models"
	"combo-arena-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

// PlayerService serves the read-side API around the competition core:
// energy, leaderboard, combo cost previews and match history.
type PlayerService struct {
	Store *GormStore
	Clock clockwork.Clock
}

func NewPlayerService(store *GormStore, clock clockwork.Clock) *PlayerService {
	return &PlayerService{Store: store, Clock: clock}
}

// GetMyEnergy applies the regen pass, persists the new checkpoint and
// returns the fresh value. Reading energy without regen would show a
// stale number.
func (s *PlayerService) GetMyEnergy(c *fiber.Ctx) error {
	playerID := c.Locals("user_id").(string)

	player, err := s.Store.FindPlayer(c.Context(), playerID)
	if err != nil {
		return RespondError(c, err)
	}

	ApplyEnergyRegen(player, s.Clock.Now())
	if err := s.Store.SavePlayer(c.Context(), player); err != nil {
		log.Printf("DB Error saving regenerated energy for %s: %v", playerID, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{
		"energy":           player.Energy.Current,
		"max_energy":       models.MaxEnergy,
		"regen_per_minute": BaseRegenPerMinute,
		"boost_expires_at": player.Energy.BoostExpiresAt,
	})
}

// GetLeaderboard returns the rating-sorted player list for a mode,
// paginated, with a stable tie-break by player ID.
func (s *PlayerService) GetLeaderboard(c *fiber.Ctx) error {
	mode := c.Query("mode", models.ModeStatic)
	if !models.ValidMode(mode) {
		return c.Status(400).JSON(fiber.Map{"error": "invalid mode"})
	}

	page, pageSize := utils.Pagination(c)
	players, total, err := s.Store.Leaderboard(c.Context(), mode, pageSize, (page-1)*pageSize)
	if err != nil {
		log.Printf("DB Error fetching leaderboard (%s): %v", mode, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	entries := make([]fiber.Map, 0, len(players))
	for i, p := range players {
		r := p.Ranking(mode)
		entries = append(entries, fiber.Map{
			"rank":      (page-1)*pageSize + i + 1,
			"player_id": p.ID,
			"username":  p.Username,
			"elo":       r.Elo,
			"tier":      r.Tier,
			"wins":      r.Wins,
			"losses":    r.Losses,
			"draws":     r.Draws,
		})
	}

	return c.JSON(fiber.Map{
		"mode":      mode,
		"page":      page,
		"page_size": pageSize,
		"total":     total,
		"entries":   entries,
	})
}

// GetComboCost previews the energy price of running a combo once.
func (s *PlayerService) GetComboCost(c *fiber.Ctx) error {
	comboID := c.Params("combo_id")

	combo, err := s.Store.FindCombo(c.Context(), comboID)
	if err != nil {
		return RespondError(c, err)
	}

	cost, err := ComboEnergyCost(combo.Elements)
	if err != nil {
		return RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"combo_id":    combo.ID,
		"energy_cost": cost,
	})
}

// GetMatch returns one immutable match record with both scoring traces.
func (s *PlayerService) GetMatch(c *fiber.Ctx) error {
	match, err := s.Store.FindMatch(c.Context(), c.Params("id"))
	if err != nil {
		return RespondError(c, err)
	}
	return c.JSON(match)
}

// GetMyMatches returns the caller's match history, optionally filtered
// by match type (ranked/casual), newest first.
func (s *PlayerService) GetMyMatches(c *fiber.Ctx) error {
	playerID := c.Locals("user_id").(string)
	matchType := c.Query("match_type")
	if matchType != "" && matchType != models.MatchTypeCasual && matchType != models.MatchTypeRanked {
		return c.Status(400).JSON(fiber.Map{"error": "invalid match_type"})
	}

	page, pageSize := utils.Pagination(c)
	matches, err := s.Store.MatchesForPlayer(c.Context(), playerID, matchType, pageSize, (page-1)*pageSize)
	if err != nil {
		log.Printf("DB Error fetching matches for %s: %v", playerID, err)
		return c.Status(500).JSON(fiber.Map{"error": "database error"})
	}

	return c.JSON(fiber.Map{
		"page":      page,
		"page_size": pageSize,
		"matches":   matches,
	})
}

// RespondError maps core errors onto HTTP statuses. Internal causes are
// logged, never sent to the client.
func RespondError(c *fiber.Ctx, err error) error {
	var validation *ValidationError
	var conflict *ConflictError
	var settlement *SettlementError
	switch {
	case errors.As(err, &validation):
		return c.Status(400).JSON(fiber.Map{"error": validation.Message})
	case errors.Is(err, ErrInsufficientEnergy):
		return c.Status(400).JSON(fiber.Map{"error": "insufficient energy"})
	case errors.As(err, &conflict):
		return c.Status(409).JSON(fiber.Map{"error": conflict.Message})
	case errors.Is(err, ErrNotAuthorized):
		return c.Status(403).JSON(fiber.Map{"error": "not authorized"})
	case errors.Is(err, ErrNotFound):
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	case errors.As(err, &settlement):
		log.Printf("❌ [API] settlement error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "match could not be created"})
	default:
		log.Printf("❌ [API] internal error: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal error"})
	}
}
