// handlers/challenge_routes.go
package handlers

import (
	"combo-arena-system/middleware"
	"combo-arena-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService) {
	// 🔐 Secured routes — require user context (userID)
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Post("/challenges", func(c *fiber.Ctx) error {
		playerID := c.Locals("user_id").(string)

		var body struct {
			ToPlayerID string  `json:"to_player_id"`
			Mode       string  `json:"mode"`
			MatchType  string  `json:"match_type"`
			RematchOf  *string `json:"rematch_of"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}

		challenge, err := challengeService.Create(c.Context(), playerID, body.ToPlayerID, body.Mode, body.MatchType, body.RematchOf)
		if err != nil {
			return services.RespondError(c, err)
		}

		return c.Status(201).JSON(challenge)
	})

	securedGroup.Post("/challenges/:id/respond", func(c *fiber.Ctx) error {
		playerID := c.Locals("user_id").(string)

		var body struct {
			Accepted bool `json:"accepted"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}

		challenge, match, err := challengeService.Respond(c.Context(), c.Params("id"), playerID, body.Accepted)
		if err != nil {
			return services.RespondError(c, err)
		}

		resp := fiber.Map{"challenge": challenge}
		if match != nil {
			resp["match"] = match
		}
		return c.JSON(resp)
	})

	securedGroup.Delete("/challenges/:id", func(c *fiber.Ctx) error {
		playerID := c.Locals("user_id").(string)

		challenge, err := challengeService.Cancel(c.Context(), c.Params("id"), playerID)
		if err != nil {
			return services.RespondError(c, err)
		}

		return c.JSON(challenge)
	})
}
