// handlers/arena_routes.go
package handlers

import (
	"combo-arena-system/middleware"
	"combo-arena-system/services"
	"combo-arena-system/sockets"

	"github.com/gofiber/fiber/v2"
)

func SetupArenaRoutes(app *fiber.App, playerService *services.PlayerService, gateway *sockets.Gateway) {
	// Public (within the mesh) — leaderboard needs no user context.
	app.Get("/leaderboard", playerService.GetLeaderboard)

	// 🔐 Secured routes — require user context (userID)
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/users/me/energy", playerService.GetMyEnergy)
	securedGroup.Get("/users/me/matches", playerService.GetMyMatches)
	securedGroup.Get("/users/me/notifications/stream", playerService.StreamNotificationsSSE)
	securedGroup.Get("/matches/:id", playerService.GetMatch)
	securedGroup.Post("/combos/:combo_id/cost", playerService.GetComboCost)

	// Realtime gateway. The upgrade check runs under the same user
	// context middleware as the REST routes.
	securedGroup.Use("/ws", gateway.Upgrade())
	securedGroup.Get("/ws", gateway.Handler())
}
