package sockets

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"combo-arena-system/services"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Gateway routes inbound realtime events from a player's connection into
// the ranked flow and runs the full disconnect cleanup when the last
// connection drops.
type Gateway struct {
	Hub        *Hub
	Ranked     *services.RankedService
	Challenges *services.ChallengeService
}

func NewGateway(hub *Hub, ranked *services.RankedService, challenges *services.ChallengeService) *Gateway {
	return &Gateway{Hub: hub, Ranked: ranked, Challenges: challenges}
}

// Upgrade gates the websocket endpoint: only upgrade requests with an
// authenticated user context pass through.
func (g *Gateway) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "websocket requires an authenticated player",
			})
		}
		return c.Next()
	}
}

type searchPayload struct {
	Mode string `json:"mode"`
}

type acceptPayload struct {
	MatchToken string `json:"matchToken"`
}

type cancelPayload struct {
	Mode string `json:"mode"`
}

// Handler is the per-connection read loop.
func (g *Gateway) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		playerID, _ := conn.Locals("user_id").(string)
		c := &client{conn: conn}
		g.Hub.register(playerID, c)
		log.Printf("🔌 [WS] %s connected", playerID)

		// One live search per mode per connection; the token guards
		// cancels against newer searches from another connection.
		sessionTokens := make(map[string]string)

		defer func() {
			last := g.Hub.unregister(playerID, c)
			log.Printf("🔌 [WS] %s disconnected (last=%t)", playerID, last)
			if last {
				g.Ranked.Disconnect(playerID)
				g.Challenges.DropPlayer(context.Background(), playerID)
			}
		}()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				g.Hub.EmitToPlayer(playerID, "rankedError", fiber.Map{"message": "malformed event"})
				continue
			}

			g.dispatch(playerID, env, sessionTokens)
		}
	})
}

func (g *Gateway) dispatch(playerID string, env Envelope, sessionTokens map[string]string) {
	ctx := context.Background()

	switch env.Event {
	case "rankedSearch":
		var p searchPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			g.emitError(playerID, "malformed rankedSearch payload")
			return
		}
		token, err := g.Ranked.Search(ctx, playerID, p.Mode)
		if err != nil {
			g.emitError(playerID, clientMessage(err))
			return
		}
		sessionTokens[p.Mode] = token

	case "rankedAccept":
		var p acceptPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			g.emitError(playerID, "malformed rankedAccept payload")
			return
		}
		// Settlement errors already notified both players generically.
		if err := g.Ranked.Accept(ctx, playerID, p.MatchToken); err != nil {
			log.Printf("❌ [WS] rankedAccept by %s failed: %v", playerID, err)
		}

	case "rankedCancel":
		var p cancelPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			g.emitError(playerID, "malformed rankedCancel payload")
			return
		}
		g.Ranked.CancelSearch(playerID, p.Mode, sessionTokens[p.Mode])
		delete(sessionTokens, p.Mode)

	default:
		g.emitError(playerID, "unknown event "+env.Event)
	}
}

func (g *Gateway) emitError(playerID, message string) {
	g.Hub.EmitToPlayer(playerID, "rankedError", fiber.Map{"message": message})
}

// clientMessage maps core errors to client-safe text. Internal causes
// stay in the server log.
func clientMessage(err error) string {
	var validation *services.ValidationError
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &conflict):
		return conflict.Message
	case errors.Is(err, services.ErrInsufficientEnergy):
		return "not enough energy for ranked play"
	case errors.Is(err, services.ErrPlayerLocked):
		return "already searching or in a match"
	case errors.Is(err, services.ErrNotFound):
		return "not found"
	default:
		log.Printf("❌ [WS] internal error: %v", err)
		return "internal error"
	}
}
