package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"combo-arena-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamNotificationsSSE streams real-time inbox updates for the
// authenticated player. Challenge notifications vanish from the table
// when the challenge terminates, so the stream only ever carries live
// invites.
func (s *PlayerService) StreamNotificationsSSE(c *fiber.Ctx) error {
	playerID := c.Locals("user_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	// Use fasthttp stream writer (THIS replaces Flush)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor
		var latest models.Notification
		if err := s.Store.DB.
			Where("player_id = ?", playerID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for player %s: %v", playerID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var fresh []models.Notification

				err := s.Store.DB.
					Where("player_id = ?", playerID).
					Where("created_at > ?", lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&fresh).Error

				if err != nil {
					log.Printf("SSE query error for player %s: %v", playerID, err)
					continue
				}

				if len(fresh) == 0 {
					continue
				}

				lastMaxCreatedAt = fresh[len(fresh)-1].CreatedAt

				for _, n := range fresh {
					payload, _ := json.Marshal(n)

					fmt.Fprintf(w,
						"event: %s\ndata: %s\n\n",
						n.Kind,
						payload,
					)
				}

				// This is the REAL "flush"
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
