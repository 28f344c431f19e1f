package signaling

import (
	"time"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/samber/lo"
)

type roomResponse struct {
	ID                  string    `json:"id"`
	ProducerTransportID string    `json:"producerTransportId,omitempty"`
	ConsumerCount       int       `json:"consumerCount"`
	MemberCount         int       `json:"memberCount"`
	LastActivity        time.Time `json:"lastActivity"`
}

func (s *Server) setupAdminApi() {
	s.app.Route("/api/admin", func(router fiber.Router) {
		router.Use(basicauth.New(basicauth.Config{
			Realm: "Forbidden",
			Authorizer: func(user, pass string) bool {
				credential := s.cfg.Get().Security.AdminCredential
				return credential == nil || user == "admin" && pass == *credential
			},
		}))

		router.Get("/rooms", func(c *fiber.Ctx) error {
			return c.JSON(lo.Map(s.rooms.Rooms(), func(info domain.RoomInfo, _ int) roomResponse {
				return roomResponse{
					ID:                  info.ID,
					ProducerTransportID: info.ProducerTransportID,
					ConsumerCount:       info.ConsumerCount,
					MemberCount:         info.MemberCount,
					LastActivity:        info.LastActivity,
				}
			}))
		})

		router.Post("/rooms/:roomId/end", func(c *fiber.Ctx) error {
			roomID := c.Params("roomId")
			if _, err := s.rooms.Get(roomID); err != nil {
				return c.Status(fiber.StatusNotFound).SendString("Room not found")
			}
			if err := s.streams.EndByRoom(roomID); err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString("Failed to end room")
			}
			return c.Status(fiber.StatusOK).SendString("Ok")
		})
	})
}
