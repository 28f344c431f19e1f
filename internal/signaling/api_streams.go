package signaling

import (
	"errors"
	"time"

	"github.com/courtside/stream-relay/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

var validate = validator.New()

type createStreamRequest struct {
	TeamID string `json:"teamId" validate:"required"`
	Title  string `json:"title" validate:"required,max=200"`
}

type streamResponse struct {
	ID         string    `json:"id"`
	TeamID     string    `json:"teamId"`
	Title      string    `json:"title"`
	StreamerID string    `json:"streamerId"`
	RoomID     string    `json:"roomId"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toStreamResponse(s domain.Stream) streamResponse {
	return streamResponse{
		ID:         s.ID,
		TeamID:     s.TeamID,
		Title:      s.Title,
		StreamerID: s.StreamerID,
		RoomID:     s.RoomID,
		Status:     string(s.Status),
		CreatedAt:  s.CreatedAt,
	}
}

func (s *Server) setupStreamApi() {
	s.app.Route("/api/streams", func(router fiber.Router) {
		router.Use(s.requireAuth())

		router.Post("/", func(c *fiber.Ctx) error {
			var req createStreamRequest
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
			}
			if err := validate.Struct(req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}

			stream, err := s.streams.Create(req.TeamID, req.Title, userIDFromCtx(c))
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create stream"})
			}
			return c.Status(fiber.StatusCreated).JSON(toStreamResponse(stream))
		})

		router.Get("/team/:teamId", func(c *fiber.Ctx) error {
			streams, err := s.streams.ActiveByTeam(c.Params("teamId"))
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list streams"})
			}
			return c.JSON(lo.Map(streams, func(stream domain.Stream, _ int) streamResponse {
				return toStreamResponse(stream)
			}))
		})

		router.Put("/:id/end", func(c *fiber.Ctx) error {
			stream, err := s.streams.End(c.Params("id"))
			if errors.Is(err, domain.ErrStreamNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "stream not found"})
			}
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to end stream"})
			}
			return c.JSON(toStreamResponse(stream))
		})
	})
}
