package signaling

import (
	"log/slog"
	"os"

	"github.com/courtside/stream-relay/internal/api"
	"github.com/courtside/stream-relay/internal/config"
	"github.com/courtside/stream-relay/internal/domain"
	"github.com/courtside/stream-relay/internal/metrics"
	"github.com/courtside/stream-relay/internal/repository/badgerdb"
	"github.com/courtside/stream-relay/internal/repository/memory"
	"github.com/courtside/stream-relay/internal/router"
	"github.com/courtside/stream-relay/internal/service"
	"github.com/courtside/stream-relay/internal/sockets"
	"github.com/courtside/stream-relay/internal/utils"
	"github.com/dgraph-io/badger/v4"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Server wires the relay together: the WebSocket gateway, the stream
// REST API, the admin API and the metrics endpoint, on one Fiber app.
type Server struct {
	app *fiber.App
	cfg *config.Manager

	pool        *sockets.SocketPool
	rooms       domain.RoomStore
	mediaRouter domain.MediaRouter
	gateway     *Gateway
	sessions    *service.SessionService
	streams     *service.StreamService

	db          *badger.DB
	roomSweeper utils.IntervalTimer
}

func NewServer(cfgManager *config.Manager, app *fiber.App) (*Server, error) {
	cfg := cfgManager.Get()

	mediaRouter, err := router.NewPionRouter(&cfg.WebRTC, cfg.Server.PublicIP)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Stream.DataDir, os.ModePerm); err != nil {
		mediaRouter.Close()
		return nil, err
	}

	db, err := badger.Open(badger.DefaultOptions(cfg.Stream.DataDir).WithLogger(nil))
	if err != nil {
		mediaRouter.Close()
		return nil, err
	}

	pool := sockets.NewSocketPool()
	rooms := memory.NewRoomRepository()
	broadcaster := newRoomBroadcaster(rooms, pool)

	sessions := service.NewSessionService(rooms, mediaRouter, broadcaster, func(socketID string) bool {
		return pool.Contains(sockets.SocketID(socketID))
	})
	streams := service.NewStreamService(badgerdb.NewStreamRepository(db, slog.Default()), sessions)

	gateway := NewGateway(sessions, NewSessionHandler(pool), func() api.PeerConnectionConfig {
		return cfgManager.Get().WebRTC.PeerConnectionConfig
	})

	server := &Server{
		app:         app,
		cfg:         cfgManager,
		pool:        pool,
		rooms:       rooms,
		mediaRouter: mediaRouter,
		gateway:     gateway,
		sessions:    sessions,
		streams:     streams,
		db:          db,
	}

	server.roomSweeper = utils.SetIntervalTimer(cfg.Stream.SweepInterval, func() {
		sessions.EvictIdleRooms(cfgManager.Get().Stream.RoomIdleGrace)
	})

	metrics.StartTime.SetToCurrentTime()

	return server, nil
}

func (s *Server) SetupRoutes() {
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	s.app.Get("/ws/stream", websocket.New(func(c *websocket.Conn) {
		s.gateway.Listen(c)
	}))

	s.setupStreamApi()
	s.setupAdminApi()
	s.setupMetrics()
}

func (s *Server) setupMetrics() {
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	s.app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})
}

// Close tears everything down: the sweeper, all client sockets, the
// media engine and the stream store.
func (s *Server) Close() {
	s.roomSweeper.Stop()
	s.pool.Close()
	s.mediaRouter.Close()
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close stream store", "error", err)
	}
}
