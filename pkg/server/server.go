// Package server exposes the consensus engine over HTTP: REST endpoints for
// starting and inspecting runs, a websocket stream of run events, a direct
// chat endpoint, and the persisted project catalog.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/alantheprice/council/pkg/config"
	"github.com/alantheprice/council/pkg/consensus"
	"github.com/alantheprice/council/pkg/events"
	"github.com/alantheprice/council/pkg/llm"
	"github.com/alantheprice/council/pkg/projects"
	"github.com/alantheprice/council/pkg/prompts"
	"github.com/alantheprice/council/pkg/utils"
)

// Orchestrator is the slice of the consensus engine the HTTP layer drives.
type Orchestrator interface {
	Start(ctx context.Context, task string, models []string, opts consensus.RunOptions) (string, error)
	Session(id string) (*consensus.Session, error)
}

// ModelClient covers the direct model endpoints: chat, ping, and the
// catalog proxy.
type ModelClient interface {
	Invoke(ctx context.Context, model string, messages []prompts.Message, opts llm.Options) (*llm.ModelCallResult, error)
	Ping(ctx context.Context, modelID string, apiKey string) error
	ListModels(ctx context.Context, apiKey string) (json.RawMessage, error)
}

// Server wires the engine, the model client, and the project store into a
// gin router.
type Server struct {
	cfg      *config.Config
	engine   Orchestrator
	client   ModelClient
	projects *projects.Store
	bus      *events.EventBus
	logger   *utils.Logger
	upgrader websocket.Upgrader
}

// New creates a Server. The event bus must be the same one the engine
// publishes on, otherwise websocket clients see nothing.
func New(cfg *config.Config, engine Orchestrator, client ModelClient, store *projects.Store, bus *events.EventBus) *Server {
	return &Server{
		cfg:      cfg,
		engine:   engine,
		client:   client,
		projects: store,
		bus:      bus,
		logger:   utils.GetLogger(true),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", s.health)

		api.POST("/consensus", s.startConsensus)
		api.GET("/consensus/:id", s.getConsensus)

		api.POST("/chat", s.chat)
		api.POST("/ping-model", s.pingModel)
		api.GET("/models", s.listModels)

		proj := api.Group("/projects")
		{
			proj.POST("", s.upsertProject)
			proj.GET("", s.listProjects)
			proj.GET("/:id", s.getProject)
		}
	}

	r.GET("/ws/consensus/:id", s.sessionSocket)

	return r
}

// Run starts the HTTP server on the configured listen address and blocks.
func (s *Server) Run() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = config.DefaultListenAddr
	}
	s.logger.Logf("HTTP server listening on %s", addr)
	return s.Router().Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
