// Package api exposes a presale over HTTP with gin.
//
// The API trusts the caller field of each request; authenticating wallets is
// left to the gateway in front of it.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"solana-presale/internal/observability"
	"solana-presale/internal/presale"
	"solana-presale/internal/solana"
	"solana-presale/internal/storage"
	"solana-presale/internal/verification"
)

var registerOnce sync.Once

// registerValidators installs custom tags on gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = solana.RegisterValidators(v)
		}
	})
}

// Options configures the server.
type Options struct {
	Sale    *presale.Presale
	Journal storage.EventStore // optional; GET /events returns 404 without it
	// Verifier is optional; GET /verify compares the live ledger with the
	// journal replay.
	Verifier *verification.ReplayVerifier
	WS       http.Handler // optional websocket hub
	Logger   zerolog.Logger
}

// Server serves one sale.
type Server struct {
	sale    *presale.Presale
	journal  storage.EventStore
	verifier *verification.ReplayVerifier
	ws       http.Handler
	log      zerolog.Logger
	started  time.Time
	engine   *gin.Engine
}

// NewServer builds the gin engine and registers all routes.
func NewServer(opts Options) *Server {
	registerValidators()

	s := &Server{
		sale:     opts.Sale,
		journal:  opts.Journal,
		verifier: opts.Verifier,
		ws:       opts.WS,
		log:      opts.Logger.With().Str("component", "api").Logger(),
		started:  time.Now(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), RequestLogger(s.log), RequestMetrics())
	s.engine = engine
	s.registerRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/health", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.GET("/users/:address", s.handleUser)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	r.POST("/buy", s.handleBuy)
	r.POST("/claim", s.handleClaim)
	r.POST("/build-lp", s.handleBuildLP)
	r.POST("/transfer-ownership", s.handleTransferOwnership)
	r.POST("/sweep-dust", s.handleSweepDust)

	if s.journal != nil {
		r.GET("/events", s.handleEvents)
	}
	if s.verifier != nil {
		r.GET("/verify", s.handleVerify)
	}
	if s.ws != nil {
		r.GET("/ws", gin.WrapH(s.ws))
	}
}
