package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bobmcallan/tally/internal/app"
	"github.com/bobmcallan/tally/internal/common"
)

// Analysis requests may wait on the LLM summary or render a PDF, so writes
// get far longer than reads.
const (
	readTimeout  = 30 * time.Second
	writeTimeout = 300 * time.Second
	idleTimeout  = 60 * time.Second
)

// Server serves the dataset and analysis API under /api and the MCP tools
// under /mcp from one mux, behind the shared middleware chain.
type Server struct {
	app          *app.App
	server       *http.Server
	logger       *common.Logger
	shutdownChan chan struct{}
}

// SetShutdownChannel registers the channel POST /api/shutdown signals.
// Without one the route still answers but the process keeps running.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// NewServer wires the routes for a.
func NewServer(a *app.App) *Server {
	s := &Server{
		app:    a,
		logger: a.Logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:         net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:      applyMiddleware(mux, a.Logger, a.Config),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Handler returns the full middleware-wrapped handler, for httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.server.Addr).
		Bool("auth", s.app.Config.Auth.Enabled()).
		Msg("Starting tally server")
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight analyses.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Stopping tally server")
	return s.server.Shutdown(ctx)
}
