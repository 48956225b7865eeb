package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/agent"
	"github.com/anirbandas/job-apply-agent/internal/ai"
	"github.com/anirbandas/job-apply-agent/internal/auth"
	"github.com/anirbandas/job-apply-agent/internal/notify"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/queue"
)

// Server is the HTTP facade over the agent: auth, lifecycle control, queue
// inspection, resume parsing, and the websocket push endpoint.
type Server struct {
	logger    *zap.Logger
	profiles  profile.Store
	tokens    *auth.TokenService
	manager   *agent.Manager
	queues    *queue.Store
	hub       *notify.Hub
	extractor ai.ProfileExtractor

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	// Agent tasks must outlive the request that started them, so Start is
	// called with this context instead of the request's.
	baseCtx context.Context
}

func New(
	logger *zap.Logger,
	profiles profile.Store,
	tokens *auth.TokenService,
	manager *agent.Manager,
	queues *queue.Store,
	hub *notify.Hub,
	extractor ai.ProfileExtractor,
) *Server {
	return &Server{
		logger:    logger,
		profiles:  profiles,
		tokens:    tokens,
		manager:   manager,
		queues:    queues,
		hub:       hub,
		extractor: extractor,
		baseCtx: context.Background(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The frontend is served from another origin in development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// SetBaseContext sets the context handed to agent tasks started over HTTP.
// Cancel it to wind the whole fleet down.
func (s *Server) SetBaseContext(ctx context.Context) {
	s.baseCtx = ctx
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/api/register", s.handleRegister)
	r.Post("/api/login", s.handleLogin)
	r.Get("/ws", s.handleWebsocket)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/api/verify-token", s.handleVerifyToken)
		r.Post("/parse-resumes", s.handleParseResume)
		r.Post("/api/agent/start", s.handleAgentStart)
		r.Post("/api/agent/stop", s.handleAgentStop)
		r.Get("/api/agent/status", s.handleAgentStatus)
		r.Get("/api/jobs/{status}", s.handleJobs)
	})

	return r
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("http server listening", zap.String("addr", addr))

	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
