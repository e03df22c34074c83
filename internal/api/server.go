package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/legalens/internal/answer"
	"github.com/dgallion1/legalens/internal/config"
	"github.com/dgallion1/legalens/internal/llm"
	"github.com/dgallion1/legalens/internal/router"
	"github.com/dgallion1/legalens/internal/storage"
)

// Agent is the query pipeline behind the API.
type Agent interface {
	Process(ctx context.Context, input string) (*answer.StructuredAnswer, error)
	// ProcessText answers free text without resolving it as a path.
	ProcessText(ctx context.Context, text string) (*answer.StructuredAnswer, error)
	Route(ctx context.Context, input string) (*router.RoutedInput, error)
}

// Deps are the collaborators of the HTTP server. Storage and Stats are
// optional.
type Deps struct {
	Agent   Agent
	Storage storage.Storage
	Stats   *llm.LLMStats
	Model   string
}

// Server is the HTTP API server for legalens.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(CORS(s.cfg.CORSOrigins))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/query", s.handleQuery)
		r.Post("/api/upload", s.handleUpload)
		r.Post("/api/contact", s.handleContact)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
