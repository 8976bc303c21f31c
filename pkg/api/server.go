package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/critiquelabs/critique/pkg/httputil"
	"github.com/critiquelabs/critique/pkg/mail"
	"github.com/critiquelabs/critique/pkg/observability"
)

// Server represents the API server
type Server struct {
	storage Storage
	router  *mux.Router
	log     *observability.Logger
	metrics *observability.Metrics

	authHandlers     *AuthHandlers
	userHandlers     *UserHandlers
	categoryHandlers *CategoryHandlers
	genreHandlers    *GenreHandlers
	titleHandlers    *TitleHandlers
	reviewHandlers   *ReviewHandlers
	commentHandlers  *CommentHandlers
}

// ServerOptions carries the server's collaborators. Authenticate is the
// token-resolving middleware; it lives outside this package and is injected
// so the storage-facing middleware package can depend on the Storage
// interface without a cycle. Audit, when set, runs after Authenticate and
// records mutating requests.
type ServerOptions struct {
	Mail         mail.Sender
	TokenTTL     time.Duration
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Authenticate mux.MiddlewareFunc
	Audit        mux.MiddlewareFunc
}

// NewServer creates a new API server
func NewServer(storage Storage, opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}

	s := &Server{
		storage: storage,
		router:  mux.NewRouter(),
		log:     opts.Logger,
		metrics: opts.Metrics,
	}

	s.authHandlers = NewAuthHandlers(storage, opts.Mail, opts.TokenTTL, opts.Logger)
	s.userHandlers = NewUserHandlers(storage)
	s.categoryHandlers = NewCategoryHandlers(storage)
	s.genreHandlers = NewGenreHandlers(storage)
	s.titleHandlers = NewTitleHandlers(storage)
	s.reviewHandlers = NewReviewHandlers(storage)
	s.commentHandlers = NewCommentHandlers(storage)

	s.setupRoutes(opts)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts ServerOptions) {
	s.router.Use(httputil.RecoveryMiddleware(s.log))
	s.router.Use(httputil.LoggingMiddleware(s.log))
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}
	if opts.Authenticate != nil {
		s.router.Use(opts.Authenticate)
	}
	if opts.Audit != nil {
		s.router.Use(opts.Audit)
	}

	v1 := s.router.PathPrefix("/v1").Subrouter()
	s.authHandlers.RegisterRoutes(v1)
	s.userHandlers.RegisterRoutes(v1)
	s.categoryHandlers.RegisterRoutes(v1)
	s.genreHandlers.RegisterRoutes(v1)
	s.titleHandlers.RegisterRoutes(v1)
	s.reviewHandlers.RegisterRoutes(v1)
	s.commentHandlers.RegisterRoutes(v1)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "resource not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Router exposes the configured router for embedding in an http.Server
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
