package server

import (
	"database/sql"
	"net/http"

	"quantship-deployment/internal/config"
	"quantship-deployment/internal/handlers"
	"quantship-deployment/internal/logger"

	"github.com/gorilla/mux"
	newrelicagent "github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

type Server struct {
	config  *config.Config
	db      *sql.DB
	handler *handlers.Handler
	router  *mux.Router
	nrApp   *newrelicagent.Application
	logger  *logrus.Entry
}

func NewServer(cfg *config.Config, db *sql.DB, baseSpec *config.Spec, deployer handlers.Deployer, nrApp *newrelicagent.Application) *Server {
	logger.Initialize()

	serverLogger := logger.WithModule("server")

	handler := handlers.NewHandler(db, cfg, baseSpec, deployer)

	s := &Server{
		config:  cfg,
		db:      db,
		handler: handler,
		router:  mux.NewRouter(),
		nrApp:   nrApp,
		logger:  serverLogger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health endpoint (unprotected)
	s.router.HandleFunc(s.instrumented("/health", s.handler.Health)).Methods("GET")

	// Protected routes with secret key validation
	protectedRouter := s.router.PathPrefix("").Subrouter()
	protectedRouter.Use(s.authMiddleware)

	protectedRouter.HandleFunc(s.instrumented("/deploy", s.handler.Deploy)).Methods("POST")
	protectedRouter.HandleFunc(s.instrumented("/status/{run_id}", s.handler.Status)).Methods("GET")
}

// instrumented wraps a route with New Relic transaction tracking when
// the agent is configured.
func (s *Server) instrumented(pattern string, handler http.HandlerFunc) (string, http.HandlerFunc) {
	if s.nrApp == nil {
		return pattern, handler
	}
	return newrelicagent.WrapHandleFunc(s.nrApp, pattern, handler)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secretKey := r.Header.Get("X-Secret-Key")
		s.logger.WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}).Debug("Authenticating request")

		if secretKey != s.config.ValidSecret {
			s.logger.WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"method": r.Method,
				"ip":     r.RemoteAddr,
			}).Warn("Invalid secret key provided")
			http.Error(w, "Invalid secret key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Router exposes the configured routes for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) Start() error {
	s.logger.WithField("port", s.config.Port).Info("Server starting")
	return http.ListenAndServe(":"+s.config.Port, s.router)
}
