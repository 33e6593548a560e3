package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sharath-chandra-glean/peopleDateExporter/config"
	"github.com/sharath-chandra-glean/peopleDateExporter/syncer"
)

const serviceName = "people-data-exporter"

// SyncRunner executes one complete sync run. The production runner builds a
// fresh orchestrator per trigger; tests substitute fakes.
type SyncRunner interface {
	Run(ctx context.Context) (syncer.Summary, error)
}

// ConfigurationError marks a run failure caused by missing or invalid
// configuration, reported distinctly from sync-execution failures.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// configRunner loads configuration and runs a freshly wired sync service on
// every trigger, so a redeployed environment is picked up without restart.
type configRunner struct {
	envFile string
}

func (r *configRunner) Run(ctx context.Context) (syncer.Summary, error) {
	cfg, err := config.Load(r.envFile)
	if err != nil {
		return syncer.Summary{}, &ConfigurationError{Err: err}
	}
	return syncer.NewFromConfig(cfg).Run(ctx)
}

// Server handles HTTP requests for the sync trigger surface.
type Server struct {
	mux    *http.ServeMux
	addr   string
	auth   *Authenticator
	runner SyncRunner
	log    *logrus.Entry
}

// NewServer creates a server that triggers real sync runs configured from
// the environment.
func NewServer(port int, auth *Authenticator) *Server {
	return NewServerWithRunner(port, auth, &configRunner{envFile: ".env"})
}

// NewServerWithRunner creates a server with an explicit sync runner.
func NewServerWithRunner(port int, auth *Authenticator, runner SyncRunner) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		addr:   fmt.Sprintf(":%d", port),
		auth:   auth,
		runner: runner,
		log:    logrus.WithField("component", "web"),
	}
	s.registerRoutes()
	return s
}

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.Handle("GET /health", s.auth.OptionalAuth(http.HandlerFunc(s.handleHealth)))
	s.mux.Handle("POST /sync", s.auth.RequireAuth(http.HandlerFunc(s.handleSync)))
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler returns the HTTP handler for use with custom servers and tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}
