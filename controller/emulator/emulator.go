// Package emulator implements a local stand-in for the controller REST API.
//
// It supports session login with CSRF protection, the object CRUD endpoints,
// name lookups, reference resolution and PATCH add/replace/delete bodies. It
// is used in tests and by `avictl emulator` for trying out desired-state files
// without a real controller.
package emulator

import (
	"net/http"
	"sync"

	"github.com/func/avictl/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Config configures a Server.
type Config struct {
	// Store persists objects. Required.
	Store *storage.KV

	// Credentials accepted by POST /login.
	Username string
	Password string

	// WriteOnly returns fields of a type that are stored but never returned,
	// such as passwords. Optional.
	WriteOnly func(typ string) []string

	// Logger logs requests. If not set, logs are discarded.
	Logger *zap.Logger
}

// A Server emulates a controller. It implements http.Handler.
type Server struct {
	store     *storage.KV
	username  string
	password  []byte // bcrypt hash
	writeOnly func(typ string) []string
	logger    *zap.Logger

	router   chi.Router
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	objects  *prometheus.CounterVec

	mu       sync.Mutex
	sessions map[string]string // sessionid -> csrf token

	// Serializes writes so name uniqueness holds.
	writeMu sync.Mutex
}

// New creates a new emulator server.
func New(cfg Config) *Server {
	s := &Server{
		store:     cfg.Store,
		username:  cfg.Username,
		writeOnly: cfg.WriteOnly,
		logger:    cfg.Logger,
		registry:  prometheus.NewRegistry(),
		sessions:  make(map[string]string),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.MinCost)
	if err != nil {
		// Longer than bcrypt accepts. No login will succeed.
		s.logger.Error("Hash password", zap.Error(err))
	}
	s.password = hash
	if s.writeOnly == nil {
		s.writeOnly = func(string) []string { return nil }
	}
	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avictl",
		Subsystem: "emulator",
		Name:      "requests_total",
		Help:      "HTTP requests handled by the emulator.",
	}, []string{"method", "code"})
	s.objects = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "avictl",
		Subsystem: "emulator",
		Name:      "object_writes_total",
		Help:      "Object writes by type and operation.",
	}, []string{"type", "op"})
	s.registry.MustRegister(s.requests, s.objects)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Post("/login", s.login)
	r.Post("/logout", s.logout)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/{type}", s.list)
		r.Post("/{type}", s.create)
		r.Get("/{type}/{uuid}", s.get)
		r.Put("/{type}/{uuid}", s.replace)
		r.Patch("/{type}/{uuid}", s.patch)
		r.Delete("/{type}/{uuid}", s.delete)
	})
	s.router = r
	return s
}

// ServeHTTP serves a request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
