// Package api serves the dashboard HTTP API: read-only views over the
// equipment data, a status proxy into running repair workflows, and a
// websocket feed that pushes refreshes when the data files change.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jordanhubbard/inframon/internal/audit"
	"github.com/jordanhubbard/inframon/internal/auth"
	"github.com/jordanhubbard/inframon/internal/config"
	"github.com/jordanhubbard/inframon/internal/datastore"
	temporalclient "github.com/jordanhubbard/inframon/internal/temporal/client"
)

// Server is the dashboard API server.
type Server struct {
	store    datastore.Store
	temporal *temporalclient.Client
	auth     *auth.Manager
	trail    *audit.Trail
	cfg      *config.ServerConfig
	hub      *eventHub
	http     *http.Server
}

// NewServer creates a dashboard server. The Temporal client may be nil; the
// workflow proxy endpoint then answers 503.
func NewServer(cfg *config.ServerConfig, store datastore.Store, tc *temporalclient.Client, authMgr *auth.Manager, trail *audit.Trail, dataDir string) *Server {
	return &Server{
		store:    store,
		temporal: tc,
		auth:     authMgr,
		trail:    trail,
		cfg:      cfg,
		hub:      newEventHub(dataDir),
	}
}

// SetupRoutes builds the handler chain.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", s.handleLogin)

	mux.HandleFunc("/api/v1/equipment", s.handleEquipment)
	mux.HandleFunc("/api/v1/equipment/", s.handleEquipmentByID)
	mux.HandleFunc("/api/v1/health-metrics", s.handleHealthMetrics)
	mux.HandleFunc("/api/v1/life-expectancy", s.handleLifeExpectancy)
	mux.HandleFunc("/api/v1/fleet", s.handleFleet)
	mux.HandleFunc("/api/v1/fleet/summary", s.handleFleetSummary)

	mux.HandleFunc("/api/v1/workflows/", s.handleWorkflow)

	mux.HandleFunc("/api/v1/events/ws", s.hub.handleWebSocket)

	mux.Handle("/metrics", promhttp.Handler())

	handler := s.loggingMiddleware(mux)
	handler = s.authMiddleware(handler)
	handler = s.corsMiddleware(handler)
	return otelhttp.NewHandler(handler, "inframon-api")
}

// Start begins serving and watching the data directory. Non-blocking.
func (s *Server) Start() error {
	if err := s.hub.start(); err != nil {
		return fmt.Errorf("failed to start data watcher: %w", err)
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.HTTPPort),
		Handler:      s.SetupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	go func() {
		log.Printf("[API] Listening on :%d", s.cfg.HTTPPort)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[API] Server error: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the server and the watcher.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.stop()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[API] %s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.cfg.AllowedOrigins) > 0 {
			origin := r.Header.Get("Origin")
			for _, allowed := range s.cfg.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					w.Header().Set("Access-Control-Allow-Origin", allowed)
					break
				}
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Login, health, metrics, and the websocket handshake stay open.
		if r.URL.Path == "/api/v1/health" ||
			r.URL.Path == "/api/v1/auth/login" ||
			r.URL.Path == "/api/v1/events/ws" ||
			r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if !s.cfg.EnableAuth {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			s.respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if _, err := s.auth.ValidateToken(token); err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helpers

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) extractID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.TrimPrefix(id, "/")
	id = strings.TrimSuffix(id, "/")
	if i := strings.Index(id, "/"); i >= 0 {
		return id[:i]
	}
	return id
}
