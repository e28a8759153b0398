package server

import (
	"log"
	"net/http"
	"time"

	"github.com/shelfwatch/shelfwatch/pkg/aggregator"
	"github.com/shelfwatch/shelfwatch/pkg/scheduler"
	"github.com/shelfwatch/shelfwatch/pkg/storage"
)

type Server struct {
	DB           *storage.DB
	Orchestrator *aggregator.Orchestrator
	Runner       *scheduler.Runner
	Username     string
	Password     string
	Freshness    time.Duration
}

func New(db *storage.DB, orch *aggregator.Orchestrator, runner *scheduler.Runner, user, pass string, freshness time.Duration) *Server {
	if freshness <= 0 {
		freshness = 6 * time.Hour
	}
	return &Server{
		DB:           db,
		Orchestrator: orch,
		Runner:       runner,
		Username:     user,
		Password:     pass,
		Freshness:    freshness,
	}
}

func (s *Server) Start(addr string) error {
	log.Printf("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/items", s.basicAuth(s.handleListItems))
	mux.HandleFunc("GET /api/items/{id}/prices", s.basicAuth(s.handleItemPrices))
	mux.HandleFunc("GET /api/items/{id}/history", s.basicAuth(s.handleItemHistory))
	mux.HandleFunc("GET /api/items/{id}/stats", s.basicAuth(s.handleItemStats))
	mux.HandleFunc("POST /api/items/{id}/refresh", s.basicAuth(s.handleItemRefresh))
	mux.HandleFunc("GET /api/alerts", s.basicAuth(s.handleListAlerts))
	mux.HandleFunc("POST /api/alerts/{id}/read", s.basicAuth(s.handleMarkAlertRead))
	mux.HandleFunc("DELETE /api/alerts/{id}", s.basicAuth(s.handleDeleteAlert))

	return mux
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
