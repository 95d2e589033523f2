package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sw33tLie/baseline-lite/internal/utils"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/report"
	"github.com/sw33tLie/baseline-lite/pkg/storage"
)

// maxBody caps the size of a document posted for scanning.
const maxBody = 8 << 20

type Server struct {
	Store    *index.Store
	DB       *storage.DB // optional
	Policy   report.Policy
	Username string
	Password string
}

func New(store *index.Store, db *storage.DB, policy report.Policy, user, pass string) *Server {
	return &Server{
		Store:    store,
		DB:       db,
		Policy:   policy,
		Username: user,
		Password: pass,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/scan", s.basicAuth(s.handleScan))
	mux.HandleFunc("GET /api/lookup", s.basicAuth(s.handleLookup))
	mux.HandleFunc("GET /api/index", s.basicAuth(s.handleIndex))
	mux.HandleFunc("GET /api/history/stats", s.basicAuth(s.handleHistoryStats))
	mux.HandleFunc("GET /api/history/changes", s.basicAuth(s.handleHistoryChanges))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return mux
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	utils.Log.Infof("Starting server on %s", addr)
	return srv.ListenAndServe()
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
