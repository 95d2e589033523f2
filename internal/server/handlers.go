package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/report"
	"github.com/sw33tLie/baseline-lite/pkg/scanner"
)

// Publish swaps idx in as the served index and updates the index gauges.
func (s *Server) Publish(idx *index.Index) {
	s.Store.Swap(idx)
	st := s.Store.Load().Stats()
	IndexKeys.WithLabelValues("markup").Set(float64(st.MarkupKeys))
	IndexKeys.WithLabelValues("script").Set(float64(st.ScriptKeys))
}

type ScanRequest struct {
	Language string `json:"language"`
	Path     string `json:"path"`
	Text     string `json:"text"`
}

type ScanResponse struct {
	Language    string              `json:"language"`
	Summary     string              `json:"summary"`
	Diagnostics []report.Diagnostic `json:"diagnostics"`
	Groups      []report.LineGroup  `json:"groups"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	lang := scanner.Language(req.Language)
	if lang == "" && req.Path != "" {
		lang, _ = scanner.LanguageFromPath(req.Path)
	}
	sc, err := scanner.New(s.Store.Load(), lang)
	if err != nil {
		if errors.Is(err, scanner.ErrUnsupportedLanguage) {
			http.Error(w, "unsupported language "+strconv.Quote(string(lang)), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	start := time.Now()
	findings := sc.Scan(req.Text)
	scanDuration.WithLabelValues(string(lang)).Observe(time.Since(start).Seconds())
	scansTotal.WithLabelValues(string(lang)).Inc()

	diags := s.Policy.Diagnostics(findings)
	kept := make([]baseline.Finding, 0, len(diags))
	for _, d := range diags {
		findingsTotal.WithLabelValues(d.Status.String()).Inc()
		kept = append(kept, baseline.Finding{Range: d.Range, Status: d.Status, Label: d.Label, Key: d.Key})
	}

	json.NewEncoder(w).Encode(ScanResponse{
		Language:    string(lang),
		Summary:     report.Summary(kept),
		Diagnostics: diags,
		Groups:      report.GroupByLine(kept),
	})
}

type LookupResponse struct {
	Key   string          `json:"key"`
	Entry *baseline.Entry `json:"entry"`
	Hover string          `json:"hover"`
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	idx := s.Store.Load()
	namespace := "markup"
	var (
		e   *baseline.Entry
		key string
		ok  bool
	)
	if q.Get("script") == "true" {
		namespace = "script"
		e, key, ok = scanner.ResolveScript(idx, token)
	} else {
		e, key, ok = scanner.Resolve(idx, token, q.Get("line"))
	}
	if !ok {
		lookupsTotal.WithLabelValues(namespace, "miss").Inc()
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	lookupsTotal.WithLabelValues(namespace, "hit").Inc()
	json.NewEncoder(w).Encode(LookupResponse{Key: key, Entry: e, Hover: report.Hover(e, token)})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(s.Store.Load().Stats())
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history database not enabled", http.StatusNotFound)
		return
	}
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleHistoryChanges(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "history database not enabled", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	changes, err := s.DB.ListRecentChanges(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(changes)
}
