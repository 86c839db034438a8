package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/TobiSchelling/tweetcurator/internal/database"
)

//go:embed templates/*.html
var templateFS embed.FS

var md = goldmark.New()

// Server is the HTTP review surface over the tweet store.
type Server struct {
	db     *database.DB
	logger *zap.Logger
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"add": func(a, b int) int { return a + b },
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so its "content" block is private.
	pageNames := []string{"index.html", "tweet.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, logger: logger, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return instrument(s.mux)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /tweets/{id}", s.handleTweetPage)
	s.mux.HandleFunc("POST /tweets/{id}/decision", s.handleDecisionForm)

	s.mux.HandleFunc("GET /api/tweets", s.handleList)
	s.mux.HandleFunc("GET /api/tweets/{id}", s.handleGet)
	s.mux.HandleFunc("GET /api/tweets/{id}/snapshots", s.handleSnapshots)
	s.mux.HandleFunc("POST /api/tweets/{id}/decision", s.handleDecision)

	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// tweetView adds the rendered quote to a stored tweet.
type tweetView struct {
	database.Tweet
	QuoteHTML template.HTML `json:"quoteHtml"`
}

type pageView struct {
	Items    []tweetView `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

func newTweetView(t database.Tweet) tweetView {
	return tweetView{Tweet: t, QuoteHTML: renderMarkdown(t.Quote)}
}

func newPageView(p *database.Page) pageView {
	items := make([]tweetView, len(p.Items))
	for i, t := range p.Items {
		items[i] = newTweetView(t)
	}
	return pageView{Items: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}

// parseListQuery reads approved, humanDecision, page and pageSize.
func parseListQuery(r *http.Request) (database.ListFilter, database.Pagination, error) {
	var f database.ListFilter
	var p database.Pagination
	q := r.URL.Query()

	if v := q.Get("approved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, p, fmt.Errorf("invalid approved filter %q", v)
		}
		f.Approved = &b
	}

	h, err := database.ParseHumanFilter(q.Get("humanDecision"))
	if err != nil {
		return f, p, err
	}
	f.Human = h

	for name, dst := range map[string]*int{"page": &p.Page, "pageSize": &p.PageSize} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, p, fmt.Errorf("invalid %s %q", name, v)
		}
		*dst = n
	}
	return f, p, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	f, p, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.db.List(f, p)
	if err != nil {
		s.internalError(w, "listing tweets", err)
		return
	}
	writeJSON(w, http.StatusOK, newPageView(page))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r.PathValue("id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newTweetView(*t))
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.lookup(w, id); !ok {
		return
	}

	snaps, err := s.db.GetSnapshots(id)
	if err != nil {
		s.internalError(w, "loading snapshots", err)
		return
	}
	if snaps == nil {
		snaps = []database.MetricsSnapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

// decisionRequest is a partial review update; absent fields are left alone.
type decisionRequest struct {
	Decision         *string `json:"decision"`
	PublishedTweetID *string `json:"publishedTweetId"`
	Correction       *string `json:"correction"`
}

func (req decisionRequest) toUpdate() (database.HumanUpdate, error) {
	u := database.HumanUpdate{
		PublishedTweetID: req.PublishedTweetID,
		Correction:       req.Correction,
	}
	if req.Decision != nil {
		d, err := database.ParseHumanDecision(*req.Decision)
		if err != nil {
			return u, err
		}
		u.Decision = &d
	}
	return u, nil
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req decisionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	u, err := req.toUpdate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.applyUpdate(w, id, u) {
		return
	}

	t, ok := s.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newTweetView(*t))
}

// applyUpdate writes u and reports whether the handler should continue.
func (s *Server) applyUpdate(w http.ResponseWriter, id string, u database.HumanUpdate) bool {
	if u.IsEmpty() {
		// A no-op on an unknown id is still a 404.
		_, ok := s.lookup(w, id)
		return ok
	}
	err := s.db.UpdateHumanDecision(id, u)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "tweet not found")
		return false
	}
	if err != nil {
		s.internalError(w, "updating decision", err)
		return false
	}
	s.logger.Info("review updated", zap.String("tweet_id", id))
	return true
}

func (s *Server) lookup(w http.ResponseWriter, id string) (*database.Tweet, bool) {
	t, err := s.db.Get(id)
	if err != nil {
		s.internalError(w, "loading tweet", err)
		return nil, false
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "tweet not found")
		return nil, false
	}
	return t, true
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	s.logger.Error(what, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve runs the server on 127.0.0.1:port until ctx is cancelled.
func Serve(ctx context.Context, db *database.DB, port int, logger *zap.Logger) error {
	s, err := New(db, logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("url", "http://"+addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
