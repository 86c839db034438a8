package server

import (
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/TobiSchelling/tweetcurator/internal/database"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	f, p, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := s.db.List(f, p)
	if err != nil {
		s.logger.Error("listing tweets", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	view := newPageView(page)
	s.render(w, "index.html", map[string]any{
		"Page":     view,
		"Query":    r.URL.Query(),
		"HasPrev":  view.Page > 1,
		"HasNext":  view.Page*view.PageSize < view.Total,
		"PrevLink": pageLink(r.URL.Query(), view.Page-1),
		"NextLink": pageLink(r.URL.Query(), view.Page+1),
	})
}

func pageLink(q url.Values, page int) string {
	out := url.Values{}
	for k, v := range q {
		out[k] = v
	}
	out.Set("page", strconv.Itoa(page))
	return "/?" + out.Encode()
}

func (s *Server) handleTweetPage(w http.ResponseWriter, r *http.Request) {
	t, err := s.db.Get(r.PathValue("id"))
	if err != nil {
		s.logger.Error("loading tweet", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if t == nil {
		http.NotFound(w, r)
		return
	}

	snaps, err := s.db.GetSnapshots(t.ID)
	if err != nil {
		s.logger.Error("loading snapshots", zap.Error(err))
	}

	s.render(w, "tweet.html", map[string]any{
		"Tweet":     newTweetView(*t),
		"Snapshots": snaps,
	})
}

// handleDecisionForm is the HTML form counterpart of POST /api/tweets/{id}/decision.
// Empty form fields are left unchanged.
func (s *Server) handleDecisionForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	var u database.HumanUpdate
	if v := r.PostForm.Get("decision"); v != "" {
		d, err := database.ParseHumanDecision(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		u.Decision = &d
	}
	if v := r.PostForm.Get("published_tweet_id"); v != "" {
		u.PublishedTweetID = &v
	}
	if v := r.PostForm.Get("correction"); v != "" {
		u.Correction = &v
	}

	if !s.applyUpdate(w, id, u) {
		return
	}
	http.Redirect(w, r, "/tweets/"+url.PathEscape(id), http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("name", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.logger.Error("rendering template", zap.String("name", name), zap.Error(err))
	}
}
