// Package admin serves the operator endpoints: the enquiry page, manual
// digest runs and the way back from human handoff.
package admin

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/hopeland/leasebot/internal/digest"
	"github.com/hopeland/leasebot/internal/enquiry"
	"github.com/hopeland/leasebot/internal/logger"
	"github.com/hopeland/leasebot/internal/session"
)

//go:embed page.html
var pageFS embed.FS

var pageTmpl = template.Must(template.ParseFS(pageFS, "page.html"))

const (
	defaultHours = 6
	maxHours     = 24 * 90
)

type pageData struct {
	Business string
	Hours    int
	Entries  []enquiry.Entry
	Token    string
	Message  string
	Error    bool
}

type DigestRunner interface {
	SendOnce(ctx context.Context) (digest.Report, error)
}

type Resumer interface {
	Resume(ctx context.Context, subjectID string) error
}

type EnquiryLog interface {
	enquiry.Reader
	MarkReviewed(ctx context.Context, id string) error
}

type Handler struct {
	business string
	token    string
	digest   DigestRunner
	sessions Resumer
	log      EnquiryLog
	logger   zerolog.Logger
	now      func() time.Time
}

func NewHandler(business, token string, d DigestRunner, s Resumer, l EnquiryLog, log zerolog.Logger) *Handler {
	return &Handler{
		business: business,
		token:    token,
		digest:   d,
		sessions: s,
		log:      l,
		logger:   logger.Component(log, "admin"),
		now:      time.Now,
	}
}

// Routes mounts the admin endpoints under /admin.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireToken)
		r.Get("/", h.HandlePage)
		r.Get("/enquiries", h.HandleEnquiries)
		r.Post("/enquiries/{id}/reviewed", h.HandleReviewed)
		r.Post("/digest/send-now", h.HandleSendDigest)
		r.Post("/sessions/{subject}/resume", h.HandleResume)
	})
}

// requireToken accepts the token as a bearer header or a token query value
// so the HTML page's forms work. An empty token leaves the routes open.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.URL.Query().Get("token")
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			got = strings.TrimPrefix(auth, "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHours(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data := pageData{
		Business: h.business,
		Hours:    hours,
		Token:    r.URL.Query().Get("token"),
		Message:  r.URL.Query().Get("msg"),
	}
	data.Entries, err = h.log.Since(r.Context(), h.now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		h.logger.Error().Err(err).Msg("listing enquiries")
		data.Message = "Could not read the enquiry log."
		data.Error = true
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		h.logger.Error().Err(err).Msg("rendering admin page")
	}
}

func (h *Handler) HandleEnquiries(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHours(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	entries, err := h.log.Since(r.Context(), h.now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		h.logger.Error().Err(err).Msg("listing enquiries")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "reading enquiries failed"})
		return
	}
	if entries == nil {
		entries = []enquiry.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hours": hours, "count": len(entries), "enquiries": entries})
}

func (h *Handler) HandleReviewed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.log.MarkReviewed(r.Context(), id)
	switch {
	case errors.Is(err, enquiry.ErrNotFound):
		h.respond(w, r, http.StatusNotFound, map[string]string{"error": "enquiry not found"}, "Enquiry not found.")
	case err != nil:
		h.logger.Error().Err(err).Str("id", id).Msg("marking enquiry reviewed")
		h.respond(w, r, http.StatusInternalServerError, map[string]string{"error": "update failed"}, "Update failed.")
	default:
		h.respond(w, r, http.StatusOK, map[string]string{"status": "ok"}, "Marked reviewed.")
	}
}

func (h *Handler) HandleSendDigest(w http.ResponseWriter, r *http.Request) {
	report, err := h.digest.SendOnce(r.Context())
	resp := map[string]any{"sent": err == nil, "count": report.Count, "subject": report.Subject}
	switch {
	case errors.Is(err, digest.ErrEmailDisabled):
		resp["reason"] = "email not configured"
		writeJSON(w, http.StatusOK, resp)
	case err != nil:
		h.logger.Error().Err(err).Msg("manual digest failed")
		resp["reason"] = err.Error()
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	if subject == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject required"})
		return
	}
	err := h.sessions.Resume(r.Context(), subject)
	if errors.Is(err, session.ErrNotFound) {
		h.respond(w, r, http.StatusNotFound, map[string]string{"error": "unknown subject"}, "No conversation with "+subject+".")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("subject", subject).Msg("resuming session")
		h.respond(w, r, http.StatusInternalServerError, map[string]string{"error": "resume failed"}, "Resume failed.")
		return
	}
	h.logger.Info().Str("subject", subject).Msg("session returned to bot")
	h.respond(w, r, http.StatusOK, map[string]string{"status": "ok", "subject": subject}, "Bot resumed for "+subject+".")
}

// respond redirects browser form posts back to the page and answers JSON
// otherwise.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int, body any, msg string) {
	if !strings.Contains(r.Header.Get("Accept"), "text/html") {
		writeJSON(w, status, body)
		return
	}
	q := url.Values{"msg": {msg}}
	if tok := r.URL.Query().Get("token"); tok != "" {
		q.Set("token", tok)
	}
	http.Redirect(w, r, "/admin/?"+q.Encode(), http.StatusSeeOther)
}

func parseHours(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return defaultHours, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxHours {
		return 0, errors.New("hours must be a positive integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
