package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopeland/leasebot/internal/digest"
	"github.com/hopeland/leasebot/internal/enquiry"
	"github.com/hopeland/leasebot/internal/session"
)

type fakeDigest struct {
	report digest.Report
	err    error
	calls  int
}

func (f *fakeDigest) SendOnce(context.Context) (digest.Report, error) {
	f.calls++
	return f.report, f.err
}

type fakeResumer struct {
	resumed []string
	err     error
}

func (f *fakeResumer) Resume(_ context.Context, id string) error {
	f.resumed = append(f.resumed, id)
	return f.err
}

type fakeLog struct {
	entries  []enquiry.Entry
	since    time.Time
	reviewed []string
}

func (f *fakeLog) Since(_ context.Context, since time.Time) ([]enquiry.Entry, error) {
	f.since = since
	return f.entries, nil
}

func (f *fakeLog) MarkReviewed(_ context.Context, id string) error {
	for _, e := range f.entries {
		if e.ID == id {
			f.reviewed = append(f.reviewed, id)
			return nil
		}
	}
	return enquiry.ErrNotFound
}

type harness struct {
	router  chi.Router
	digest  *fakeDigest
	resumer *fakeResumer
	log     *fakeLog
	now     time.Time
}

func newHarness(token string) *harness {
	h := &harness{
		digest:  &fakeDigest{report: digest.Report{Subject: "subj", Count: 2}},
		resumer: &fakeResumer{},
		log: &fakeLog{entries: []enquiry.Entry{{
			ID:             "e1",
			TimestampLocal: "2026-10-18 09:00:00",
			Record:         enquiry.Record{SubjectID: "974555", ListingID: "R101", ListingTitle: "Furnished"},
		}}},
		now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
	handler := NewHandler("HOPELAND", token, h.digest, h.resumer, h.log, zerolog.Nop())
	handler.now = func() time.Time { return h.now }
	r := chi.NewRouter()
	handler.Routes(r)
	h.router = r
	return h
}

func (h *harness) do(method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func TestTokenRequired(t *testing.T) {
	h := newHarness("s3cret")

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/admin/enquiries", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		h.do(http.MethodGet, "/admin/enquiries", map[string]string{"Authorization": "Bearer nope"}).Code)
	assert.Equal(t, http.StatusOK,
		h.do(http.MethodGet, "/admin/enquiries", map[string]string{"Authorization": "Bearer s3cret"}).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/admin/enquiries?token=s3cret", nil).Code)
}

func TestOpenWithoutToken(t *testing.T) {
	h := newHarness("")
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/admin/enquiries", nil).Code)
}

func TestEnquiriesJSON(t *testing.T) {
	h := newHarness("")

	rec := h.do(http.MethodGet, "/admin/enquiries?hours=12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, h.now.Add(-12*time.Hour), h.log.since)

	var body struct {
		Hours     int             `json:"hours"`
		Count     int             `json:"count"`
		Enquiries []enquiry.Entry `json:"enquiries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 12, body.Hours)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "R101", body.Enquiries[0].ListingID)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/admin/enquiries?hours=abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/admin/enquiries?hours=0", nil).Code)
}

func TestPageRendersEntries(t *testing.T) {
	h := newHarness("")

	rec := h.do(http.MethodGet, "/admin/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "HOPELAND WhatsApp enquiries")
	assert.Contains(t, rec.Body.String(), "R101")
	assert.Equal(t, h.now.Add(-6*time.Hour), h.log.since)
}

func TestSendDigestNow(t *testing.T) {
	h := newHarness("")

	rec := h.do(http.MethodPost, "/admin/digest/send-now", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sent":true,"count":2,"subject":"subj"}`, rec.Body.String())
	assert.Equal(t, 1, h.digest.calls)

	h.digest.err = digest.ErrEmailDisabled
	rec = h.do(http.MethodPost, "/admin/digest/send-now", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sent":false`)

	h.digest.err = errors.New("sendgrid down")
	rec = h.do(http.MethodPost, "/admin/digest/send-now", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestResume(t *testing.T) {
	h := newHarness("")

	rec := h.do(http.MethodPost, "/admin/sessions/974555/resume", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"974555"}, h.resumer.resumed)

	h.resumer.err = session.ErrNotFound
	rec = h.do(http.MethodPost, "/admin/sessions/97400000000/resume", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h.resumer.err = errors.New("store down")
	rec = h.do(http.MethodPost, "/admin/sessions/974555/resume", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResumeFromBrowserRedirects(t *testing.T) {
	h := newHarness("tok")

	rec := h.do(http.MethodPost, "/admin/sessions/974555/resume?token=tok", map[string]string{"Accept": "text/html"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "/admin/?")
	assert.Contains(t, loc, "token=tok")
}

func TestMarkReviewed(t *testing.T) {
	h := newHarness("")

	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/admin/enquiries/e1/reviewed", nil).Code)
	assert.Equal(t, []string{"e1"}, h.log.reviewed)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/admin/enquiries/missing/reviewed", nil).Code)
}
