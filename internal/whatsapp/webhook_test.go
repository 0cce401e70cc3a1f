package whatsapp

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopeland/leasebot/internal/bot"
)

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "contacts": [
          {"profile": {"name": "Other"}, "wa_id": "111"},
          {"profile": {"name": "Aisha"}, "wa_id": "97455550000"}
        ],
        "messages": [
          {"from": "97455550000", "id": "m1", "type": "text", "text": {"body": "hi"}},
          {"from": "97455550000", "id": "m2", "type": "interactive",
           "interactive": {"type": "list_reply", "list_reply": {"id": "listing_R101", "title": "R101 1BHK"}}},
          {"from": "97455550000", "id": "m3", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "cat_studio", "title": "Studio"}}},
          {"from": "97455550000", "id": "m4", "type": "image"}
        ],
        "statuses": [{"id": "wamid", "status": "failed", "recipient_id": "97455550000"}]
      }
    }]
  }]
}`

func TestEventsFromPayload(t *testing.T) {
	var got []bot.Event
	h := NewWebhookHandler("tok", func(_ context.Context, ev bot.Event) {
		got = append(got, ev)
	}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(samplePayload))
	rec := httptest.NewRecorder()
	h.HandleIncoming(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.Len(t, got, 4)
	assert.Equal(t, bot.Event{SubjectID: "97455550000", DisplayName: "Aisha", Kind: bot.EventText, Text: "hi"}, got[0])
	assert.Equal(t, bot.Event{SubjectID: "97455550000", DisplayName: "Aisha", Kind: bot.EventSelection, SelectionID: "listing_R101"}, got[1])
	assert.Equal(t, bot.EventSelection, got[2].Kind)
	assert.Equal(t, "cat_studio", got[2].SelectionID)
	assert.Equal(t, bot.Event{SubjectID: "97455550000", DisplayName: "Aisha", Kind: bot.EventText}, got[3])
}

func TestIncomingBadJSONStillOK(t *testing.T) {
	called := false
	h := NewWebhookHandler("tok", func(context.Context, bot.Event) { called = true }, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleIncoming(rec, httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader("{")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called)
}

func TestFailedStatusLogsReason(t *testing.T) {
	var buf bytes.Buffer
	h := NewWebhookHandler("tok", func(context.Context, bot.Event) {}, zerolog.New(&buf))

	body := `{"entry":[{"changes":[{"value":{"statuses":[
	  {"id":"wamid.1","status":"delivered","recipient_id":"974"},
	  {"id":"wamid.2","status":"failed","recipient_id":"974",
	   "errors":[{"code":131047,"title":"Re-engagement message"}]}]}}]}]}`
	rec := httptest.NewRecorder()
	h.HandleIncoming(rec, httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "delivery reported failed"))
	assert.Contains(t, out, `"code":131047`)
	assert.Contains(t, out, `"message_id":"wamid.2"`)
	assert.Contains(t, out, `"component":"webhook"`)
}

func TestDisplayNameFallsBackToFirstContact(t *testing.T) {
	contacts := []Contact{{WaID: "1", Profile: Profile{Name: "First"}}}
	assert.Equal(t, "First", displayName(contacts, "2"))
	assert.Equal(t, "", displayName(nil, "2"))
}

func TestVerify(t *testing.T) {
	h := NewWebhookHandler("secret", nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.HandleVerify(rec, httptest.NewRequest(http.MethodGet,
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())

	rec = httptest.NewRecorder()
	h.HandleVerify(rec, httptest.NewRequest(http.MethodGet,
		"/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=42", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
