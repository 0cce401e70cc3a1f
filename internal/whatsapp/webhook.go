package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hopeland/leasebot/internal/bot"
	"github.com/hopeland/leasebot/internal/logger"
)

// EventHandler receives each inbound message, in payload order.
type EventHandler func(ctx context.Context, ev bot.Event)

type WebhookHandler struct {
	verifyToken string
	onEvent     EventHandler
	log         zerolog.Logger
}

func NewWebhookHandler(verifyToken string, onEvent EventHandler, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		onEvent:     onEvent,
		log:         logger.Component(log, "webhook"),
	}
}

// HandleVerify handles the GET webhook verification from Meta.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/get-started#webhook-verification
func (h *WebhookHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleIncoming processes incoming webhook POST notifications. It always
// answers 200 so Meta does not redeliver.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/components
func (h *WebhookHandler) HandleIncoming(w http.ResponseWriter, r *http.Request) {
	var payload Notification
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Warn().Err(err).Msg("failed to decode payload")
		writeStatus(w, "error")
		return
	}

	// Replies go out after the request may have been closed by Meta.
	ctx := context.WithoutCancel(r.Context())
	for _, ev := range Events(payload) {
		h.onEvent(ctx, ev)
	}
	for _, st := range statuses(payload) {
		if st.Status != "failed" {
			continue
		}
		ev := h.log.Warn().Str("recipient", st.RecipientID).Str("message_id", st.ID)
		if len(st.Errors) > 0 {
			ev = ev.Int("code", st.Errors[0].Code).Str("reason", st.Errors[0].Title)
		}
		ev.Msg("delivery reported failed")
	}

	writeStatus(w, "ok")
}

// Events flattens a webhook payload into engine events.
func Events(payload Notification) []bot.Event {
	var out []bot.Event
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.From == "" {
					continue
				}
				ev := bot.Event{
					SubjectID:   msg.From,
					DisplayName: displayName(change.Value.Contacts, msg.From),
					Kind:        bot.EventText,
				}
				switch msg.Type {
				case "text":
					if msg.Text != nil {
						ev.Text = msg.Text.Body
					}
				case "interactive":
					if id := replyID(msg.Interactive); id != "" {
						ev.Kind = bot.EventSelection
						ev.SelectionID = id
					}
				}
				out = append(out, ev)
			}
		}
	}
	return out
}

func replyID(in *InteractiveReply) string {
	if in == nil {
		return ""
	}
	switch {
	case in.ListReply != nil:
		return in.ListReply.ID
	case in.ButtonReply != nil:
		return in.ButtonReply.ID
	}
	return ""
}

func displayName(contacts []Contact, waID string) string {
	for _, c := range contacts {
		if c.WaID == waID {
			return c.Profile.Name
		}
	}
	if len(contacts) > 0 {
		return contacts[0].Profile.Name
	}
	return ""
}

func statuses(payload Notification) []DeliveryStatus {
	var out []DeliveryStatus
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			out = append(out, change.Value.Statuses...)
		}
	}
	return out
}

func writeStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
