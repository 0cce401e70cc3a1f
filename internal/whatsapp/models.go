package whatsapp

// Inbound webhook notification, reduced to what the leasing flow reads.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/components

type Notification struct {
	Entry []NotificationEntry `json:"entry"`
}

type NotificationEntry struct {
	Changes []NotificationChange `json:"changes"`
}

type NotificationChange struct {
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	Contacts []Contact        `json:"contacts"`
	Messages []InboundMessage `json:"messages"`
	Statuses []DeliveryStatus `json:"statuses"`
}

// Contact carries the prospect's WhatsApp profile name, used as the
// enquiry's display name.
type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

type Profile struct {
	Name string `json:"name"`
}

type InboundMessage struct {
	From        string            `json:"from"`
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Text        *InboundText      `json:"text,omitempty"`
	Interactive *InteractiveReply `json:"interactive,omitempty"`
}

type InboundText struct {
	Body string `json:"body"`
}

// InteractiveReply is a tap on a list row or reply button we sent. Only the
// row or button id matters; it carries the cat_ or listing_ prefix.
type InteractiveReply struct {
	Type        string    `json:"type"`
	ButtonReply *ReplyRef `json:"button_reply,omitempty"`
	ListReply   *ReplyRef `json:"list_reply,omitempty"`
}

type ReplyRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type DeliveryStatus struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	RecipientID string        `json:"recipient_id"`
	Errors      []StatusError `json:"errors,omitempty"`
}

// StatusError explains a failed delivery, e.g. 131047 when the 24h
// customer service window has closed.
type StatusError struct {
	Code  int    `json:"code"`
	Title string `json:"title"`
}

// Outbound messages.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/reference/messages

type OutboundMessage struct {
	MessagingProduct string         `json:"messaging_product"`
	RecipientType    string         `json:"recipient_type"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Text             *OutboundText  `json:"text,omitempty"`
	Interactive      *ListMessage   `json:"interactive,omitempty"`
	Image            *OutboundImage `json:"image,omitempty"`
}

func newOutbound(to, kind string) OutboundMessage {
	return OutboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             kind,
	}
}

type OutboundText struct {
	Body string `json:"body"`
}

// OutboundImage references either an uploaded media id or a public link.
type OutboundImage struct {
	ID      string `json:"id,omitempty"`
	Link    string `json:"link,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// ListMessage is an interactive list: at most ten rows across all sections.
// Reference: https://developers.facebook.com/docs/whatsapp/cloud-api/messages/interactive-list-messages
type ListMessage struct {
	Type   string     `json:"type"`
	Body   ListBody   `json:"body"`
	Action ListAction `json:"action"`
}

type ListBody struct {
	Text string `json:"text"`
}

type ListAction struct {
	Button   string        `json:"button"`
	Sections []ListSection `json:"sections"`
}

type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type mediaUploadResponse struct {
	ID string `json:"id"`
}
