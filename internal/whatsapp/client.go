package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"time"

	"github.com/hopeland/leasebot/internal/compose"
)

const DefaultAPIBase = "https://graph.facebook.com/v19.0"

type Client struct {
	apiBase       string
	phoneNumberID string
	accessToken   string
	http          *http.Client
}

func NewClient(apiBase, phoneNumberID, accessToken string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		apiBase:       apiBase,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

// Send delivers one composed message.
func (c *Client) Send(ctx context.Context, to string, msg compose.Message) error {
	switch m := msg.(type) {
	case compose.Text:
		return c.SendText(ctx, to, m.Body)
	case compose.Menu:
		return c.SendList(ctx, to, m.Body, m.Button, toSections(m.Sections))
	case compose.Image:
		return c.SendImage(ctx, to, m.Payload, m.Caption)
	default:
		return fmt.Errorf("unsupported message kind %T", msg)
	}
}

func (c *Client) SendText(ctx context.Context, to, body string) error {
	msg := newOutbound(to, "text")
	msg.Text = &OutboundText{Body: body}
	return c.send(ctx, msg)
}

func (c *Client) SendList(ctx context.Context, to, body, buttonText string, sections []ListSection) error {
	msg := newOutbound(to, "interactive")
	msg.Interactive = &ListMessage{
		Type:   "list",
		Body:   ListBody{Text: body},
		Action: ListAction{Button: buttonText, Sections: sections},
	}
	return c.send(ctx, msg)
}

func (c *Client) SendImage(ctx context.Context, to string, img compose.ImagePayload, caption string) error {
	if img.Empty() {
		return fmt.Errorf("image without link or media id")
	}
	msg := newOutbound(to, "image")
	msg.Image = &OutboundImage{ID: img.MediaID, Link: img.Link, Caption: caption}
	return c.send(ctx, msg)
}

// UploadMedia uploads a file to the phone number's media store and returns
// the media id to reference it in messages.
func (c *Client) UploadMedia(ctx context.Context, filename, mimeType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("reading media: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/media", c.apiBase, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading media: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("whatsapp media status %d: %s", resp.StatusCode, respBody)
	}

	var out mediaUploadResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decoding media response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("no media id returned for %s: %s", filename, respBody)
	}
	return out.ID, nil
}

func (c *Client) send(ctx context.Context, msg OutboundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.apiBase, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp API status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

func toSections(sections []compose.Section) []ListSection {
	wa := make([]ListSection, len(sections))
	for i, s := range sections {
		rows := make([]ListRow, len(s.Rows))
		for j, r := range s.Rows {
			rows[j] = ListRow{ID: r.ID, Title: r.Title, Description: r.Description}
		}
		wa[i] = ListSection{Title: s.Title, Rows: rows}
	}
	return wa
}
