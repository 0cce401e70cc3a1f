package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopeland/leasebot/internal/compose"
)

type captured struct {
	mu       sync.Mutex
	requests []OutboundMessage
	uploads  int32
}

func newTestServer(t *testing.T, c *captured, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/PHONE/messages":
			var req OutboundMessage
			if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
				return
			}
			c.mu.Lock()
			c.requests = append(c.requests, req)
			c.mu.Unlock()
			w.WriteHeader(status)
			w.Write([]byte(`{}`))
		case "/PHONE/media":
			atomic.AddInt32(&c.uploads, 1)
			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				return
			}
			assert.Equal(t, "whatsapp", r.FormValue("messaging_product"))
			f, hdr, err := r.FormFile("file")
			if !assert.NoError(t, err) {
				return
			}
			defer f.Close()
			assert.Equal(t, "photo.jpg", hdr.Filename)
			assert.Equal(t, "image/jpeg", hdr.Header.Get("Content-Type"))
			w.WriteHeader(status)
			w.Write([]byte(`{"id":"MEDIA123"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendComposedMessages(t *testing.T) {
	var c captured
	srv := newTestServer(t, &c, http.StatusOK)
	client := NewClient(srv.URL, "PHONE", "tok")
	ctx := context.Background()

	require.NoError(t, client.Send(ctx, "974", compose.Text{Body: "hello"}))
	require.NoError(t, client.Send(ctx, "974", compose.Menu{
		Body:   "pick",
		Button: "Browse",
		Sections: []compose.Section{{
			Title: "Select a category",
			Rows:  []compose.Row{{ID: "cat_1bhk", Title: "1BHK", Description: "Spacious"}},
		}},
	}))
	require.NoError(t, client.Send(ctx, "974", compose.Image{
		Payload: compose.ImagePayload{MediaID: "M1"},
		Caption: "Unit R101 — photo 1",
	}))

	require.Len(t, c.requests, 3)

	txt := c.requests[0]
	assert.Equal(t, "text", txt.Type)
	assert.Equal(t, "974", txt.To)
	assert.Equal(t, "hello", txt.Text.Body)

	list := c.requests[1]
	assert.Equal(t, "interactive", list.Type)
	assert.Equal(t, "list", list.Interactive.Type)
	assert.Equal(t, "Browse", list.Interactive.Action.Button)
	assert.Equal(t, "cat_1bhk", list.Interactive.Action.Sections[0].Rows[0].ID)

	img := c.requests[2]
	assert.Equal(t, "image", img.Type)
	assert.Equal(t, "M1", img.Image.ID)
	assert.Empty(t, img.Image.Link)
	assert.Equal(t, "Unit R101 — photo 1", img.Image.Caption)
}

func TestSendErrorStatus(t *testing.T) {
	var c captured
	srv := newTestServer(t, &c, http.StatusBadRequest)
	client := NewClient(srv.URL, "PHONE", "tok")

	err := client.Send(context.Background(), "974", compose.Text{Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestSendImageRequiresPayload(t *testing.T) {
	client := NewClient("http://unused", "PHONE", "tok")
	assert.Error(t, client.Send(context.Background(), "974", compose.Image{}))
}

func TestMediaResolver(t *testing.T) {
	var c captured
	srv := newTestServer(t, &c, http.StatusOK)
	client := NewClient(srv.URL, "PHONE", "tok")

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "media"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "media", "photo.jpg"), []byte("jpegbytes"), 0o600))

	r := NewMediaResolver(client, dir, zerolog.Nop())
	ctx := context.Background()

	p, ok := r.Resolve(ctx, "https://cdn.example.com/a.jpg")
	require.True(t, ok)
	assert.Equal(t, compose.ImagePayload{Link: "https://cdn.example.com/a.jpg"}, p)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, ok := r.Resolve(ctx, "media/photo.jpg")
			assert.True(t, ok)
			assert.Equal(t, "MEDIA123", p.MediaID)
		}()
	}
	wg.Wait()

	p, ok = r.Resolve(ctx, " media/photo.jpg ")
	require.True(t, ok)
	assert.Equal(t, "MEDIA123", p.MediaID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&c.uploads))

	_, ok = r.Resolve(ctx, "media/missing.jpg")
	assert.False(t, ok)
	_, ok = r.Resolve(ctx, "")
	assert.False(t, ok)
}

func TestMediaResolverUploadFailure(t *testing.T) {
	var c captured
	srv := newTestServer(t, &c, http.StatusInternalServerError)
	client := NewClient(srv.URL, "PHONE", "tok")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte("x"), 0o600))

	r := NewMediaResolver(client, dir, zerolog.Nop())
	_, ok := r.Resolve(context.Background(), "photo.jpg")
	assert.False(t, ok)
}

func TestUploadMediaDecodesID(t *testing.T) {
	var c captured
	srv := newTestServer(t, &c, http.StatusOK)
	client := NewClient(srv.URL, "PHONE", "tok")

	id, err := client.UploadMedia(context.Background(), "/tmp/photo.jpg", "image/jpeg", strings.NewReader("abc"))
	require.NoError(t, err)
	assert.Equal(t, "MEDIA123", id)
}
