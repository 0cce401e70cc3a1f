package whatsapp

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/hopeland/leasebot/internal/compose"
	"github.com/hopeland/leasebot/internal/logger"
)

type mediaUploader interface {
	UploadMedia(ctx context.Context, filename, mimeType string, r io.Reader) (string, error)
}

// MediaResolver turns catalog image references into sendable payloads.
// http(s) references pass through as links; anything else is a file under
// baseDir, uploaded once per process and then referenced by media id.
type MediaResolver struct {
	uploader mediaUploader
	baseDir  string
	log      zerolog.Logger

	mu    sync.RWMutex
	cache map[string]string
	group singleflight.Group
}

var _ compose.ImageResolver = (*MediaResolver)(nil)

func NewMediaResolver(uploader mediaUploader, baseDir string, log zerolog.Logger) *MediaResolver {
	return &MediaResolver{
		uploader: uploader,
		baseDir:  baseDir,
		log:      logger.Component(log, "media"),
		cache:    make(map[string]string),
	}
}

func (m *MediaResolver) Resolve(ctx context.Context, ref string) (compose.ImagePayload, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return compose.ImagePayload{}, false
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return compose.ImagePayload{Link: ref}, true
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.baseDir, path)
	}

	if id, ok := m.cached(path); ok {
		return compose.ImagePayload{MediaID: id}, true
	}

	v, err, _ := m.group.Do(path, func() (any, error) {
		if id, ok := m.cached(path); ok {
			return id, nil
		}
		id, err := m.upload(ctx, path)
		if err != nil {
			return "", err
		}
		m.mu.Lock()
		m.cache[path] = id
		m.mu.Unlock()
		return id, nil
	})
	if err != nil {
		m.log.Error().Err(err).Str("ref", ref).Msg("resolving image")
		return compose.ImagePayload{}, false
	}
	return compose.ImagePayload{MediaID: v.(string)}, true
}

func (m *MediaResolver) cached(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.cache[path]
	return id, ok
}

func (m *MediaResolver) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("media file not found: %w", err)
	}
	defer f.Close()

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return m.uploader.UploadMedia(ctx, path, mimeType, f)
}
