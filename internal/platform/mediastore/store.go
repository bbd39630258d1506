package mediastore

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/yungbote/archsheet-backend/internal/platform/envutil"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

// Store persists rendered sheet rasters. Keys are opaque references of the
// form "<designId>/<version>.png" produced by the orchestrator.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// New selects a backend from STORAGE_MODE ("local" or "gcs", default local).
func New(log *logger.Logger) (Store, error) {
	mode := strings.ToLower(envutil.Str("STORAGE_MODE", "local"))
	var (
		backend Store
		err     error
	)
	switch mode {
	case "local":
		backend, err = NewLocalStore(log)
	case "gcs":
		backend, err = NewGCSStore(log)
	default:
		return nil, fmt.Errorf("unknown STORAGE_MODE %q", mode)
	}
	if err != nil {
		return nil, err
	}
	return instrument(backend), nil
}

// ImageLoader decodes stored rasters for the drift checker.
type ImageLoader struct {
	store Store
}

func NewImageLoader(store Store) *ImageLoader {
	return &ImageLoader{store: store}
}

func (l *ImageLoader) LoadImage(ctx context.Context, ref string) (image.Image, error) {
	rc, err := l.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored raster %q: %w", ref, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode stored raster %q: %w", ref, err)
	}
	return img, nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
