package imagesynth

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/archsheet-backend/internal/platform/envutil"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

// Request describes one sheet render. Seed pins the provider's sampler so
// that identical requests produce identical rasters.
type Request struct {
	Prompt          string
	NegativePrompt  string
	LockInstruction string
	Seed            int64
	Width           int
	Height          int
}

// Result carries the rendered raster. EchoedSeed is the seed the provider
// reports it actually used; callers must treat a mismatch as a failed render.
type Result struct {
	Image      []byte
	MimeType   string
	EchoedSeed int64
}

// Client renders architectural sheets from a prompt and a pinned seed.
type Client interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// New selects a provider from IMAGESYNTH_PROVIDER ("http" or "mock").
// When unset, "http" is used if IMAGESYNTH_BASE_URL is configured,
// otherwise the deterministic mock renderer.
func New(log *logger.Logger) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(envutil.Str("IMAGESYNTH_PROVIDER", "")))
	if provider == "" {
		if strings.TrimSpace(envutil.Str("IMAGESYNTH_BASE_URL", "")) != "" {
			provider = "http"
		} else {
			provider = "mock"
		}
	}
	switch provider {
	case "http":
		return NewHTTPClient(log)
	case "mock":
		return NewMockRenderer(log)
	default:
		return nil, fmt.Errorf("unknown IMAGESYNTH_PROVIDER %q", provider)
	}
}
