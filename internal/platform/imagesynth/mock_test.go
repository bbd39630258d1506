package imagesynth

import (
	"bytes"
	"context"
	"testing"

	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestMockRendererDeterministic(t *testing.T) {
	c, err := NewMockRenderer(testLogger(t))
	if err != nil {
		t.Fatalf("NewMockRenderer: %v", err)
	}

	req := Request{
		Prompt: "architectural sheet, 2 floors, brick facade, entrance north",
		Seed:   1234567,
		Width:  512,
		Height: 384,
	}

	a, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if a.EchoedSeed != req.Seed {
		t.Fatalf("echoed seed = %d, want %d", a.EchoedSeed, req.Seed)
	}
	if !bytes.Equal(a.Image, b.Image) {
		t.Fatalf("same prompt and seed must render identical bytes")
	}

	req2 := req
	req2.Seed = 7654321
	c2, err := NewMockRenderer(testLogger(t))
	if err != nil {
		t.Fatalf("NewMockRenderer: %v", err)
	}
	d, err := c2.Generate(context.Background(), req2)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if bytes.Equal(a.Image, d.Image) {
		t.Fatalf("different seeds should not render identical sheets")
	}
}

func TestMockRendererRequiresPrompt(t *testing.T) {
	c, err := NewMockRenderer(testLogger(t))
	if err != nil {
		t.Fatalf("NewMockRenderer: %v", err)
	}
	if _, err := c.Generate(context.Background(), Request{Seed: 1}); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}
