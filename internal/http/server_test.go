package http

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/archsheet-backend/internal/http/handlers"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

func TestServerRunStopsCleanlyOnContextCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	srv := NewServer(RouterConfig{
		Log:           log,
		HealthHandler: httpH.NewHealthHandler(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("graceful shutdown returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}

func TestServerRunSurfacesBindError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	srv := NewServer(RouterConfig{Log: log})

	if err := srv.Run(context.Background(), "256.0.0.1:0"); err == nil {
		t.Fatal("expected an error for an unbindable address")
	}
}
