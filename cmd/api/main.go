package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/archsheet-backend/internal/app"
	"github.com/yungbote/archsheet-backend/internal/platform/shutdown"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a.Start()

	addr := ":" + a.Cfg.Port
	if err := a.Run(ctx, addr); err != nil {
		fmt.Printf("server exited: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}
