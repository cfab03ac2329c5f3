package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mewroo/marketx/app/scheduler"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := scheduler.Initialize(ctx)
	if err != nil {
		panic(err)
	}

	app.Start(ctx)
}
