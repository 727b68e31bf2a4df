package main

import (
	"context"
	"log"

	"smartfeed-be/internal/bootstrap"
	"smartfeed-be/internal/config"
	"smartfeed-be/internal/server"
	"smartfeed-be/internal/tracer"
)

func main() {
	// 0. Load Configuration
	cfg := config.Load()

	// 1. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer(cfg.App.OtelServiceName)
	defer shutdownTracer(context.Background())

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Services
	ctx := context.Background()

	go func() {
		log.Println("Background: Starting recompute ticker...")
		container.StreamService.RunTicker(ctx)
	}()

	go func() {
		log.Println("Background: Starting interaction consumer...")
		if err := container.SignalService.Consume(ctx); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	go func() {
		log.Println("Background: Starting digest scheduler...")
		container.DigestScheduler.Run(ctx)
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
