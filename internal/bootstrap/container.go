package bootstrap

import (
	"context"
	"log"
	"time"

	"smartfeed-be/internal/config"
	"smartfeed-be/internal/handler"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/pkg/mailer"
	"smartfeed-be/internal/repository"
	"smartfeed-be/internal/repository/implementation"
	"smartfeed-be/internal/repository/memory"
	"smartfeed-be/internal/service"
	"smartfeed-be/internal/websocket"
	"smartfeed-be/pkg/engine/timing"

	pktNats "smartfeed-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Handlers
	StreamHandler     *handler.StreamHandler
	SignalHandler     *handler.SignalHandler
	PreferenceHandler *handler.PreferenceHandler

	// Background services (exposed for main.go to run)
	StreamService   *service.StreamService
	SignalService   service.ISignalService
	DigestScheduler *service.DigestScheduler

	WebSocketHub *websocket.Hub
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event buses
	// NATS carries producer events in; the in-process watermill channel
	// carries interaction signals between handler and taste model.
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis backs preference persistence and hub fan-out. A failed
	// connection degrades to in-memory persistence for the process.
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)

	var kv repository.KeyValueStore
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Preferences held in memory only", err)
		kv = memory.NewKeyValueStore()
	} else {
		kv = implementation.NewRedisKeyValueStore(rdb)
	}

	// 3. WebSocket hub
	wsLogger := logger.NewIsolatedLogger("logs/delivery.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 4. Engine services
	sessionTTL := time.Duration(cfg.Engine.SessionTTLMinutes) * time.Minute
	sessionRepo := memory.NewSessionRepository(sessionTTL)
	policy := timing.NewPolicy(kv, sysLogger)

	streamService := service.NewStreamService(
		sessionRepo,
		kv,
		natsSub,
		policy,
		wsHub,
		sysLogger,
		time.Duration(cfg.Engine.TickSeconds)*time.Second,
		sessionTTL,
	)
	signalService := service.NewSignalService(pubSub, streamService, sysLogger)
	digestScheduler := service.NewDigestScheduler(
		streamService,
		emailService,
		wsHub,
		sysLogger,
		time.Duration(cfg.Engine.DigestCheckSeconds)*time.Second,
	)

	if natsSub != nil {
		go streamService.Start()
	}

	// 5. Handlers
	return &Container{
		StreamHandler:     handler.NewStreamHandler(streamService, natsPub, wsHub, sysLogger),
		SignalHandler:     handler.NewSignalHandler(signalService, streamService, sysLogger),
		PreferenceHandler: handler.NewPreferenceHandler(streamService, sysLogger),

		StreamService:   streamService,
		SignalService:   signalService,
		DigestScheduler: digestScheduler,

		WebSocketHub: wsHub,
	}
}
