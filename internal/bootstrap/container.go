package bootstrap

import (
	"context"
	"log"
	"time"

	"snapvalue-be/internal/config"
	"snapvalue-be/internal/controller"
	"snapvalue-be/internal/handler"
	"snapvalue-be/internal/pkg/logger"
	"snapvalue-be/internal/repository/memory"
	"snapvalue-be/internal/service"
	"snapvalue-be/internal/websocket"
	"snapvalue-be/pkg/analysis"
	"snapvalue-be/pkg/camera"
	"snapvalue-be/pkg/camera/factory"
	"snapvalue-be/pkg/capture"
	"snapvalue-be/pkg/lifecycle"

	pktNats "snapvalue-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// lifecycleTopic is the in-process watermill topic carrying capture
// lifecycle events from the domain services to the consumer.
const lifecycleTopic = "CAPTURE_LIFECYCLE"

type Container struct {
	// Controllers
	SessionController  controller.ISessionController
	CameraController   controller.ICameraController
	BatchController    controller.IBatchController
	AnalysisController controller.IAnalysisController
	SystemController   controller.ISystemController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	ProgressHandler *handler.ProgressHandler
	WebSocketHub    *websocket.Hub
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/progress.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Camera hardware
	provider, err := factory.NewMediaProvider(cfg.Camera.Provider, cfg.Camera.FPS, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize media provider: %v", err)
	}
	manager, err := camera.NewManager(provider, camera.NopSurface{}, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize camera manager: %v", err)
	}
	log.Printf("[INFO] Using Camera Provider: %s (%dx%d @ %.0f fps)",
		cfg.Camera.Provider, cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS)

	// 4. Analysis upstream
	client, err := analysis.NewClient(analysis.ClientConfig{
		StreamURL:      cfg.Analysis.StreamURL,
		FallbackURL:    cfg.Analysis.FallbackURL,
		RequestTimeout: time.Duration(cfg.Analysis.RequestTimeoutSec) * time.Second,
	}, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize analysis client: %v", err)
	}
	compressor := capture.NewCompressor(capture.CompressorConfig{
		MaxWidth:       cfg.Batch.MaxWidth,
		MaxHeight:      cfg.Batch.MaxHeight,
		TargetBytes:    cfg.Batch.TargetBytes,
		SkipBelowBytes: cfg.Batch.SkipBelowBytes,
	})
	pipelineCfg := analysis.PipelineConfig{
		UploadCeilingBytes: cfg.Analysis.UploadCeilingBytes,
		StreamTimeout:      time.Duration(cfg.Analysis.StreamTimeoutSec) * time.Second,
		IdleTimeout:        time.Duration(cfg.Analysis.IdleTimeoutSec) * time.Second,
	}

	// 5. Lifecycle event flow: services -> watermill -> consumer -> NATS
	publisherService := service.NewPublisherService(lifecycleTopic, pubSub)
	lifecyclePublisher := lifecycle.NewBusPublisher(publisherService, sysLogger)
	consumerService := service.NewConsumerService(pubSub, lifecycleTopic, natsPub)

	// Initialize In-Memory Session Storage
	sessionRepo := memory.NewSessionRepository(
		time.Duration(cfg.Session.TTLMinutes)*time.Minute,
		time.Duration(cfg.Session.PurgeMinutes)*time.Minute,
	)

	// 6. Services
	sessionService := service.NewSessionService(
		sessionRepo,
		client,
		compressor,
		cfg.Batch.MaxItems,
		pipelineCfg,
		lifecyclePublisher,
		sysLogger,
	)
	captureService := service.NewCaptureService(manager, sessionService, wsHub, lifecyclePublisher, sysLogger)
	batchService := service.NewBatchService(sessionService, lifecyclePublisher, sysLogger)
	analysisService := service.NewAnalysisService(
		sessionService,
		cfg.Analysis.AuthToken,
		wsHub, // Hub implements ProgressDelivery
		lifecyclePublisher,
		sysLogger,
	)

	// Handler
	progressHandler := handler.NewProgressHandler(sessionService, natsPub, wsHub, wsLogger)

	// 7. Controllers
	return &Container{
		ProgressHandler:    progressHandler,
		WebSocketHub:       wsHub,
		SessionController:  controller.NewSessionController(sessionService),
		CameraController:   controller.NewCameraController(captureService),
		BatchController:    controller.NewBatchController(batchService),
		AnalysisController: controller.NewAnalysisController(analysisService),
		SystemController:   controller.NewSystemController(captureService, sessionService, sysLogger),

		ConsumerService: consumerService,
	}
}
