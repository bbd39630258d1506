package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	redisclient "github.com/yungbote/archsheet-backend/internal/clients/redis"
	"github.com/yungbote/archsheet-backend/internal/data/repos"
	"github.com/yungbote/archsheet-backend/internal/db"
	apphttp "github.com/yungbote/archsheet-backend/internal/http"
	httpH "github.com/yungbote/archsheet-backend/internal/http/handlers"
	"github.com/yungbote/archsheet-backend/internal/modules/design/drift"
	"github.com/yungbote/archsheet-backend/internal/observability"
	"github.com/yungbote/archsheet-backend/internal/platform/envutil"
	"github.com/yungbote/archsheet-backend/internal/platform/imagesynth"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
	"github.com/yungbote/archsheet-backend/internal/platform/mediastore"
	"github.com/yungbote/archsheet-backend/internal/services"
	"github.com/yungbote/archsheet-backend/internal/sse"
)

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Router *gin.Engine
	Server *apphttp.Server
	Cfg    Config
	Hub    *sse.Hub

	bus          redisclient.Bus
	metrics      *observability.Metrics
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	dbs, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if envutil.Bool("DB_AUTO_MIGRATE", true) {
		if err := dbs.AutoMigrateAll(); err != nil {
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}
	theDB := dbs.DB()

	hub := sse.NewHub(log)
	bus, err := redisclient.NewBus(context.Background(), log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init redis bus: %w", err)
	}
	var busPub sse.BusPublisher
	if bus != nil {
		busPub = bus
	}
	var notifier services.Notifier = sse.NewStateNotifier(log, hub, busPub)

	baselineRepo := repos.NewBaselineRepo(theDB, log)

	synth, err := imagesynth.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init image provider: %w", err)
	}
	media, err := mediastore.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init media store: %w", err)
	}
	checker := drift.NewChecker(cfg.Drift, mediastore.NewImageLoader(media), log)

	sheets := services.NewSheetService(log, baselineRepo, synth, media, checker, cfg.Validation, notifier)

	metrics := observability.Init(log)

	mediaDir := ""
	if envutil.Str("STORAGE_MODE", "local") == "local" {
		mediaDir = envutil.Str("MEDIA_LOCAL_DIR", "data/sheets")
	}
	server := apphttp.NewServer(apphttp.RouterConfig{
		Log:           log,
		Metrics:       metrics,
		SheetHandler:  httpH.NewSheetHandler(log, sheets),
		StreamHandler: httpH.NewStreamHandler(log, hub),
		HealthHandler: httpH.NewHealthHandler(),
		MediaDir:      mediaDir,
	})

	return &App{
		Log:     log,
		DB:      theDB,
		Router:  server.Engine,
		Server:  server,
		Cfg:     cfg,
		Hub:     hub,
		bus:     bus,
		metrics: metrics,
	}, nil
}

// Start launches the background pieces: tracing, the metrics endpoint and
// collectors, and the cross-replica event forwarder.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "archsheet",
		Environment: a.Cfg.Environment,
		Version:     a.Cfg.Version,
	})

	if a.metrics != nil {
		a.metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	}
	if a.bus != nil {
		a.bus.StartForwarder(ctx, a.Hub)
	}
}

// Run serves HTTP until ctx is canceled (SIGINT/SIGTERM in main), draining
// in-flight requests before returning so Close can flush spans and release
// the bus.
func (a *App) Run(ctx context.Context, addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("serving", "addr", addr)
	return a.Server.Run(ctx, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithCancel(context.Background())
		_ = a.otelShutdown(shutdownCtx)
		cancel()
	}
	if a.bus != nil {
		_ = a.bus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
