package app

import (
	"assessment_engine/internal/config"
	"assessment_engine/internal/controller"
	"assessment_engine/internal/repository"
	"assessment_engine/internal/service"
	"assessment_engine/pkg/configwatcher"
	"assessment_engine/pkg/database"
	"assessment_engine/pkg/keylock"
	"assessment_engine/pkg/logger"
	"assessment_engine/pkg/monitoring"
	"assessment_engine/pkg/notify"
	"assessment_engine/pkg/security"
	"assessment_engine/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	visitors        *security.VisitorStore
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	assessment  *repository.AssessmentRepository
	attempt     *repository.AttemptRepository
	progression *repository.ProgressionRepository
	enrollment  *repository.EnrollmentRepository
}

type services struct {
	assessment  *service.AssessmentService
	statistics  *service.StatisticsService
	attempt     *service.AttemptService
	progression *service.ProgressionService
	completion  *service.CompletionService
}

type controllers struct {
	assessment  *controller.AssessmentController
	attempt     *controller.AttemptController
	progression *controller.ProgressionController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		assessment:  repository.NewAssessmentRepository(db),
		attempt:     repository.NewAttemptRepository(db),
		progression: repository.NewProgressionRepository(db),
		enrollment:  repository.NewEnrollmentRepository(db, rdb, a.Config.Engine.EnrollmentTTL()),
	}
}

// newLocker picks the per-key lock backend. Redis is required once more
// than one engine instance serves the same database.
func (a *App) newLocker(rdb *redis.Client) service.Locker {
	if a.Config.Engine.LockBackend == config.LockBackendRedis && rdb != nil {
		return database.NewRedisLocker(rdb, a.Config.Engine.LockTTL())
	}
	return keylock.New()
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	log := logger.Log
	clock := service.SystemClock{}
	locks := a.newLocker(rdb)

	stats := service.NewStatisticsService(repos.assessment, cfg.Engine.MaxCASRetries, log.Named("statistics"))
	attempts := service.NewAttemptService(repos.assessment, repos.attempt, repos.enrollment, clock, locks, stats, log.Named("attempt"))
	progression := service.NewProgressionService(repos.progression, clock, locks, cfg.Engine.MaxCASRetries, cfg.Engine.ActivityLogCap, log.Named("progression"))

	if rdb != nil {
		progression.OnLevelUp(notify.NewRedisPublisher(rdb, cfg.Engine.LevelUpChannel, log).Publish)
	} else {
		progression.OnLevelUp(notify.LogListener(log))
	}

	return &services{
		assessment:  service.NewAssessmentService(repos.assessment, log.Named("assessment")),
		statistics:  stats,
		attempt:     attempts,
		progression: progression,
		completion:  service.NewCompletionService(attempts, progression, log.Named("completion")),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assessment:  controller.NewAssessmentController(s.assessment),
		attempt:     controller.NewAttemptController(s.attempt, s.completion),
		progression: controller.NewProgressionController(s.progression),
		health:      controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New wires an App around already opened connections. rdb may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		visitors: security.NewVisitorStore(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window()),
	}

	repos := app.initRepositories(db, rdb)
	app.services = app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(app.services, db, rdb)

	// 监控初始化
	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(func(c *config.Config) {
		logger.SetMode(c.Server.Mode)
		app.visitors.SetLimits(c.RateLimit.MaxRequests, c.RateLimit.Window())
	})
	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	gin.SetMode(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	// release 模式默认不迁移，需 -migrate 显式开启
	migrate := cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}
	return app
}

// startBackgroundTasks runs until ctx is cancelled; the returned func waits
// for the scheduler to drain.
func (a *App) startBackgroundTasks(ctx context.Context) func() {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(a.Config.Engine.ReconcileSpec, func() {
		if n, err := a.services.statistics.ReconcileDirty(ctx); err != nil {
			logger.Log.Error("statistics reconcile failed", zap.Error(err))
		} else if n > 0 {
			logger.Log.Info("statistics reconciled", zap.Int("assessments", n))
		}

		if n, err := a.services.completion.ReconcileRewards(ctx); err != nil {
			logger.Log.Error("quiz reward reconcile failed", zap.Error(err))
		} else if n > 0 {
			logger.Log.Info("quiz rewards applied", zap.Int("attempts", n))
		}
	})
	if err != nil {
		logger.Log.Fatal("invalid engine.reconcile_spec", zap.String("spec", a.Config.Engine.ReconcileSpec), zap.Error(err))
	}
	c.Start()

	go a.visitors.Run(ctx, time.Minute)

	go func() {
		configPath := filepath.Join("configs", "config.yaml")
		err := configwatcher.Watch(ctx, configPath, func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("config hot reload disabled", zap.Error(err))
		}
	}()

	return func() {
		<-c.Stop().Done()
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := context.WithCancel(context.Background())
	waitTasks := a.startBackgroundTasks(ctx)

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	stop()
	waitTasks()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
