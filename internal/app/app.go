// Package app 提供数据仓库服务的应用入口
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vela-analytics/vela-warehouse/internal/config"
	"github.com/vela-analytics/vela-warehouse/internal/handler"
	"github.com/vela-analytics/vela-warehouse/internal/model"
	"github.com/vela-analytics/vela-warehouse/internal/pipeline"
	"github.com/vela-analytics/vela-warehouse/internal/repository"
	"github.com/vela-analytics/vela-warehouse/internal/scheduler"
	"github.com/vela-analytics/vela-warehouse/internal/staging"
	"github.com/vela-analytics/vela-warehouse/migrations"
	"github.com/vela-analytics/vela-warehouse/pkg/logger"
	"github.com/vela-analytics/vela-warehouse/pkg/migrate"
)

// App 数据仓库服务应用
type App struct {
	cfg *config.Config

	// 基础设施
	db          *gorm.DB
	redisClient redis.UniversalClient
	httpServer  *http.Server

	// 流水线与调度
	runner    *pipeline.Runner
	scheduler *scheduler.Scheduler

	// 上下文
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建应用实例
func New(cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run 启动应用
func (a *App) Run() error {
	// 1. 初始化数据库
	if err := a.initDB(); err != nil {
		return fmt.Errorf("failed to init database: %w", err)
	}

	// 2. 初始化 Redis
	if err := a.initRedis(); err != nil {
		return fmt.Errorf("failed to init redis: %w", err)
	}

	// 3. 初始化流水线
	a.initPipeline()

	// 4. 初始化调度器
	if err := a.initScheduler(); err != nil {
		return fmt.Errorf("failed to init scheduler: %w", err)
	}
	a.scheduler.Start()

	// 5. 启动 HTTP 服务
	if err := a.startHTTP(); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	return nil
}

// Shutdown 优雅关闭
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("shutting down warehouse service...")

	// 停止接收新请求
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
		}
	}

	// 停止调度器
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// 关闭 Redis
	if a.redisClient != nil {
		a.redisClient.Close()
	}

	// 关闭数据库
	if a.db != nil {
		sqlDB, _ := a.db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	}

	a.cancel()
	logger.Info("warehouse service stopped")
	return nil
}

// initDB 初始化数据库并执行迁移
func (a *App) initDB() error {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		a.cfg.Postgres.Host,
		a.cfg.Postgres.Port,
		a.cfg.Postgres.User,
		a.cfg.Postgres.Password,
		a.cfg.Postgres.Database,
	)

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(a.cfg.Postgres.MaxConnections)
	sqlDB.SetMaxIdleConns(a.cfg.Postgres.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(a.cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	a.db = db
	logger.Info("database connected",
		zap.String("host", a.cfg.Postgres.Host),
		zap.String("database", a.cfg.Postgres.Database))

	migrator := migrate.NewMigrator(sqlDB, a.cfg.Service.Name, logger.L())
	if err := migrator.AutoMigrate(migrations.FS, "."); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("database migrated")

	return nil
}

// initRedis 初始化 Redis
func (a *App) initRedis() error {
	a.redisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", a.cfg.Redis.Host, a.cfg.Redis.Port),
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		PoolSize: a.cfg.Redis.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.redisClient.Ping(ctx).Err(); err != nil {
		return err
	}

	logger.Info("redis connected",
		zap.String("host", a.cfg.Redis.Host),
		zap.Int("db", a.cfg.Redis.DB))

	return nil
}

// initPipeline 初始化流水线阶段与运行器
func (a *App) initPipeline() {
	normalizer := staging.NewNormalizer(a.cfg.Pipeline.StableCurrency)
	tiers := model.NewTierOrder(a.cfg.Pipeline.KycTiers)
	batchSize := a.cfg.Pipeline.BatchSize

	stages := []pipeline.Stage{
		pipeline.NewStagingStage(normalizer, batchSize),
		pipeline.NewEnrichmentStage(a.cfg.Pipeline.StableCurrency, tiers, batchSize),
		pipeline.NewMartStage(batchSize),
	}
	a.runner = pipeline.NewRunner(a.db, stages)

	logger.Info("pipeline initialized",
		zap.String("stable_currency", a.cfg.Pipeline.StableCurrency),
		zap.Strings("kyc_tiers", a.cfg.Pipeline.KycTiers))
}

// initScheduler 初始化调度器
func (a *App) initScheduler() error {
	sched, err := scheduler.NewScheduler(scheduler.Config{
		Enabled:     a.cfg.Scheduler.Enabled,
		Cron:        a.cfg.Scheduler.Cron,
		LockTTL:     time.Duration(a.cfg.Scheduler.LockTTLSeconds) * time.Second,
		Timeout:     time.Duration(a.cfg.Scheduler.TimeoutMinutes) * time.Minute,
		RedisClient: a.redisClient,
	}, a.runner)
	if err != nil {
		return err
	}
	a.scheduler = sched
	return nil
}

// startHTTP 启动 HTTP 服务
func (a *App) startHTTP() error {
	if a.cfg.Service.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	pipelineHandler := handler.NewPipelineHandler(
		a.scheduler,
		repository.NewExecutionRepository(a.db),
		repository.NewEnrichedRepository(a.db),
		repository.NewMartRepository(a.db),
		repository.NewKycRepository(a.db),
	)
	healthHandler := handler.NewHealthHandler(a.db, a.redisClient)

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/pipeline/run", pipelineHandler.TriggerRun)
		v1.GET("/pipeline/executions", pipelineHandler.ListExecutions)
		v1.GET("/pipeline/status", pipelineHandler.GetStatus)
		v1.GET("/pipeline/coverage", pipelineHandler.GetCoverage)
		v1.GET("/marts/volume-by-day", pipelineHandler.VolumeByDay)
		v1.GET("/marts/volume-by-tier", pipelineHandler.VolumeByTier)
		v1.GET("/users/:user_id/kyc-level", pipelineHandler.KycLevelAt)
	}

	addr := fmt.Sprintf(":%d", a.cfg.Service.HTTPPort)
	a.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}

	logger.Info("starting http server",
		zap.String("addr", addr),
		zap.String("service", a.cfg.Service.Name))

	go func() {
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	return nil
}

// GetRunner 获取流水线运行器 (用于测试)
func (a *App) GetRunner() *pipeline.Runner {
	return a.runner
}
