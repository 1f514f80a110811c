package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vela-analytics/vela-warehouse/internal/pipeline"
	"github.com/vela-analytics/vela-warehouse/pkg/logger"
)

const pipelineLockName = "pipeline-run"

// Config 调度器配置
type Config struct {
	Enabled     bool
	Cron        string
	LockTTL     time.Duration
	Timeout     time.Duration
	RedisClient redis.UniversalClient
}

// Scheduler 流水线调度器
// 按 cron 表达式触发完整流水线, 通过分布式锁保证多实例间互斥
type Scheduler struct {
	cron        *cron.Cron
	lockManager *LockManager
	runner      *pipeline.Runner
	cfg         Config
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewScheduler 创建调度器
func NewScheduler(cfg Config, runner *pipeline.Runner) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:        cron.New(cron.WithSeconds()), // 支持秒级调度
		lockManager: NewLockManager(cfg.RedisClient),
		runner:      runner,
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.Enabled {
		if _, err := s.cron.AddFunc(cfg.Cron, s.executeRun); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to add cron entry: %w", err)
		}
		logger.Info("pipeline schedule registered", zap.String("cron", cfg.Cron))
	} else {
		logger.Info("pipeline schedule disabled, manual trigger only")
	}

	return s, nil
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("scheduler started")
}

// Stop 停止调度器并等待进行中的触发完成
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("scheduler stopped")
}

// TriggerRun 手动触发一次流水线
func (s *Scheduler) TriggerRun() {
	go s.executeRun()
}

// IsRunning 检查流水线是否正在某个实例上运行
func (s *Scheduler) IsRunning(ctx context.Context) (bool, error) {
	return s.lockManager.IsLocked(ctx, pipelineLockName)
}

// executeRun 执行一次流水线, 受分布式锁保护
func (s *Scheduler) executeRun() {
	select {
	case <-s.ctx.Done():
		return
	default:
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Timeout)
	defer cancel()

	lock := s.lockManager.NewLock(pipelineLockName, s.cfg.LockTTL, true)
	acquired, err := lock.TryLock(ctx)
	if err != nil {
		logger.Error("failed to acquire pipeline lock", zap.Error(err))
		return
	}
	if !acquired {
		logger.Debug("pipeline is already running on another instance")
		s.runner.RecordSkipped(ctx, "pipeline is running on another instance")
		return
	}
	defer func() {
		if err := lock.Unlock(context.Background()); err != nil {
			logger.Error("failed to release pipeline lock", zap.Error(err))
		}
	}()

	if err := s.runner.RunAll(ctx); err != nil {
		logger.Error("pipeline run failed", zap.Error(err))
	}
}
