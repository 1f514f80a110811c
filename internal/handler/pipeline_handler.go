package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vela-analytics/vela-warehouse/internal/repository"
	"github.com/vela-analytics/vela-warehouse/internal/scheduler"
)

// PipelineHandler 流水线运维处理器
type PipelineHandler struct {
	scheduler    *scheduler.Scheduler
	execRepo     *repository.ExecutionRepository
	enrichedRepo *repository.EnrichedRepository
	martRepo     *repository.MartRepository
	kycRepo      *repository.KycRepository
}

// NewPipelineHandler 创建流水线处理器
func NewPipelineHandler(
	sched *scheduler.Scheduler,
	execRepo *repository.ExecutionRepository,
	enrichedRepo *repository.EnrichedRepository,
	martRepo *repository.MartRepository,
	kycRepo *repository.KycRepository,
) *PipelineHandler {
	return &PipelineHandler{
		scheduler:    sched,
		execRepo:     execRepo,
		enrichedRepo: enrichedRepo,
		martRepo:     martRepo,
		kycRepo:      kycRepo,
	}
}

// TriggerRun 手动触发一次流水线
// POST /api/v1/pipeline/run
func (h *PipelineHandler) TriggerRun(c *gin.Context) {
	running, err := h.scheduler.IsRunning(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to check pipeline state: "+err.Error())
		return
	}
	if running {
		Conflict(c, "pipeline is already running")
		return
	}

	h.scheduler.TriggerRun()
	Success(c, gin.H{"accepted": true})
}

// ListExecutions 列出最近的阶段运行记录
// GET /api/v1/pipeline/executions
func (h *PipelineHandler) ListExecutions(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 || parsed > 500 {
			BadRequest(c, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	executions, err := h.execRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		InternalError(c, "failed to list executions: "+err.Error())
		return
	}

	Success(c, executions)
}

// GetStatus 获取流水线状态: 是否运行中 + 各阶段最近一次运行
// GET /api/v1/pipeline/status
func (h *PipelineHandler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	running, err := h.scheduler.IsRunning(ctx)
	if err != nil {
		InternalError(c, "failed to check pipeline state: "+err.Error())
		return
	}

	stages := gin.H{}
	for _, name := range []string{"staging", "enrichment", "marts"} {
		exec, err := h.execRepo.GetLatestByStage(ctx, name)
		if err != nil {
			InternalError(c, "failed to load stage execution: "+err.Error())
			return
		}
		stages[name] = exec
	}

	Success(c, gin.H{
		"running": running,
		"stages":  stages,
	})
}

// GetCoverage 获取富化覆盖率统计
// GET /api/v1/pipeline/coverage
func (h *PipelineHandler) GetCoverage(c *gin.Context) {
	stats, err := h.enrichedRepo.Coverage(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to compute coverage: "+err.Error())
		return
	}
	Success(c, stats)
}

// VolumeByDay 按自然日聚合的 USD 交易量
// GET /api/v1/marts/volume-by-day?start=2024-01-01&end=2024-01-31
func (h *PipelineHandler) VolumeByDay(c *gin.Context) {
	startDay := c.Query("start")
	endDay := c.Query("end")
	if startDay == "" || endDay == "" {
		BadRequest(c, "start and end are required (YYYY-MM-DD)")
		return
	}

	buckets, err := h.martRepo.VolumeByDay(c.Request.Context(), startDay, endDay)
	if err != nil {
		InternalError(c, "failed to query volume by day: "+err.Error())
		return
	}
	Success(c, buckets)
}

// VolumeByTier 按交易时点 KYC 等级聚合的 USD 交易量
// GET /api/v1/marts/volume-by-tier
func (h *PipelineHandler) VolumeByTier(c *gin.Context) {
	rows, err := h.martRepo.VolumeByKycTier(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to query volume by tier: "+err.Error())
		return
	}
	Success(c, rows)
}

// KycLevelAt 查询用户在某时点的 KYC 等级
// GET /api/v1/users/:user_id/kyc-level?at=<epoch_ms>
func (h *PipelineHandler) KycLevelAt(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		BadRequest(c, "user_id is required")
		return
	}

	at, err := strconv.ParseInt(c.Query("at"), 10, 64)
	if err != nil || at < 0 {
		BadRequest(c, "at must be a non-negative epoch millisecond timestamp")
		return
	}

	level, err := h.kycRepo.LevelAt(c.Request.Context(), userID, at)
	if err != nil {
		InternalError(c, "failed to resolve kyc level: "+err.Error())
		return
	}

	Success(c, gin.H{
		"user_id":   userID,
		"at":        at,
		"kyc_level": level,
		"known":     level != "",
	})
}
