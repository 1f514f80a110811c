// Package pipeline 定义流水线阶段与运行器
package pipeline

import (
	"context"

	"gorm.io/gorm"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// 阶段名称常量
const (
	StageNameStaging    = "staging"
	StageNameEnrichment = "enrichment"
	StageNameMarts      = "marts"
)

// Stage 流水线阶段接口
// Run 在单个数据库事务内执行: 要么完整替换目标表, 要么整体回滚
type Stage interface {
	// Name 阶段名称
	Name() string
	// Run 执行阶段
	Run(ctx context.Context, tx *gorm.DB) (*StageResult, error)
}

// StageResult 阶段运行结果
type StageResult struct {
	// ProcessedCount 处理的记录数
	ProcessedCount int
	// AffectedCount 写入的记录数
	AffectedCount int
	// RejectedCount 行级数据质量拒绝数
	RejectedCount int
	// Details 详细信息
	Details map[string]interface{}
}

// NewStageResult 创建阶段结果
func NewStageResult() *StageResult {
	return &StageResult{Details: make(map[string]interface{})}
}

// ToJSONResult 转换为 JSONResult
func (r *StageResult) ToJSONResult() model.JSONResult {
	if r == nil {
		return nil
	}
	result := model.JSONResult{
		"processed_count": r.ProcessedCount,
		"affected_count":  r.AffectedCount,
		"rejected_count":  r.RejectedCount,
	}
	for k, v := range r.Details {
		result[k] = v
	}
	return result
}
