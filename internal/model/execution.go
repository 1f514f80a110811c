package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// RunStatus 流水线运行状态
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
	RunStatusSkipped RunStatus = "skipped"
)

// PipelineExecution 流水线阶段运行记录
type PipelineExecution struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	StageName    string     `gorm:"column:stage_name;type:varchar(100);not null"`
	Status       RunStatus  `gorm:"column:status;type:varchar(20);not null"`
	StartedAt    int64      `gorm:"column:started_at;not null"`
	FinishedAt   *int64     `gorm:"column:finished_at"`
	DurationMs   *int       `gorm:"column:duration_ms"`
	ErrorMessage *string    `gorm:"column:error_message;type:text"`
	Result       JSONResult `gorm:"column:result;type:jsonb"`
	CreatedAt    int64      `gorm:"column:created_at;not null"`
}

// TableName 表名
func (PipelineExecution) TableName() string {
	return "pipeline_executions"
}

// JSONResult JSON 结果类型
type JSONResult map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSONResult) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSONResult) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}
