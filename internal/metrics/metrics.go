// Package metrics 提供仓库流水线的 Prometheus 监控指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vela_warehouse"

// 阶段运行指标
var (
	// StageRunsTotal 阶段运行总数
	StageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Total number of pipeline stage runs",
		},
		[]string{"stage", "status"}, // status: success, failed, skipped
	)

	// StageDuration 阶段运行耗时
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	// StageRowsProcessed 阶段处理行数
	StageRowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_rows_processed_total",
			Help:      "Total number of rows processed per stage",
		},
		[]string{"stage"},
	)

	// StageLastRunTimestamp 阶段最后运行时间
	StageLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_last_run_timestamp",
			Help:      "Unix timestamp of the last stage run",
		},
		[]string{"stage"},
	)
)

// 数据质量指标
var (
	// RejectedRowsTotal 被拒绝的行数 (时间戳等解析失败)
	RejectedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_rows_total",
			Help:      "Total number of rows rejected during staging",
		},
		[]string{"source"},
	)

	// MissingRateGauge 当前中间层缺失汇率的交易数
	MissingRateGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enriched_missing_rate",
			Help:      "Number of enriched transactions without a resolvable rate",
		},
	)

	// MissingKycGauge 当前中间层缺失 KYC 历史的交易数
	MissingKycGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enriched_missing_kyc_history",
			Help:      "Number of enriched transactions without applicable KYC history",
		},
	)
)
