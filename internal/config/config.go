// Package config 提供配置加载
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vela-analytics/vela-warehouse/internal/model"
)

// Config 应用配置
type Config struct {
	Service   ServiceConfig   `yaml:"service" json:"service"`
	Postgres  PostgresConfig  `yaml:"postgres" json:"postgres"`
	Redis     RedisConfig     `yaml:"redis" json:"redis"`
	Pipeline  PipelineConfig  `yaml:"pipeline" json:"pipeline"`
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// ServiceConfig 服务配置
type ServiceConfig struct {
	Name     string `yaml:"name" json:"name"`
	HTTPPort int    `yaml:"http_port" json:"http_port"`
	Env      string `yaml:"env" json:"env"`
}

// PostgresConfig 数据库配置
type PostgresConfig struct {
	Host                   string `yaml:"host" json:"host"`
	Port                   int    `yaml:"port" json:"port"`
	User                   string `yaml:"user" json:"user"`
	Password               string `yaml:"password" json:"password"`
	Database               string `yaml:"database" json:"database"`
	MaxConnections         int    `yaml:"max_connections" json:"max_connections"`
	MaxIdleConns           int    `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" json:"conn_max_lifetime_minutes"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`
	PoolSize int    `yaml:"pool_size" json:"pool_size"`
}

// PipelineConfig 流水线配置
type PipelineConfig struct {
	// StableCurrency 稳定币种, 汇率恒为 1.0
	StableCurrency string `yaml:"stable_currency" json:"stable_currency"`
	// KycTiers KYC 等级, 按从低到高排序; 首位为缺省等级
	KycTiers []string `yaml:"kyc_tiers" json:"kyc_tiers"`
	// BatchSize 写入批大小
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	Cron           string `yaml:"cron" json:"cron"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds" json:"lock_ttl_seconds"`
	TimeoutMinutes int    `yaml:"timeout_minutes" json:"timeout_minutes"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 尝试从配置文件加载
	configPath := getConfigPath()
	data, err := os.ReadFile(configPath)
	if err == nil {
		// 先展开环境变量再解析
		content := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// 设置默认值
	applyDefaults(cfg)

	// 从环境变量覆盖
	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getConfigPath 获取配置文件路径
func getConfigPath() string {
	// 1. 环境变量
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	// 2. 当前目录
	if _, err := os.Stat("config/config.yaml"); err == nil {
		return "config/config.yaml"
	}

	// 3. 可执行文件目录
	if exe, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(exe), "config", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "config/config.yaml"
}

// applyDefaults 应用默认配置
func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "vela-warehouse"
	}
	if cfg.Service.HTTPPort == 0 {
		cfg.Service.HTTPPort = 8090
	}
	if cfg.Service.Env == "" {
		cfg.Service.Env = "dev"
	}

	// Postgres defaults
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = "localhost"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.User == "" {
		cfg.Postgres.User = "vela"
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = "vela_warehouse"
	}
	if cfg.Postgres.MaxConnections == 0 {
		cfg.Postgres.MaxConnections = 10
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 5
	}
	if cfg.Postgres.ConnMaxLifetimeMinutes == 0 {
		cfg.Postgres.ConnMaxLifetimeMinutes = 30
	}

	// Redis defaults
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 20
	}

	// Pipeline defaults
	if cfg.Pipeline.StableCurrency == "" {
		cfg.Pipeline.StableCurrency = "USDT"
	}
	if len(cfg.Pipeline.KycTiers) == 0 {
		cfg.Pipeline.KycTiers = []string{"L0", "L1", "L2", "L3"}
	}
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = 500
	}

	// Scheduler defaults
	if cfg.Scheduler.Cron == "" {
		cfg.Scheduler.Cron = "0 10 * * * *" // 每小时第 10 分钟
	}
	if cfg.Scheduler.LockTTLSeconds == 0 {
		cfg.Scheduler.LockTTLSeconds = 600
	}
	if cfg.Scheduler.TimeoutMinutes == 0 {
		cfg.Scheduler.TimeoutMinutes = 15
	}

	// Log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// applyEnvOverrides 从环境变量覆盖配置
func applyEnvOverrides(cfg *Config) {
	// Service
	if v := os.Getenv("SERVICE_NAME"); v != "" {
		cfg.Service.Name = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Service.HTTPPort = port
		}
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Service.Env = v
	}

	// Postgres
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}

	// Redis
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	// Pipeline
	if v := os.Getenv("STABLE_CURRENCY"); v != "" {
		cfg.Pipeline.StableCurrency = strings.ToUpper(strings.TrimSpace(v))
	}
	if v := os.Getenv("KYC_TIERS"); v != "" {
		tiers := make([]string, 0)
		for _, t := range strings.Split(v, ",") {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t != "" {
				tiers = append(tiers, t)
			}
		}
		if len(tiers) > 0 {
			cfg.Pipeline.KycTiers = tiers
		}
	}

	// Scheduler
	if v := os.Getenv("PIPELINE_CRON"); v != "" {
		cfg.Scheduler.Cron = v
	}

	// Log
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// validate 校验配置
func validate(cfg *Config) error {
	if cfg.Pipeline.StableCurrency == "" {
		return fmt.Errorf("pipeline.stable_currency must not be empty")
	}
	if len(cfg.Pipeline.KycTiers) == 0 {
		return fmt.Errorf("pipeline.kyc_tiers must not be empty")
	}
	// 归一化后判重: "l0" 与 "L0" 是同一档位
	seen := make(map[string]bool, len(cfg.Pipeline.KycTiers))
	for i, t := range cfg.Pipeline.KycTiers {
		canonical := model.CanonicalTier(t)
		if canonical == "" {
			return fmt.Errorf("pipeline.kyc_tiers contains empty tier")
		}
		if seen[canonical] {
			return fmt.Errorf("pipeline.kyc_tiers contains duplicate tier %q", t)
		}
		seen[canonical] = true
		cfg.Pipeline.KycTiers[i] = canonical
	}
	return nil
}
