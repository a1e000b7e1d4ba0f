// Package config 提供应用配置的加载与校验（viper + validator）。
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 是应用配置根。
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Feast      FeastConfig      `mapstructure:"feast"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Weights    WeightsConfig    `mapstructure:"weights"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// StoreConfig 目录存储配置。
type StoreConfig struct {
	// Kind 存储后端：memory | redis
	Kind string `mapstructure:"kind" validate:"oneof=memory redis"`

	// Seed 启动时写入演示目录（开发/演示用）
	Seed bool `mapstructure:"seed"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig Redis 连接配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// FeastConfig 在线画像配置（可选）。
// 启用后用户读取走 Feature Store，写路径仍走目录存储。
type FeastConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Project string `mapstructure:"project"`
}

// SimilarityConfig 相似度后端配置。
type SimilarityConfig struct {
	// Default 启动时选中的后端名
	Default string `mapstructure:"default" validate:"required"`

	// ScoreTimeout 单次打分超时，超时按中性降级处理
	ScoreTimeout time.Duration `mapstructure:"score_timeout"`

	// PolicyFile 关键词档位策略文件（可选，缺省用内置策略）
	PolicyFile string `mapstructure:"policy_file"`

	// Encoders embedding 后端的编码服务，key 为后端名
	Encoders map[string]EncoderConfig `mapstructure:"encoders" validate:"dive"`
}

// EncoderConfig 编码服务配置。
type EncoderConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"required,url"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Token    string        `mapstructure:"token"`
}

// WeightsConfig 组合权重（三项之和应为 1，容忍浮点误差）。
type WeightsConfig struct {
	Interest   float64 `mapstructure:"interest" validate:"gte=0,lte=1"`
	Level      float64 `mapstructure:"level" validate:"gte=0,lte=1"`
	Popularity float64 `mapstructure:"popularity" validate:"gte=0,lte=1"`
}

// LoggingConfig 日志配置。
type LoggingConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// Default 返回内置默认配置（内存存储 + 关键词后端 + 演示目录）。
func Default() *Config {
	return &Config{
		Server:     ServerConfig{Addr: ":8080"},
		Store:      StoreConfig{Kind: "memory", Seed: true},
		Similarity: SimilarityConfig{Default: "keyword", ScoreTimeout: 800 * time.Millisecond},
		Weights:    WeightsConfig{Interest: 0.6, Level: 0.3, Popularity: 0.1},
	}
}

// Load 读取配置文件并校验。path 为空时使用内置默认值。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置的结构约束与跨字段约束。
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Store.Kind == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("config: store.redis.addr is required when store.kind is redis")
	}
	if c.Feast.Enabled && c.Feast.Host == "" {
		return fmt.Errorf("config: feast.host is required when feast.enabled is true")
	}
	sum := c.Weights.Interest + c.Weights.Level + c.Weights.Popularity
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("config: weights must sum to 1.0, got %.3f", sum)
	}
	supported := SupportedBackends()
	found := false
	for _, name := range supported {
		if name == c.Similarity.Default {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config: similarity.default %q is not one of %v",
			c.Similarity.Default, supported)
	}
	return nil
}
