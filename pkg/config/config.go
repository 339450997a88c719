// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API          APIConfig          `mapstructure:"api"`
	Research     ResearchConfig     `mapstructure:"research"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Model        ModelConfig        `mapstructure:"model"`
	Retrieval    RetrievalConfig    `mapstructure:"retrieval"`
	Warehouse    WarehouseConfig    `mapstructure:"warehouse"`
	WebSearch    WebSearchConfig    `mapstructure:"websearch"`
	Secrets      SecretsConfig      `mapstructure:"secrets"`
	Log          LogConfig          `mapstructure:"log"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Auth          bool   `mapstructure:"auth"`
	JWTKey        string `mapstructure:"jwt_key"`
	JWTTimeout    string `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh string `mapstructure:"jwt_max_refresh"` // 如 "1h"
}

// ResearchConfig 研究对象配置
type ResearchConfig struct {
	Company string `mapstructure:"company"` // 研究标的公司名，如 "NVIDIA"
}

// OrchestratorConfig 编排控制循环配置
type OrchestratorConfig struct {
	ScratchpadBudget int    `mapstructure:"scratchpad_budget"` // Scratchpad 字符预算，<=0 默认 12000
	ResultBudget     int    `mapstructure:"result_budget"`     // 检索结果字符预算，<=0 默认 8000
	MaxSteps         int    `mapstructure:"max_steps"`         // 图执行步数上限（机械兜底），<=0 默认 20
	DecideTimeout    string `mapstructure:"decide_timeout"`    // 单次决策超时，如 "60s"
	ToolTimeout      string `mapstructure:"tool_timeout"`      // 单次工具调用超时，如 "30s"
	ToolRetryMax     int    `mapstructure:"tool_retry_max"`    // 工具失败重试次数（不含首次），缺省 1，0 关闭重试
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	RateLimit LLMRateLimit    `mapstructure:"rate_limit"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// EmbeddingConfig Embedding 模型配置
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	Dimension   int     `mapstructure:"dimension"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// DefaultsConfig 默认模型配置（provider.model_key，如 openai.gpt_4o_mini）
type DefaultsConfig struct {
	LLM       string `mapstructure:"llm"`
	Embedding string `mapstructure:"embedding"`
}

// LLMRateLimit LLM 调用限流配置
type LLMRateLimit struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// RetrievalConfig 检索后端配置（memory 为内置内存；redis 使用 eino-ext 组件）
type RetrievalConfig struct {
	Type       string  `mapstructure:"type"`       // memory | redis
	Addr       string  `mapstructure:"addr"`       // Redis 地址
	DB         string  `mapstructure:"db"`         // Redis DB 编号，如 "0"
	Password   string  `mapstructure:"password"`   // Redis 密码，可选
	Collection string  `mapstructure:"collection"` // 索引/集合名，ingest 与 query 共用
	TopK       int     `mapstructure:"top_k"`      // 默认返回条数，<=0 默认 5
	Threshold  float64 `mapstructure:"threshold"`  // 相似度阈值
}

// WarehouseConfig 财务数仓配置（PostgreSQL）
type WarehouseConfig struct {
	DSN          string `mapstructure:"dsn"`
	ChartBaseURL string `mapstructure:"chart_base_url"` // 图表 URI 前缀，默认 /api/charts
}

// WebSearchConfig 联网搜索配置（Tavily）
type WebSearchConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
}

// SecretsConfig Secret Store 配置
type SecretsConfig struct {
	Provider   string `mapstructure:"provider"` // env | memory | vault
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// 未配置时保留一次重试，显式 0 关闭
	v.SetDefault("orchestrator.tool_retry_max", 1)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	// 替换环境变量
	replaceEnvVars(&config)

	return &config, nil
}

// replaceEnvVars 替换配置中 ${ENV_VAR} 形式的 API Key
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.LLM.Providers {
		providerConfig.APIKey = expandEnv(providerConfig.APIKey)
		config.Model.LLM.Providers[provider] = providerConfig
	}
	for provider, providerConfig := range config.Model.Embedding.Providers {
		providerConfig.APIKey = expandEnv(providerConfig.APIKey)
		config.Model.Embedding.Providers[provider] = providerConfig
	}
	config.WebSearch.APIKey = expandEnv(config.WebSearch.APIKey)
	config.Warehouse.DSN = expandEnv(config.Warehouse.DSN)
}

func expandEnv(value string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return value
}

// LoadAPIConfig 加载 API 配置（仅 configs/api.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/api.yaml")
}

// LoadAPIConfigWithModel 加载 API 配置并合并 model 配置，便于 API 使用 LLM/Embedding
func LoadAPIConfigWithModel() (*Config, error) {
	cfg, err := LoadConfig("configs/api.yaml")
	if err != nil {
		return nil, err
	}
	modelCfg, err := LoadConfig("configs/model.yaml")
	if err == nil {
		cfg.Model = modelCfg.Model
	}
	return cfg, nil
}
