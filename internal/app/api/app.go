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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	apihttp "research-platform/internal/api/http"
	"research-platform/internal/app"
	"research-platform/internal/orchestrator"
	"research-platform/internal/research"
	"research-platform/internal/retrieval"
	"research-platform/internal/warehouse"
	"research-platform/internal/websearch"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用：装配研究服务、工具后端与 HTTP 层
type App struct {
	bootstrap    *app.Bootstrap
	service      *research.Service
	warehouse    *warehouse.Warehouse
	handler      *apihttp.Handler
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用（由 cmd/api 调用）
func NewApp(ctx context.Context, bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config
	if cfg == nil {
		return nil, fmt.Errorf("配置为空")
	}
	if bootstrap.ChatModel == nil {
		return nil, fmt.Errorf("未配置 LLM 模型（model.defaults.llm）")
	}
	logger := bootstrap.Logger
	company := cfg.Research.Company
	if company == "" {
		company = "NVIDIA"
	}

	adapters := map[orchestrator.ToolID]orchestrator.Adapter{}

	// 检索后端：embedding 未配置时跳过（工具不可用，Oracle 不会收到该工具）
	if bootstrap.Embedder != nil {
		retriever, err := retrieval.NewRetriever(ctx, cfg.Retrieval, bootstrap.Embedder)
		if err != nil {
			return nil, fmt.Errorf("初始化检索后端failed: %w", err)
		}
		adapters[orchestrator.ToolRetrieveContext] = research.NewRetrievalAdapter(retriever)
	} else {
		logger.Warn("embedding 未配置，retrieve_context 工具不可用")
	}

	// 财务数仓：DSN 为空时跳过
	var wh *warehouse.Warehouse
	if cfg.Warehouse.DSN != "" {
		var err error
		wh, err = warehouse.New(ctx, cfg.Warehouse, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化财务数仓failed: %w", err)
		}
		adapters[orchestrator.ToolWarehouseQuery] = research.NewWarehouseAdapter(wh)
	} else {
		logger.Warn("warehouse.dsn 未配置，warehouse_query 工具不可用")
	}

	// 联网搜索：API Key 为空时尝试 Secret Store，仍为空则跳过
	searchKey := cfg.WebSearch.APIKey
	if (searchKey == "" || strings.HasPrefix(searchKey, "$")) && bootstrap.Secrets != nil {
		if v, err := bootstrap.Secrets.Get(ctx, "TAVILY_API_KEY"); err == nil && v != "" {
			searchKey = v
		}
	}
	if searchKey != "" && !strings.HasPrefix(searchKey, "$") {
		searchCfg := cfg.WebSearch
		searchCfg.APIKey = searchKey
		searcher, err := websearch.NewClient(searchCfg, company)
		if err != nil {
			return nil, fmt.Errorf("初始化联网搜索failed: %w", err)
		}
		adapters[orchestrator.ToolWebSearch] = research.NewWebSearchAdapter(searcher)
	} else {
		logger.Warn("websearch.api_key 未配置，web_search 工具不可用")
	}

	service, err := research.NewService(ctx, research.ServiceOptions{
		ChatModel: bootstrap.ChatModel,
		Adapters:  adapters,
		Company:   company,
		Config:    cfg.Orchestrator,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化研究服务failed: %w", err)
	}

	var charts *warehouse.ChartStore
	if wh != nil {
		charts = wh.Charts()
	}
	handler := apihttp.NewHandler(service, charts, logger)

	return &App{
		bootstrap: bootstrap,
		service:   service,
		warehouse: wh,
		handler:   handler,
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":8080"
func (a *App) Run(addr string) error {
	cfg := a.bootstrap.Config
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 日志配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件failed: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	switch cfg.Log.Level {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	srvOpts := []hertzconfig.Option{server.WithHostPorts(addr)}

	// 可选：启用链路追踪（OpenTelemetry）
	var tracingCfg *hertztracing.Config
	if cfg.Monitoring.Tracing.Enable {
		serviceName := cfg.Monitoring.Tracing.ServiceName
		if serviceName == "" {
			serviceName = "research-api"
		}
		exportEndpoint := cfg.Monitoring.Tracing.ExportEndpoint
		if exportEndpoint == "" {
			exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if exportEndpoint != "" {
			opts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(exportEndpoint),
			}
			if cfg.Monitoring.Tracing.Insecure {
				opts = append(opts, provider.WithInsecure())
			}
			a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
			tracerOpt, tCfg := hertztracing.NewServerTracer()
			srvOpts = append(srvOpts, tracerOpt)
			tracingCfg = tCfg
			a.bootstrap.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
		}
	}

	h := server.Default(srvOpts...)
	if tracingCfg != nil {
		h.Use(hertztracing.ServerMiddleware(tracingCfg))
	}
	if err := apihttp.Register(h, a.handler, cfg.API, a.bootstrap.Secrets); err != nil {
		return fmt.Errorf("注册路由failed: %w", err)
	}
	a.hertz = h
	return h.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	if a.warehouse != nil {
		a.warehouse.Close()
	}
	return nil
}
