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

package http

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"research-platform/internal/research"
	"research-platform/internal/warehouse"
	pkgerrors "research-platform/pkg/errors"
	"research-platform/pkg/log"
	"research-platform/pkg/metrics"
)

// Handler HTTP 处理器
type Handler struct {
	service *research.Service
	charts  *warehouse.ChartStore
	logger  *log.Logger
}

// NewHandler 创建处理器；charts 可为 nil（数仓未启用时图表接口返回 503）
func NewHandler(service *research.Service, charts *warehouse.ChartStore, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, charts: charts, logger: logger}
}

// HealthCheck 健康检查
// GET /api/health
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

// ResearchQuery 执行一次研究会话
// POST /api/research/query
func (h *Handler) ResearchQuery(c context.Context, ctx *app.RequestContext) {
	var req research.Request
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "invalid request",
		})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "query is required",
		})
		return
	}

	resp, err := h.service.Research(c, req)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

// ListTools 可用工具清单
// GET /api/research/tools
func (h *Handler) ListTools(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{
		"tools": h.service.Tools(),
	})
}

// GetChart 按 ID 读取图表工件
// GET /api/charts/:id
func (h *Handler) GetChart(c context.Context, ctx *app.RequestContext) {
	if h.charts == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{
			"error": "chart store not configured",
		})
		return
	}
	id := ctx.Param("id")
	chart, err := h.charts.Get(c, id)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, chart)
}

// Metrics Prometheus 文本格式指标
// GET /api/system/metrics
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4", buf.Bytes())
}

func (h *Handler) writeError(ctx *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	switch {
	case errors.Is(err, pkgerrors.ErrInvalidArg), errors.Is(err, pkgerrors.ErrUnknownTool):
		status = consts.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrNotFound):
		status = consts.StatusNotFound
	}
	if status == consts.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	ctx.JSON(status, map[string]string{"error": err.Error()})
}
