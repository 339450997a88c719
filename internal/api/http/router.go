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
	"fmt"

	"github.com/cloudwego/hertz/pkg/app/server"

	"research-platform/internal/api/http/middleware"
	"research-platform/pkg/config"
	"research-platform/pkg/secrets"
)

// Register 注册全部路由与中间件。
// auth 开启时研究与图表接口需要 JWT，健康检查与指标始终公开。
func Register(h *server.Hertz, handler *Handler, cfg config.APIConfig, store secrets.Store) error {
	if cfg.CORS.Enable {
		h.Use(middleware.CORS(cfg.CORS))
	}

	h.GET("/api/health", handler.HealthCheck)
	h.GET("/api/system/metrics", handler.Metrics)

	api := h.Group("/api")
	if cfg.Middleware.Auth {
		if cfg.Middleware.JWTKey == "" {
			return fmt.Errorf("api.middleware.auth enabled but jwt_key not configured")
		}
		authMiddleware, err := middleware.NewJWTAuth(cfg.Middleware, store)
		if err != nil {
			return fmt.Errorf("init jwt middleware: %w", err)
		}
		h.POST("/api/auth/login", authMiddleware.LoginHandler)
		h.GET("/api/auth/refresh", authMiddleware.RefreshHandler)
		api.Use(authMiddleware.MiddlewareFunc())
	}

	api.POST("/research/query", handler.ResearchQuery)
	api.GET("/research/tools", handler.ListTools)
	api.GET("/charts/:id", handler.GetChart)
	return nil
}
