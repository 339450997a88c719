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

package middleware

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/hertz-contrib/jwt"

	"research-platform/pkg/config"
	"research-platform/pkg/secrets"
)

const identityKey = "username"

// 登录凭据存放在 Secret Store 中的键
const (
	secretAPIUser     = "API_USERNAME"
	secretAPIPassword = "API_PASSWORD"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewJWTAuth 创建 JWT 中间件。登录凭据从 Secret Store 读取。
func NewJWTAuth(cfg config.MiddlewareConfig, store secrets.Store) (*jwt.HertzJWTMiddleware, error) {
	timeout := parseDuration(cfg.JWTTimeout, time.Hour)
	maxRefresh := parseDuration(cfg.JWTMaxRefresh, time.Hour)

	return jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "research-platform",
		Key:         []byte(cfg.JWTKey),
		Timeout:     timeout,
		MaxRefresh:  maxRefresh,
		IdentityKey: identityKey,
		Authenticator: func(ctx context.Context, c *app.RequestContext) (interface{}, error) {
			var req LoginRequest
			if err := c.BindJSON(&req); err != nil {
				return nil, jwt.ErrMissingLoginValues
			}
			wantUser, err := store.Get(ctx, secretAPIUser)
			if err != nil {
				return nil, jwt.ErrFailedAuthentication
			}
			wantPass, err := store.Get(ctx, secretAPIPassword)
			if err != nil {
				return nil, jwt.ErrFailedAuthentication
			}
			if subtle.ConstantTimeCompare([]byte(req.Username), []byte(wantUser)) != 1 ||
				subtle.ConstantTimeCompare([]byte(req.Password), []byte(wantPass)) != 1 {
				return nil, jwt.ErrFailedAuthentication
			}
			return req.Username, nil
		},
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if username, ok := data.(string); ok {
				return jwt.MapClaims{identityKey: username}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			return claims[identityKey]
		},
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, map[string]string{"error": message})
		},
	})
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
