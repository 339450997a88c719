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

package app

import (
	"context"
	"fmt"

	einoembed "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"

	"research-platform/internal/model/embedding"
	"research-platform/internal/model/llm"
	"research-platform/pkg/config"
	"research-platform/pkg/log"
	"research-platform/pkg/secrets"
)

// Bootstrap 统一初始化：供 api 与 ingest 复用，避免在 cmd 内写业务装配
type Bootstrap struct {
	Config    *config.Config
	Logger    *log.Logger
	Secrets   secrets.Store
	ChatModel model.ToolCallingChatModel
	Embedder  einoembed.Embedder
}

// NewBootstrap 根据配置创建 Bootstrap（日志、Secret Store、LLM、Embedding）
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	logCfg := &log.Config{}
	if cfg != nil {
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		logCfg.File = cfg.Log.File
	}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}

	var store secrets.Store
	if cfg != nil {
		store, err = secrets.NewStore(secrets.Config{
			Provider:   cfg.Secrets.Provider,
			Address:    cfg.Secrets.Address,
			Token:      cfg.Secrets.Token,
			PathPrefix: cfg.Secrets.PathPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化 Secret Store failed: %w", err)
		}
	}

	var chatModel model.ToolCallingChatModel
	var embedder einoembed.Embedder
	if cfg != nil && cfg.Model.Defaults.LLM != "" {
		chatModel, err = llm.NewChatModel(ctx, &cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("初始化 ChatModel failed: %w", err)
		}
	}
	if cfg != nil && cfg.Model.Defaults.Embedding != "" {
		embedder, err = embedding.NewEmbedderFromConfig(&cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("初始化 Embedder failed: %w", err)
		}
	}

	return &Bootstrap{
		Config:    cfg,
		Logger:    logger,
		Secrets:   store,
		ChatModel: chatModel,
		Embedder:  embedder,
	}, nil
}
