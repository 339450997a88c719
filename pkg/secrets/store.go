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

// Package secrets 提供统一的 Secret Store 抽象（env / memory / vault），
// 供 bootstrap 解析模型与搜索服务的 API Key。
package secrets

import (
	"context"
	"fmt"
)

// Store Secret 存取接口
type Store interface {
	// Get 读取 secret 值
	Get(ctx context.Context, key string) (string, error)

	// Set 设置 secret 值
	Set(ctx context.Context, key string, value string) error

	// Delete 删除 secret
	Delete(ctx context.Context, key string) error

	// List 列出所有 secret keys
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider   string `mapstructure:"provider"`    // env | memory | vault
	Address    string `mapstructure:"address"`     // vault server 地址
	Token      string `mapstructure:"token"`       // vault token
	PathPrefix string `mapstructure:"path_prefix"` // vault secret 路径前缀
}

// NewStore 创建 Secret Store；provider 为空时默认 env
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(), nil
	case "vault":
		return NewVaultStore(VaultConfig{
			Address:    config.Address,
			Token:      config.Token,
			PathPrefix: config.PathPrefix,
		})
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}
