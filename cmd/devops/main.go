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

// devops 启动 Eino Dev 调试服务并注册研究控制循环 Graph，供 IDE 插件（Eino Dev）
// 连接后进行可视化调试。使用：go run ./cmd/devops；在 IDE 中配置连接地址
// 127.0.0.1:52538 后选择编排进行 Test Run。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"research-platform/internal/orchestrator"
	"research-platform/internal/research"
)

// stubChatModel 仅用于编译 Graph，不会被实际调用（插件 Test Run 除外）
type stubChatModel struct{}

func (m *stubChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return &schema.Message{Role: schema.Assistant, Content: "调试模式: 无已配置的 LLM"}, nil
}

func (m *stubChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("stream not supported in devops mode")
}

func (m *stubChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// registerResearchGraph 编译研究控制循环图（oracle -> dispatch -> oracle ... -> synthesize），
// 使 Eino Dev 插件能展示循环编排结构
func registerResearchGraph(ctx context.Context) error {
	echoAdapter := orchestrator.AdapterFunc(func(ctx context.Context, args orchestrator.Arguments) (string, error) {
		return "调试模式: 无后端", nil
	})
	_, err := research.NewService(ctx, research.ServiceOptions{
		ChatModel: &stubChatModel{},
		Adapters: map[orchestrator.ToolID]orchestrator.Adapter{
			orchestrator.ToolRetrieveContext: echoAdapter,
			orchestrator.ToolWarehouseQuery:  echoAdapter,
			orchestrator.ToolWebSearch:       echoAdapter,
		},
		Company: "NVIDIA",
	})
	if err != nil {
		return fmt.Errorf("compile research graph: %w", err)
	}
	return nil
}

func main() {
	ctx := context.Background()

	// 先初始化 Eino Dev 调试服务（必须在任何 Compile 之前调用）
	if err := devops.Init(ctx); err != nil {
		log.Fatalf("[eino dev] init failed: %v", err)
	}

	if err := registerResearchGraph(ctx); err != nil {
		log.Fatalf("[eino dev] register research graph: %v", err)
	}

	log.Println("[eino dev] server listening on 127.0.0.1:52538; open Eino Dev in IDE and configure this address to debug")
	log.Println("[eino dev] press Ctrl+C to exit")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Println("[eino dev] shutting down")
}
