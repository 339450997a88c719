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

package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// scriptedModel 按脚本回放的 ChatModel，测试控制循环用
type scriptedModel struct {
	mu      sync.Mutex
	script  []scriptedTurn
	turn    int
	lastIn  []*schema.Message
	genErrs int
}

type scriptedTurn struct {
	msg *schema.Message
	err error
}

func toolCallMsg(tool ToolID, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{ID: "call-1", Function: schema.FunctionCall{Name: string(tool), Arguments: args}},
		},
	}
}

func contentMsg(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}

func (m *scriptedModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastIn = in
	if m.turn >= len(m.script) {
		return nil, fmt.Errorf("script exhausted after %d turns", len(m.script))
	}
	turn := m.script[m.turn]
	m.turn++
	if turn.err != nil {
		m.genErrs++
		return nil, turn.err
	}
	return turn.msg, nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported in tests")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}
