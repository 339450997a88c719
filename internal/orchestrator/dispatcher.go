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
	"time"

	"research-platform/pkg/errors"
	"research-platform/pkg/log"
	"research-platform/pkg/metrics"
)

const (
	// DefaultResultBudget 单次工具调用结果写入记录前的字符预算
	DefaultResultBudget = 8000

	truncatedMarker = "... [truncated]"
)

// Adapter 工具适配器。实现方负责把规范化参数翻译为对具体后端的调用，
// 并返回可直接写入研究轨迹的文本。
type Adapter interface {
	Call(ctx context.Context, args Arguments) (string, error)
}

// AdapterFunc 函数式适配器
type AdapterFunc func(ctx context.Context, args Arguments) (string, error)

// Call 实现 Adapter
func (f AdapterFunc) Call(ctx context.Context, args Arguments) (string, error) {
	return f(ctx, args)
}

// Dispatcher 路由器。按决策中的 ToolID 查找适配器并执行，
// 超时与失败重试在这里统一处理，后端错误折叠为文本记录而非中止会话。
type Dispatcher struct {
	adapters     map[ToolID]Adapter
	toolTimeout  time.Duration
	retryMax     int
	resultBudget int
	logger       *log.Logger
}

// DispatcherOptions Dispatcher 构造参数
type DispatcherOptions struct {
	Adapters     map[ToolID]Adapter
	ToolTimeout  time.Duration
	RetryMax     int
	ResultBudget int
	Logger       *log.Logger
}

// NewDispatcher 创建路由器
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	timeout := opts.ToolTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryMax := opts.RetryMax
	if retryMax < 0 {
		retryMax = 1
	}
	budget := opts.ResultBudget
	if budget <= 0 {
		budget = DefaultResultBudget
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		adapters:     opts.Adapters,
		toolTimeout:  timeout,
		retryMax:     retryMax,
		resultBudget: budget,
		logger:       logger,
	}
}

// Dispatch 执行会话的待定决策并追加记录。
// 工具本身的失败不会让 Dispatch 返回错误：失败以 "ERROR: ..." 文本
// 写入记录，交给 Oracle 在下一轮解读。只有路由层自身的缺陷
// （无待定决策、已知工具缺少适配器）才返回错误。
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session) (*Session, error) {
	if s.Pending == nil || s.Pending.Terminal() {
		return nil, errors.Wrap(errors.ErrInvalidArg, "dispatch requires a pending non-terminal decision")
	}
	decision := s.Pending
	adapter, ok := d.adapters[decision.Tool]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownTool, "no adapter registered for %s", decision.Tool)
	}

	metrics.DispatchTotal.WithLabelValues(string(decision.Tool)).Inc()
	start := time.Now()
	output, failed := d.execute(ctx, adapter, decision)
	elapsed := time.Since(start)
	metrics.ToolDuration.WithLabelValues(string(decision.Tool)).Observe(elapsed.Seconds())
	if failed {
		metrics.ToolFailTotal.WithLabelValues(string(decision.Tool)).Inc()
	}

	rec := ActionRecord{
		Step:    s.Steps() + 1,
		Tool:    decision.Tool,
		Args:    decision.Args,
		Output:  d.truncate(output),
		Failed:  failed,
		Elapsed: elapsed,
	}
	d.logger.Info("tool dispatched",
		"session", s.ID, "step", rec.Step, "tool", rec.Tool,
		"failed", rec.Failed, "elapsed", elapsed.String())
	return s.Advance(rec), nil
}

// execute 带超时执行适配器，失败时重试 retryMax 次
func (d *Dispatcher) execute(ctx context.Context, adapter Adapter, decision *Decision) (string, bool) {
	var lastErr error
	for attempt := 0; attempt <= d.retryMax; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, d.toolTimeout)
		output, err := adapter.Call(callCtx, decision.Args)
		cancel()
		if err == nil {
			return output, false
		}
		lastErr = err
		d.logger.Warn("tool call failed",
			"tool", decision.Tool, "attempt", attempt+1, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Sprintf("ERROR: %s failed: %v", decision.Tool, lastErr), true
}

func (d *Dispatcher) truncate(output string) string {
	if len(output) <= d.resultBudget {
		return output
	}
	cut := d.resultBudget - len(truncatedMarker)
	if cut < 0 {
		cut = 0
	}
	return output[:cut] + truncatedMarker
}
