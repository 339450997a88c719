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

	"github.com/cloudwego/eino/compose"

	"research-platform/pkg/log"
	"research-platform/pkg/metrics"
)

// 图节点名
const (
	nodeOracle     = "oracle"
	nodeDispatch   = "dispatch"
	nodeSynthesize = "synthesize"
)

// DefaultMaxSteps 图执行步数上限。Guard 保证语义上的收敛，
// 步数上限是执行层的机械兜底。
const DefaultMaxSteps = 20

// Engine 控制循环执行引擎。
// 以 eino 有向图表达 决策 -> 路由 -> 决策 的循环，
// 终结决策从循环分支到报告合成节点。
type Engine struct {
	runnable compose.Runnable[*Session, *Session]
	logger   *log.Logger
}

// EngineOptions Engine 构造参数
type EngineOptions struct {
	Oracle      *Oracle
	Dispatcher  *Dispatcher
	Synthesizer *Synthesizer
	MaxSteps    int
	Logger      *log.Logger
}

// NewEngine 组装并编译控制循环图。
// 图中存在环，以 AnyPredecessor 触发模式编译并设置步数上限。
func NewEngine(ctx context.Context, opts EngineOptions) (*Engine, error) {
	if opts.Oracle == nil || opts.Dispatcher == nil || opts.Synthesizer == nil {
		return nil, fmt.Errorf("engine requires oracle, dispatcher and synthesizer")
	}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	g := compose.NewGraph[*Session, *Session]()

	if err := g.AddLambdaNode(nodeOracle, compose.InvokableLambda(
		func(ctx context.Context, s *Session) (*Session, error) {
			d, err := opts.Oracle.Decide(ctx, s)
			if err != nil {
				return nil, err
			}
			return s.WithDecision(d), nil
		})); err != nil {
		return nil, fmt.Errorf("add oracle node: %w", err)
	}

	if err := g.AddLambdaNode(nodeDispatch, compose.InvokableLambda(
		func(ctx context.Context, s *Session) (*Session, error) {
			return opts.Dispatcher.Dispatch(ctx, s)
		})); err != nil {
		return nil, fmt.Errorf("add dispatch node: %w", err)
	}

	if err := g.AddLambdaNode(nodeSynthesize, compose.InvokableLambda(
		func(ctx context.Context, s *Session) (*Session, error) {
			return s.Finalize(opts.Synthesizer.Synthesize(ctx, s)), nil
		})); err != nil {
		return nil, fmt.Errorf("add synthesize node: %w", err)
	}

	if err := g.AddEdge(compose.START, nodeOracle); err != nil {
		return nil, fmt.Errorf("add start edge: %w", err)
	}
	if err := g.AddBranch(nodeOracle, compose.NewGraphBranch(
		func(ctx context.Context, s *Session) (string, error) {
			if s.Pending.Terminal() {
				return nodeSynthesize, nil
			}
			return nodeDispatch, nil
		},
		map[string]bool{nodeDispatch: true, nodeSynthesize: true},
	)); err != nil {
		return nil, fmt.Errorf("add oracle branch: %w", err)
	}
	if err := g.AddEdge(nodeDispatch, nodeOracle); err != nil {
		return nil, fmt.Errorf("add dispatch edge: %w", err)
	}
	if err := g.AddEdge(nodeSynthesize, compose.END); err != nil {
		return nil, fmt.Errorf("add end edge: %w", err)
	}

	runnable, err := g.Compile(ctx,
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		compose.WithMaxRunSteps(maxSteps*2+2),
	)
	if err != nil {
		return nil, fmt.Errorf("compile control loop graph: %w", err)
	}

	return &Engine{runnable: runnable, logger: logger}, nil
}

// Run 执行一次完整研究会话，返回携带最终报告的会话。
func (e *Engine) Run(ctx context.Context, req QueryContext) (*Session, error) {
	session := NewSession(req)
	e.logger.Info("research session started", "session", session.ID, "query", req.Query)

	final, err := e.runnable.Invoke(ctx, session)
	elapsed := time.Since(session.Started)
	metrics.SessionDuration.Observe(elapsed.Seconds())
	if err != nil {
		metrics.SessionTotal.WithLabelValues("error").Inc()
		e.logger.Error("research session failed", "session", session.ID, "error", err)
		return nil, err
	}

	outcome := "finalized"
	if final.Forced {
		outcome = "forced"
	}
	metrics.SessionTotal.WithLabelValues(outcome).Inc()
	e.logger.Info("research session finished",
		"session", final.ID, "steps", final.Steps(), "outcome", outcome, "elapsed", elapsed.String())
	return final, nil
}
