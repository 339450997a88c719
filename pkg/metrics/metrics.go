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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		SessionDuration, SessionTotal,
		DispatchTotal, ToolDuration, ToolFailTotal,
		ForcedFinalizeTotal, DecisionRetryTotal,
		LLMTokensTotal,
	)
}

// SessionDuration 单次研究 Session 总耗时（秒）
var SessionDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "research_session_duration_seconds",
		Help:    "研究 Session 总耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
)

// SessionTotal Session 总数（按终止方式）
var SessionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "research_session_total",
		Help: "研究 Session 总数（按终止方式）",
	},
	[]string{"outcome"}, // finalized | forced | error
)

// DispatchTotal 工具派发总数（按工具）
var DispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "research_dispatch_total",
		Help: "工具派发总数",
	},
	[]string{"tool"},
)

// ToolDuration 工具调用耗时（秒）
var ToolDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "research_tool_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// ToolFailTotal 工具调用失败总数（失败记录为文本结果，Session 不中断）
var ToolFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "research_tool_fail_total",
		Help: "工具调用失败总数",
	},
	[]string{"tool"},
)

// ForcedFinalizeTotal Loop Guard 强制收束总数
var ForcedFinalizeTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "research_forced_finalize_total",
		Help: "Loop Guard 强制 final_answer 总数",
	},
)

// DecisionRetryTotal Oracle 决策失败重试总数
var DecisionRetryTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "research_decision_retry_total",
		Help: "Oracle 决策失败重试总数",
	},
)

// LLMTokensTotal LLM 调用 token 数
var LLMTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "research_llm_tokens_total",
		Help: "LLM 调用 token 总数",
	},
	[]string{"direction"}, // prompt | completion
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
