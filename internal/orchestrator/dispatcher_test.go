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
	"strings"
	"testing"
)

func pendingSession(tool ToolID, args Arguments) *Session {
	s := NewSession(QueryContext{Query: "q"})
	return s.WithDecision(&Decision{Tool: tool, Args: args})
}

func TestDispatchAppendsRecord(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{
		Adapters: map[ToolID]Adapter{
			ToolRetrieveContext: AdapterFunc(func(ctx context.Context, args Arguments) (string, error) {
				ra := args.(*RetrieveArgs)
				return "transcript snippet for " + ra.Query, nil
			}),
		},
	})

	s := pendingSession(ToolRetrieveContext, &RetrieveArgs{Query: "revenue"})
	next, err := d.Dispatch(context.Background(), s)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if next.Steps() != 1 {
		t.Fatalf("steps = %d, want 1", next.Steps())
	}
	rec := next.Records[0]
	if rec.Tool != ToolRetrieveContext || rec.Failed {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Output != "transcript snippet for revenue" {
		t.Errorf("output = %q", rec.Output)
	}
	if next.Pending != nil {
		t.Error("pending decision should be cleared after dispatch")
	}
}

func TestDispatchFailureBecomesErrorRecord(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{
		RetryMax: 0,
		Adapters: map[ToolID]Adapter{
			ToolWebSearch: AdapterFunc(func(ctx context.Context, args Arguments) (string, error) {
				return "", fmt.Errorf("upstream 503")
			}),
		},
	})

	s := pendingSession(ToolWebSearch, &SearchArgs{Query: "news"})
	next, err := d.Dispatch(context.Background(), s)
	if err != nil {
		t.Fatalf("tool failure must not fail dispatch: %v", err)
	}
	rec := next.Records[0]
	if !rec.Failed {
		t.Error("record not marked failed")
	}
	if !strings.HasPrefix(rec.Output, "ERROR:") {
		t.Errorf("failure payload = %q, want ERROR: prefix", rec.Output)
	}
	if !strings.Contains(rec.Output, "upstream 503") {
		t.Errorf("failure payload should carry the cause: %q", rec.Output)
	}
}

func TestDispatchRetriesOnce(t *testing.T) {
	calls := 0
	d := NewDispatcher(DispatcherOptions{
		RetryMax: 1,
		Adapters: map[ToolID]Adapter{
			ToolWarehouseQuery: AdapterFunc(func(ctx context.Context, args Arguments) (string, error) {
				calls++
				if calls == 1 {
					return "", fmt.Errorf("transient")
				}
				return "revenue table", nil
			}),
		},
	})

	s := pendingSession(ToolWarehouseQuery, &WarehouseArgs{Query: "revenue"})
	next, err := d.Dispatch(context.Background(), s)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if calls != 2 {
		t.Errorf("adapter called %d times, want 2", calls)
	}
	if next.Records[0].Failed {
		t.Error("retry succeeded, record must not be failed")
	}
}

func TestDispatchTruncatesOversizedResult(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{
		ResultBudget: 100,
		Adapters: map[ToolID]Adapter{
			ToolRetrieveContext: AdapterFunc(func(ctx context.Context, args Arguments) (string, error) {
				return strings.Repeat("x", 500), nil
			}),
		},
	})

	s := pendingSession(ToolRetrieveContext, &RetrieveArgs{Query: "q"})
	next, err := d.Dispatch(context.Background(), s)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	out := next.Records[0].Output
	if len(out) > 100 {
		t.Errorf("output = %d chars, want <= budget", len(out))
	}
	if !strings.HasSuffix(out, truncatedMarker) {
		t.Errorf("truncated output should carry marker: %q", out[len(out)-30:])
	}
}

func TestDispatchMissingAdapterFailsLoudly(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{Adapters: map[ToolID]Adapter{}})
	s := pendingSession(ToolWebSearch, &SearchArgs{Query: "q"})
	if _, err := d.Dispatch(context.Background(), s); err == nil {
		t.Fatal("missing adapter must be an error, not a silent record")
	}
}

func TestDispatchRejectsTerminalDecision(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{Adapters: map[ToolID]Adapter{}})
	s := pendingSession(ToolFinalAnswer, &FinalizeArgs{})
	if _, err := d.Dispatch(context.Background(), s); err == nil {
		t.Fatal("terminal decisions never reach the dispatcher")
	}
}
