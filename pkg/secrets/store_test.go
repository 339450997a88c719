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

package secrets

import (
	"context"
	"strings"
	"testing"
)

func TestNewStore(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		wantErr     bool
		errContains string
	}{
		{name: "default is env", provider: "", wantErr: false},
		{name: "memory", provider: "memory", wantErr: false},
		{name: "env", provider: "env", wantErr: false},
		{name: "unknown provider", provider: "unknown", wantErr: true, errContains: "unsupported secret provider"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewStore(Config{Provider: tc.provider})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				if tc.errContains != "" && !strings.Contains(err.Error(), tc.errContains) {
					t.Fatalf("error = %q, want contains %q", err.Error(), tc.errContains)
				}
				if store != nil {
					t.Fatalf("store should be nil when error occurs")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store == nil {
				t.Fatalf("store should not be nil")
			}
		})
	}
}

func TestMemoryAndEnvStoreBasicContract(t *testing.T) {
	ctx := context.Background()
	stores := []Store{NewMemoryStore(), NewEnvStore()}

	for _, s := range stores {
		if err := s.Set(ctx, "secret_test_key", "value"); err != nil {
			t.Fatalf("set secret failed: %v", err)
		}
		got, err := s.Get(ctx, "secret_test_key")
		if err != nil {
			t.Fatalf("get secret failed: %v", err)
		}
		if got != "value" {
			t.Fatalf("get secret = %q, want %q", got, "value")
		}
		keys, err := s.List(ctx, "secret_test_")
		if err != nil {
			t.Fatalf("list secrets failed: %v", err)
		}
		found := false
		for _, k := range keys {
			if k == "secret_test_key" {
				found = true
			}
		}
		if !found {
			t.Fatalf("list secrets missing secret_test_key: %v", keys)
		}
		if err := s.Delete(ctx, "secret_test_key"); err != nil {
			t.Fatalf("delete secret failed: %v", err)
		}
		if _, err := s.Get(ctx, "secret_test_key"); err == nil {
			t.Fatalf("get after delete should fail")
		}
	}
}
