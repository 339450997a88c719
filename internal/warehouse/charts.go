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

package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgerrors "research-platform/pkg/errors"
)

// ChartPoint 图表数据点
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartSpec 图表描述，前端据此渲染
type ChartSpec struct {
	Title  string       `json:"title"`
	Kind   string       `json:"kind"`
	Unit   string       `json:"unit,omitempty"`
	Points []ChartPoint `json:"points"`
}

// Chart 已保存的图表工件
type Chart struct {
	ID        string    `json:"id"`
	Spec      ChartSpec `json:"spec"`
	CreatedAt time.Time `json:"created_at"`
}

// ChartStore 图表工件存储，表 chart_artifacts(id, spec jsonb, created_at)
type ChartStore struct {
	pool *pgxpool.Pool
}

// NewChartStore 创建图表存储
func NewChartStore(pool *pgxpool.Pool) *ChartStore {
	return &ChartStore{pool: pool}
}

// Save 保存图表，返回工件 ID
func (s *ChartStore) Save(ctx context.Context, spec ChartSpec) (string, error) {
	id := uuid.New().String()
	payload, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("marshal chart spec: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO chart_artifacts (id, spec, created_at) VALUES ($1, $2, now())`,
		id, payload)
	if err != nil {
		return "", fmt.Errorf("insert chart: %w", err)
	}
	return id, nil
}

// Get 按 ID 读取图表，不存在返回 ErrNotFound
func (s *ChartStore) Get(ctx context.Context, id string) (*Chart, error) {
	var payload []byte
	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT spec, created_at FROM chart_artifacts WHERE id = $1`,
		id).Scan(&payload, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrNotFound, "chart %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query chart: %w", err)
	}

	chart := &Chart{ID: id, CreatedAt: createdAt}
	if err := json.Unmarshal(payload, &chart.Spec); err != nil {
		return nil, fmt.Errorf("unmarshal chart spec: %w", err)
	}
	return chart, nil
}
