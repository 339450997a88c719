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

// 财报语料离线入库工具：提取 PDF/文本、切片、嵌入并写入检索后端。
// 用法:
//
//	go run ./cmd/ingest -file data/NVDA_2024_Q1.pdf
//	go run ./cmd/ingest -dir data/transcripts -source earnings_call
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"research-platform/internal/app"
	"research-platform/internal/ingest"
	"research-platform/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/api.yaml", "配置文件路径")
	file := flag.String("file", "", "单个语料文件（.pdf/.txt/.md）")
	dir := flag.String("dir", "", "语料目录，递归处理支持的文件")
	year := flag.String("year", "", "财年，空时从文件名推断（如 NVDA_2024_Q1.pdf）")
	period := flag.String("period", "", "季度，空时从文件名推断")
	source := flag.String("source", "", "来源标签，空时使用文件名")
	chunkSize := flag.Int("chunk-size", 0, "切片字符数，<=0 使用默认")
	chunkOverlap := flag.Int("chunk-overlap", 0, "切片重叠字符数，<=0 使用默认")
	flag.Parse()

	if *file == "" && *dir == "" {
		log.Fatal("必须指定 -file 或 -dir")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	modelCfg, err := config.LoadConfig("configs/model.yaml")
	if err == nil {
		cfg.Model = modelCfg.Model
	}

	ctx := context.Background()
	bootstrap, err := app.NewBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	if bootstrap.Embedder == nil {
		log.Fatal("未配置 Embedding 模型（model.defaults.embedding）")
	}
	if cfg.Retrieval.Type != "redis" {
		log.Fatalf("离线入库仅支持 redis 检索后端，当前: %q", cfg.Retrieval.Type)
	}

	indexer, err := ingest.NewIndexer(ctx, cfg.Retrieval, bootstrap.Embedder, nil)
	if err != nil {
		log.Fatalf("初始化索引后端失败: %v", err)
	}
	ingestor := ingest.NewIngestor(indexer, ingest.NewSplitter(*chunkSize, *chunkOverlap), bootstrap.Logger)

	files, err := collectFiles(*file, *dir)
	if err != nil {
		log.Fatalf("收集语料文件失败: %v", err)
	}
	if len(files) == 0 {
		log.Fatal("未找到可入库的语料文件")
	}

	total := 0
	for _, path := range files {
		y, p := *year, *period
		if y == "" || p == "" {
			py, pp := ingest.ParseTranscriptName(path)
			if y == "" {
				y = py
			}
			if p == "" {
				p = pp
			}
		}
		n, err := ingestor.IngestFile(ctx, ingest.Transcript{
			Path:   path,
			Year:   y,
			Period: p,
			Source: *source,
		})
		if err != nil {
			log.Printf("入库失败 %s: %v", path, err)
			continue
		}
		total += n
	}
	log.Printf("入库完成: %d 个文件, %d 个切片", len(files), total)
}

// collectFiles 收集待处理文件；dir 模式下只取支持的扩展名
func collectFiles(file, dir string) ([]string, error) {
	if file != "" {
		return []string{file}, nil
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
