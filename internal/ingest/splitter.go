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

package ingest

import "strings"

// Splitter 文本切片器。段落优先，超长段落按字符窗口加重叠回退切分。
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewSplitter 创建切片器，非法参数取默认值
func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 100
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Split 切分文本
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > s.ChunkSize {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, s.splitWindow(para)...)
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > s.ChunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitWindow 字符窗口切分，相邻窗口间保留 ChunkOverlap 重叠
func (s *Splitter) splitWindow(text string) []string {
	var chunks []string
	step := s.ChunkSize - s.ChunkOverlap
	for start := 0; start < len(text); start += step {
		end := start + s.ChunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
