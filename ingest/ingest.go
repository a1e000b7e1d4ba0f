// Package ingest 负责新内容入库：文本复杂度分析、主题抽取、
// 年龄段推导，然后写入目录并维护热度榜。
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/freadom/readrec/analyzer"
	"github.com/freadom/readrec/core"
)

// defaultTopicCount 是自动抽取主题词的条数。
const defaultTopicCount = 5

// Draft 是一条待入库的内容草稿。
// Topics / ReadingLevel / AgeRange 留空时由分析器补全。
type Draft struct {
	Title        string   `json:"title" validate:"required"`
	Text         string   `json:"text" validate:"required"`
	Author       string   `json:"author"`
	Genre        string   `json:"genre"`
	Topics       []string `json:"topics"`
	ReadingLevel float64  `json:"reading_level"`
	AgeRange     string   `json:"age_range"`
	Popularity   int64    `json:"popularity"`
}

// Ingestor 把草稿转成目录内容。
type Ingestor struct {
	contents core.ContentStore
	analyzer core.TextAnalyzer
	parallel int
	log      *zap.Logger

	// mu 串行化"取最大 id + 写入"区段，并发批次不会分到重复 id
	mu sync.Mutex
}

// IngestOption 配置 Ingestor。
type IngestOption func(*Ingestor)

// WithParallelism 设置分析并发度（默认 4）。
func WithParallelism(n int) IngestOption {
	return func(ing *Ingestor) {
		if n > 0 {
			ing.parallel = n
		}
	}
}

// WithIngestLogger 注入日志。
func WithIngestLogger(log *zap.Logger) IngestOption {
	return func(ing *Ingestor) {
		if log != nil {
			ing.log = log
		}
	}
}

// New 创建 Ingestor。analyzer 为 nil 时使用内置启发式分析器。
func New(contents core.ContentStore, ta core.TextAnalyzer, opts ...IngestOption) *Ingestor {
	ing := &Ingestor{
		contents: contents,
		analyzer: ta,
		parallel: 4,
		log:      zap.NewNop(),
	}
	if ing.analyzer == nil {
		ing.analyzer = analyzer.NewSimple()
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Ingest 批量入库：分析并发执行，写目录串行（保持 id 分配确定）。
// 任一草稿校验失败则整批失败，不产生半写入。
func (ing *Ingestor) Ingest(ctx context.Context, drafts []*Draft) ([]*core.Content, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	for i, d := range drafts {
		if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Text) == "" {
			return nil, core.NewDomainError("ingest", core.ErrorCodeInvalidInput,
				fmt.Sprintf("draft %d: title and text are required", i))
		}
	}

	items := make([]*core.Content, len(drafts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.parallel)
	for i, d := range drafts {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			items[i] = ing.build(d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ing.mu.Lock()
	defer ing.mu.Unlock()

	pool, err := ing.contents.FetchAllContent(ctx)
	if err != nil {
		return nil, err
	}
	nextID := int64(1)
	for _, c := range pool {
		if c.ID >= nextID {
			nextID = c.ID + 1
		}
	}

	for _, item := range items {
		item.ID = nextID
		nextID++
		if err := ing.contents.SaveContent(ctx, item); err != nil {
			return items, fmt.Errorf("ingest: save content %q: %w", item.Title, err)
		}
		ing.log.Info("content ingested",
			zap.Int64("content_id", item.ID),
			zap.String("title", item.Title),
			zap.Float64("reading_level", item.ReadingLevel))
	}
	return items, nil
}

// build 用分析器补全草稿缺失的字段。
func (ing *Ingestor) build(d *Draft) *core.Content {
	item := &core.Content{
		Title:        d.Title,
		Text:         d.Text,
		Author:       d.Author,
		Genre:        d.Genre,
		Topics:       d.Topics,
		ReadingLevel: d.ReadingLevel,
		AgeRange:     d.AgeRange,
		Popularity:   d.Popularity,
	}

	if item.ReadingLevel <= 0 {
		item.ReadingLevel = ing.analyzer.Complexity(d.Text).ReadingLevel
	}
	if len(item.Topics) == 0 {
		item.Topics = ing.analyzer.ExtractTopics(d.Text, defaultTopicCount)
	}
	if item.AgeRange == "" {
		item.AgeRange = analyzer.AgeRecommendation(item.ReadingLevel)
	}
	return item
}
