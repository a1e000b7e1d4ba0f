package config

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/freadom/readrec/core"
	"github.com/freadom/readrec/service"
	"github.com/freadom/readrec/similarity"
)

// BackendBuilder 根据配置构建一个相似度后端。
// 各实现通过 RegisterBackend 注册后即可被配置驱动。
type BackendBuilder func(cfg *Config, log *zap.Logger) (core.SimilarityBackend, error)

var (
	backendBuilders   = make(map[string]BackendBuilder)
	backendBuildersMu sync.RWMutex
)

// RegisterBackend 注册一种后端的构建逻辑。
func RegisterBackend(name string, builder BackendBuilder) {
	if name == "" || builder == nil {
		return
	}
	backendBuildersMu.Lock()
	defer backendBuildersMu.Unlock()
	backendBuilders[name] = builder
}

// SupportedBackends 返回已注册的后端名列表（排序），用于错误提示。
func SupportedBackends() []string {
	backendBuildersMu.RLock()
	defer backendBuildersMu.RUnlock()
	names := make([]string, 0, len(backendBuilders))
	for name := range backendBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Constructors 把已注册的构建器绑定到配置，产出注册表可用的构造器列表。
// 构造失败由注册表逐个兜错，不在这里短路。
func Constructors(cfg *Config, log *zap.Logger) []similarity.Constructor {
	backendBuildersMu.RLock()
	defer backendBuildersMu.RUnlock()

	names := make([]string, 0, len(backendBuilders))
	for name := range backendBuilders {
		names = append(names, name)
	}
	sort.Strings(names)

	ctors := make([]similarity.Constructor, 0, len(names))
	for _, name := range names {
		builder := backendBuilders[name]
		ctors = append(ctors, func() (core.SimilarityBackend, error) {
			return builder(cfg, log)
		})
	}
	return ctors
}

func init() {
	RegisterBackend(similarity.BackendKeyword, buildKeywordBackend)
	RegisterBackend(similarity.BackendSBERT, embeddingBuilder(similarity.BackendSBERT))
	RegisterBackend(similarity.BackendQwen, embeddingBuilder(similarity.BackendQwen))
}

func buildKeywordBackend(cfg *Config, log *zap.Logger) (core.SimilarityBackend, error) {
	opts := []similarity.KeywordOption{similarity.WithKeywordLogger(log)}
	if cfg.Similarity.PolicyFile != "" {
		policy, err := similarity.LoadPolicy(cfg.Similarity.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("config: load tier policy: %w", err)
		}
		compiled, err := policy.Compile()
		if err != nil {
			return nil, fmt.Errorf("config: compile tier policy: %w", err)
		}
		opts = append(opts, similarity.WithPolicy(compiled))
	}
	return similarity.NewKeywordBackend(opts...), nil
}

// embeddingBuilder 为指定名称的 embedding 后端生成构建器。
// 配置里没有对应编码服务时返回错误，注册表会跳过该候选。
func embeddingBuilder(name string) BackendBuilder {
	return func(cfg *Config, log *zap.Logger) (core.SimilarityBackend, error) {
		enc, ok := cfg.Similarity.Encoders[name]
		if !ok {
			return nil, fmt.Errorf("config: no encoder configured for backend %q", name)
		}
		opts := []service.EmbeddingClientOption{}
		if enc.Timeout > 0 {
			opts = append(opts, service.WithTimeout(enc.Timeout))
		}
		if enc.Token != "" {
			opts = append(opts, service.WithToken(enc.Token))
		}
		model := enc.Model
		if model == "" {
			model = name
		}
		client := service.NewEmbeddingClient(enc.Endpoint, model, opts...)
		return similarity.NewEmbeddingBackend(name, client, similarity.WithEmbeddingLogger(log)), nil
	}
}
