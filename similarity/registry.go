package similarity

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/freadom/readrec/core"
)

// Constructor 构造一个候选后端。注册表初始化时按序尝试，
// 失败的构造只记日志并跳过，不影响后续候选。
type Constructor func() (core.SimilarityBackend, error)

// Loader 是需要昂贵初始化（模型加载）的后端的可选扩展。
// 未实现 Loader 的后端（关键词）视为始终就绪。
type Loader interface {
	Load(ctx context.Context) error
}

// ScoreResult 是一次托管打分的结果。
// Degraded 表示本次分数来自中性降级（模型未就绪/打分失败/超时），
// 它只是一个状态标记，永远不代表请求失败。
type ScoreResult struct {
	Scores   []float64
	Tiers    []string // 仅关键词后端提供，否则为 nil
	Backend  string
	Degraded bool
}

// backendState 跟踪单个后端的加载生命周期：
// 未加载 -> 加载中（singleflight 在途）-> 已加载 | 失败。
// 策略：成功缓存进程级；失败记录标记，下次访问再惰性重试。
type backendState struct {
	backend core.SimilarityBackend
	loader  Loader // nil 表示无需加载

	mu      sync.RWMutex
	loaded  bool
	lastErr error
}

func (s *backendState) ready() bool {
	if s.loader == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Registry 是进程级的后端注册表：按名字选择当前后端，负责模型的
// 惰性加载、至多一个在途加载、失败时的中性降级与打分超时。
//
// 并发约定：
//   - 读取当前后端名不阻塞（RWMutex 读锁）
//   - 同名后端的并发首次使用只触发一次加载（singleflight），
//     并发调用方共享在途结果
//   - 切换后端只对后续调用生效，不中断在途打分
type Registry struct {
	mu       sync.RWMutex
	current  string
	backends map[string]*backendState

	group   singleflight.Group
	timeout time.Duration
	log     *zap.Logger
}

// Option 配置 Registry。
type Option func(*Registry)

// WithScoreTimeout 设置单次打分的超时；超时按降级处理而不是挂起请求。
// 0 表示不限制。
func WithScoreTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// WithLogger 注入日志。
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithBackends 追加候选后端构造器（按序尝试）。
func WithBackends(ctors ...Constructor) Option {
	return func(r *Registry) {
		for _, ctor := range ctors {
			backend, err := ctor()
			if err != nil || backend == nil {
				r.log.Warn("similarity backend construction failed, skipping",
					zap.Error(err))
				continue
			}
			r.register(backend)
		}
	}
}

// NewRegistry 创建注册表。
// 候选构造按序尝试、逐个兜错；关键词后端始终存在并作为最终兜底，
// 因此 CurrentBackend 永不为 nil。默认选中 DefaultBackend。
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		backends: make(map[string]*backendState),
		current:  DefaultBackend,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if _, ok := r.backends[BackendKeyword]; !ok {
		r.register(NewKeywordBackend(WithKeywordLogger(r.log)))
	}
	return r
}

func (r *Registry) register(backend core.SimilarityBackend) {
	state := &backendState{backend: backend}
	if loader, ok := backend.(Loader); ok {
		state.loader = loader
	}
	r.backends[backend.Name()] = state
}

// SetBackend 切换当前后端。
// 未知名称回退到 DefaultBackend（不报错）；返回值表示所选后端的模型
// 此刻是否确认加载可用——返回 false 时后端仍被选中，只是运行在
// 中性降级模式。
func (r *Registry) SetBackend(ctx context.Context, name string) bool {
	r.mu.Lock()
	state, ok := r.backends[name]
	if !ok {
		r.log.Warn("unknown similarity backend, falling back to default",
			zap.String("requested", name),
			zap.String("default", DefaultBackend))
		name = DefaultBackend
		state = r.backends[name]
	}
	r.current = name
	r.mu.Unlock()

	return r.ensureLoaded(ctx, name, state) == nil
}

// Preload 触发指定后端的模型加载，不切换当前选中。
// 用于启动预热或运维接口；未知名称返回 false。
func (r *Registry) Preload(ctx context.Context, name string) (bool, error) {
	r.mu.RLock()
	state, ok := r.backends[name]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, r.ensureLoaded(ctx, name, state)
}

// Names 返回已注册的后端名（排序）。
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BackendName 返回最后一次成功选中的后端名（可能处于降级模式）。
func (r *Registry) BackendName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// CurrentBackend 返回当前选中的后端实现，永不为 nil。
func (r *Registry) CurrentBackend() core.SimilarityBackend {
	_, state := r.snapshot()
	return state.backend
}

// Degraded 报告当前后端是否处于中性降级模式（选中但未加载成功）。
func (r *Registry) Degraded() bool {
	_, state := r.snapshot()
	return !state.ready()
}

// Score 是引擎的打分入口：确保加载、应用超时、失败降级为中性分。
// 永不返回错误——后端故障对推荐请求不可见，只体现为 Degraded 标记。
func (r *Registry) Score(ctx context.Context, interests []string, items []*core.Content) *ScoreResult {
	name, state := r.snapshot()
	result := &ScoreResult{Backend: name}

	if err := r.ensureLoaded(ctx, name, state); err != nil {
		r.log.Warn("similarity backend not loaded, serving neutral scores",
			zap.String("backend", name),
			zap.Error(err))
		result.Scores = neutralScores(len(items))
		result.Degraded = true
		return result
	}

	scoreCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		scoreCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var (
		scores []float64
		tiers  []string
		err    error
	)
	if reporter, ok := state.backend.(TierReporter); ok {
		scores, tiers, err = reporter.ScoreWithTiers(scoreCtx, interests, items)
	} else {
		scores, err = state.backend.Score(scoreCtx, interests, items)
	}
	if err != nil || len(scores) != len(items) {
		r.log.Warn("similarity scoring failed, serving neutral scores",
			zap.String("backend", name),
			zap.Error(err))
		result.Scores = neutralScores(len(items))
		result.Degraded = true
		return result
	}

	result.Scores = scores
	result.Tiers = tiers
	return result
}

// snapshot 取当前选中的后端（读锁，不阻塞写以外的操作）。
func (r *Registry) snapshot() (string, *backendState) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name := r.current
	state, ok := r.backends[name]
	if !ok {
		// current 永远指向已注册的后端；兜底防御
		name = BackendKeyword
		state = r.backends[name]
	}
	return name, state
}

// ensureLoaded 惰性加载：成功缓存，失败下次访问重试，
// singleflight 保证同名后端同一时刻至多一个加载在途。
func (r *Registry) ensureLoaded(ctx context.Context, name string, state *backendState) error {
	if state.ready() {
		return nil
	}

	_, err, _ := r.group.Do(name, func() (interface{}, error) {
		// 进入 singleflight 后复查，避免紧随成功加载的重复尝试
		if state.ready() {
			return nil, nil
		}
		loadErr := state.loader.Load(ctx)

		state.mu.Lock()
		defer state.mu.Unlock()
		if loadErr != nil {
			state.lastErr = loadErr
			return nil, loadErr
		}
		state.loaded = true
		state.lastErr = nil
		r.log.Info("similarity backend loaded", zap.String("backend", name))
		return nil, nil
	})
	return err
}

func neutralScores(n int) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = core.NeutralScore
	}
	return scores
}
