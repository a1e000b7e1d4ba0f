// Package server 提供推荐服务的 HTTP API（echo）。
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/freadom/readrec/analyzer"
	"github.com/freadom/readrec/core"
	"github.com/freadom/readrec/engine"
	"github.com/freadom/readrec/ingest"
	"github.com/freadom/readrec/similarity"
)

// defaultRecommendCount 是未指定 count 参数时的推荐条数。
const defaultRecommendCount = 3

// Server 聚合所有 HTTP 依赖。
type Server struct {
	echo     *echo.Echo
	validate *validator.Validate

	engine   *engine.Engine
	history  *engine.HistoryAnalyzer
	registry *similarity.Registry
	users    core.UserStore
	contents core.ContentStore
	ingestor *ingest.Ingestor
	textual  core.TextAnalyzer
	log      *zap.Logger
}

// Deps 是 Server 的构造依赖。
type Deps struct {
	Engine   *engine.Engine
	History  *engine.HistoryAnalyzer
	Registry *similarity.Registry
	Users    core.UserStore
	Contents core.ContentStore
	Ingestor *ingest.Ingestor
	Analyzer core.TextAnalyzer
	Logger   *zap.Logger
}

// New 创建 Server 并注册路由。
func New(deps Deps) *Server {
	s := &Server{
		echo:     echo.New(),
		validate: validator.New(),
		engine:   deps.Engine,
		history:  deps.History,
		registry: deps.Registry,
		users:    deps.Users,
		contents: deps.Contents,
		ingestor: deps.Ingestor,
		textual:  deps.Analyzer,
		log:      deps.Logger,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.textual == nil {
		s.textual = analyzer.NewSimple()
	}

	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.echo.Group("/api")
	api.GET("/recommend/:user_id", s.handleRecommend)
	api.GET("/users", s.handleListUsers)
	api.GET("/user/:user_id/progress", s.handleProgress)
	api.POST("/user/:user_id/read/:content_id", s.handleMarkRead)
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/content/popular", s.handlePopular)
	api.POST("/content", s.handleIngest)
	api.GET("/settings/backend", s.handleGetBackend)
	api.POST("/settings/backend", s.handleSetBackend)
	api.POST("/setup/models", s.handleWarmModels)

	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Start 启动 HTTP 服务（阻塞）。
func (s *Server) Start(addr string) error {
	s.log.Info("http server starting", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Echo 暴露底层 echo 实例（测试用）。
func (s *Server) Echo() *echo.Echo { return s.echo }

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// GET /api/recommend/:user_id?count=3
func (s *Server) handleRecommend(c echo.Context) error {
	started := time.Now()
	defer func() { recommendLatency.Observe(time.Since(started).Seconds()) }()

	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid user id"})
	}
	count := defaultRecommendCount
	if raw := c.QueryParam("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			count = n
		}
	}

	result, err := s.engine.Recommend(c.Request().Context(), userID, count)
	switch {
	case err == nil:
	case core.IsNotFound(err):
		requestsTotal.WithLabelValues("recommend", "not_found").Inc()
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
	case core.IsEmptyResult(err):
		requestsTotal.WithLabelValues("recommend", "empty").Inc()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"message":         "no new content available",
			"recommendations": []interface{}{},
		})
	default:
		requestsTotal.WithLabelValues("recommend", "error").Inc()
		s.log.Error("recommend failed", zap.Int64("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}

	if result.Degraded {
		degradedTotal.Inc()
	}
	requestsTotal.WithLabelValues("recommend", "ok").Inc()
	return c.JSON(http.StatusOK, result)
}

// GET /api/users
func (s *Server) handleListUsers(c echo.Context) error {
	users, err := s.users.ListUsers(c.Request().Context())
	if err != nil {
		requestsTotal.WithLabelValues("users", "error").Inc()
		s.log.Error("list users failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
	requestsTotal.WithLabelValues("users", "ok").Inc()
	return c.JSON(http.StatusOK, users)
}

// GET /api/user/:user_id/progress
func (s *Server) handleProgress(c echo.Context) error {
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid user id"})
	}

	report, err := s.history.Analyze(c.Request().Context(), userID)
	switch {
	case err == nil:
	case core.IsNotFound(err):
		requestsTotal.WithLabelValues("progress", "not_found").Inc()
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
	case core.IsEmptyResult(err):
		requestsTotal.WithLabelValues("progress", "empty").Inc()
		return c.JSON(http.StatusOK, messageResponse{Message: "no reading history"})
	default:
		requestsTotal.WithLabelValues("progress", "error").Inc()
		s.log.Error("progress failed", zap.Int64("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}

	requestsTotal.WithLabelValues("progress", "ok").Inc()
	return c.JSON(http.StatusOK, report)
}

// POST /api/user/:user_id/read/:content_id
func (s *Server) handleMarkRead(c echo.Context) error {
	userID, err := pathID(c, "user_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid user id"})
	}
	contentID, err := pathID(c, "content_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid content id"})
	}

	appended, err := s.users.AppendHistory(c.Request().Context(), userID, contentID)
	switch {
	case err == nil:
	case core.IsNotFound(err):
		requestsTotal.WithLabelValues("mark_read", "not_found").Inc()
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user or content not found"})
	default:
		requestsTotal.WithLabelValues("mark_read", "error").Inc()
		s.log.Error("mark read failed",
			zap.Int64("user_id", userID),
			zap.Int64("content_id", contentID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}

	requestsTotal.WithLabelValues("mark_read", "ok").Inc()
	if !appended {
		return c.JSON(http.StatusOK, messageResponse{Message: "already in history"})
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "marked as read"})
}

type analyzeRequest struct {
	Text string `json:"text" validate:"required"`
}

type analyzeResponse struct {
	Analysis *core.TextAnalysis `json:"analysis"`
	Topics   []string           `json:"topics"`
	AgeRange string             `json:"age_range"`
}

// POST /api/analyze
func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if err := s.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "no text provided"})
	}

	analysis := s.textual.Complexity(req.Text)
	requestsTotal.WithLabelValues("analyze", "ok").Inc()
	return c.JSON(http.StatusOK, analyzeResponse{
		Analysis: analysis,
		Topics:   s.textual.ExtractTopics(req.Text, 5),
		AgeRange: analyzer.AgeRecommendation(analysis.ReadingLevel),
	})
}

// GET /api/content/popular?count=5
func (s *Server) handlePopular(c echo.Context) error {
	count := int64(5)
	if raw := c.QueryParam("count"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			count = n
		}
	}
	items, err := s.contents.FetchPopular(c.Request().Context(), count)
	if err != nil {
		requestsTotal.WithLabelValues("popular", "error").Inc()
		s.log.Error("fetch popular failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
	requestsTotal.WithLabelValues("popular", "ok").Inc()
	return c.JSON(http.StatusOK, items)
}

type ingestRequest struct {
	Drafts []*ingest.Draft `json:"drafts" validate:"required,min=1,dive,required"`
}

// POST /api/content
func (s *Server) handleIngest(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if err := s.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	items, err := s.ingestor.Ingest(c.Request().Context(), req.Drafts)
	if err != nil {
		if derr := core.GetDomainError(err); derr != nil && derr.Code == core.ErrorCodeInvalidInput {
			requestsTotal.WithLabelValues("ingest", "invalid").Inc()
			return c.JSON(http.StatusBadRequest, errorResponse{Error: derr.Message})
		}
		requestsTotal.WithLabelValues("ingest", "error").Inc()
		s.log.Error("ingest failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
	requestsTotal.WithLabelValues("ingest", "ok").Inc()
	return c.JSON(http.StatusCreated, items)
}

type backendResponse struct {
	CurrentBackend string `json:"current_backend"`
	Degraded       bool   `json:"degraded,omitempty"`
}

// GET /api/settings/backend
func (s *Server) handleGetBackend(c echo.Context) error {
	return c.JSON(http.StatusOK, backendResponse{
		CurrentBackend: s.registry.BackendName(),
		Degraded:       s.registry.Degraded(),
	})
}

type setBackendRequest struct {
	Backend string `json:"backend" validate:"required"`
}

// POST /api/settings/backend
// 未知名称回退到默认后端，不报错；加载失败返回 200 + degraded 标记。
func (s *Server) handleSetBackend(c echo.Context) error {
	var req setBackendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	if err := s.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "no backend specified"})
	}

	loaded := s.registry.SetBackend(c.Request().Context(), req.Backend)
	current := s.registry.BackendName()
	backendSwitches.WithLabelValues(current).Inc()
	s.log.Info("similarity backend switched",
		zap.String("requested", req.Backend),
		zap.String("current", current),
		zap.Bool("loaded", loaded))
	return c.JSON(http.StatusOK, backendResponse{
		CurrentBackend: current,
		Degraded:       !loaded,
	})
}

type warmModelsResponse struct {
	Loaded []string          `json:"loaded"`
	Failed map[string]string `json:"failed,omitempty"`
}

// POST /api/setup/models
// 预热全部已注册后端的模型加载；失败的后端留在降级模式。
func (s *Server) handleWarmModels(c echo.Context) error {
	resp := warmModelsResponse{Failed: make(map[string]string)}
	for _, name := range s.registry.Names() {
		_, err := s.registry.Preload(c.Request().Context(), name)
		if err != nil {
			resp.Failed[name] = err.Error()
			continue
		}
		resp.Loaded = append(resp.Loaded, name)
	}
	if len(resp.Failed) == 0 {
		resp.Failed = nil
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /healthz
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": s.registry.BackendName(),
	})
}

func pathID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}
