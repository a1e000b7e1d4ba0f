package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 公共契约里的"正常分支"（用户不存在、无新内容、无阅读历史）也用
// DomainError 表达：它们是高频、可预期的终态，调用方用 IsNotFound /
// IsEmptyResult 区分，而不是当作故障处理。
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "EMPTY_RESULT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "engine", "similarity"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError（支持 %w 包装链），如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeEmptyResult   = "EMPTY_RESULT"   // 合法终态：无候选/无历史，不是故障
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 后端/服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore      = "store"      // 存储模块
	ModuleEngine     = "engine"     // 打分/排序引擎
	ModuleSimilarity = "similarity" // 相似度后端
	ModuleService    = "service"    // 外部模型服务
	ModuleProfile    = "profile"    // 用户画像源
)

// 预定义错误值
var (
	// ErrUserNotFound 表示用户不存在
	ErrUserNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "user not found")

	// ErrContentNotFound 表示内容不存在
	ErrContentNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "content not found")

	// ErrNoCandidates 表示过滤后没有可推荐的新内容（正常终态）
	ErrNoCandidates = NewDomainError(ModuleEngine, ErrorCodeEmptyResult, "no new content available")

	// ErrNoHistory 表示用户没有阅读历史（正常终态）
	ErrNoHistory = NewDomainError(ModuleEngine, ErrorCodeEmptyResult, "no reading history available")

	// ErrStoreNotFound 表示 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrStoreNotSupported 表示操作不支持
	ErrStoreNotSupported = NewDomainError(ModuleStore, ErrorCodeNotSupported, "store: operation not supported")

	// ErrBackendUnavailable 表示模型加载失败，后端运行在降级模式
	ErrBackendUnavailable = NewDomainError(ModuleSimilarity, ErrorCodeUnavailable, "similarity backend unavailable")
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsEmptyResult 检查错误是否为 EMPTY_RESULT（合法终态，非故障）
func IsEmptyResult(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeEmptyResult
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}
