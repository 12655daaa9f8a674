// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeSuggestionNotFound ErrorCode = "3001"
	CodeModelNotFound      ErrorCode = "3002"
	CodeTemplateNotFound   ErrorCode = "3003"
	CodeSourceNotFound     ErrorCode = "3004"

	// 业务错误 (4xxx)
	CodeValidationFailed   ErrorCode = "4002"
	CodeCapabilityMismatch ErrorCode = "4007"
	CodeSuggestionState    ErrorCode = "4008"
	CodeParsingFailed      ErrorCode = "4009"
	CodeAnalysisFailed     ErrorCode = "4010"
	CodeMaterializeFailed  ErrorCode = "4011"

	// 外部服务错误 (5xxx)
	CodeDatabaseError    ErrorCode = "5001"
	CodeCacheError       ErrorCode = "5002"
	CodeLLMProviderError ErrorCode = "5005"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail
	return e
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Newf 按格式创建应用错误
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeInvalidParam, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound, CodeSuggestionNotFound, CodeModelNotFound, CodeTemplateNotFound, CodeSourceNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeSuggestionState:
		return http.StatusConflict
	case CodeCapabilityMismatch:
		return http.StatusUnprocessableEntity
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeLLMProviderError, CodeParsingFailed, CodeAnalysisFailed, CodeMaterializeFailed:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 引擎错误分类构造函数

// Validation 请求或模板渲染校验失败
func Validation(format string, args ...any) *AppError {
	return Newf(CodeValidationFailed, format, args...)
}

// CapabilityMismatch 没有满足能力要求的可用模型
func CapabilityMismatch(format string, args ...any) *AppError {
	return Newf(CodeCapabilityMismatch, format, args...)
}

// Provider 模型调用失败（超时、限流、上游错误）
func Provider(err error, format string, args ...any) *AppError {
	return Wrap(err, CodeLLMProviderError, fmt.Sprintf(format, args...))
}

// Parsing 模型输出无法解析
func Parsing(err error, format string, args ...any) *AppError {
	return Wrap(err, CodeParsingFailed, fmt.Sprintf(format, args...))
}

// SuggestionState 状态迁移非法或并发冲突
func SuggestionState(format string, args ...any) *AppError {
	return Newf(CodeSuggestionState, format, args...)
}

// NotFound 资源不存在
func NotFound(code ErrorCode, format string, args ...any) *AppError {
	return Newf(code, format, args...)
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// CodeOf 返回错误链上第一个 AppError 的错误码
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsCode 判断错误链上是否存在指定错误码
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
