// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType 定义错误类型
type ErrorType string

const (
	ErrorTypeValidation        ErrorType = "validation_error"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeError             ErrorType = "processing_error"
	ErrorTypeConflict          ErrorType = "conflict"
	ErrorTypeTimeout           ErrorType = "timeout"
	ErrorTypeOutOfBounds       ErrorType = "out_of_bounds"
	ErrorTypeInvalidAIResponse ErrorType = "invalid_ai_response"
	ErrorTypeUnavailable       ErrorType = "unavailable"
)

// maxRawExcerpt bounds the raw LLM text kept on an InvalidAIResponse error.
const maxRawExcerpt = 300

// AppError 应用程序错误结构
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
	Details map[string]interface{}
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap 实现错误链接
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value to the error and returns it.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewAppError 创建新的 AppError
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError 创建未找到错误
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewProcessingError 创建处理错误
func NewProcessingError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeError, message, originalError)
}

// NewConflictError 创建冲突错误
func NewConflictError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeConflict, message, originalError)
}

// NewUnavailableError is returned when a dependency such as the LLM provider is not configured.
func NewUnavailableError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUnavailable, message, originalError)
}

// NewOutOfBoundsError 位置或尺寸无法满足车辆边界
func NewOutOfBoundsError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeOutOfBounds, message, originalError)
}

// NewInvalidAIResponseError 记录无法解析或校验失败的 AI 响应。
// raw is truncated before being stored.
func NewInvalidAIResponseError(message, raw string, originalError error) *AppError {
	return NewAppError(ErrorTypeInvalidAIResponse, message, originalError).
		WithDetail("raw", Truncate(raw, maxRawExcerpt))
}

// Truncate shortens s to at most n runes, marking the cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// TypeOf returns the ErrorType of err, or "" when err is not an AppError.
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ""
}

// IsValidationError 检查是否为验证错误
func IsValidationError(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsNotFoundError 检查是否为未找到错误
func IsNotFoundError(err error) bool {
	return TypeOf(err) == ErrorTypeNotFound
}

// IsConflictError 检查是否为冲突错误
func IsConflictError(err error) bool {
	return TypeOf(err) == ErrorTypeConflict
}

// IsOutOfBoundsError 检查是否为越界错误
func IsOutOfBoundsError(err error) bool {
	return TypeOf(err) == ErrorTypeOutOfBounds
}

// IsInvalidAIResponse 检查是否为 AI 响应错误
func IsInvalidAIResponse(err error) bool {
	return TypeOf(err) == ErrorTypeInvalidAIResponse
}

// generateErrorCode 根据错误类型生成错误代码
func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeError:
		return "PROCESSING_ERROR"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeOutOfBounds:
		return "OUT_OF_BOUNDS"
	case ErrorTypeInvalidAIResponse:
		return "INVALID_AI_RESPONSE"
	case ErrorTypeUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError 包装现有错误
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appError *AppError
	if errors.As(err, &appError) {
		// 已经是 AppError，保留类型和细节
		return &AppError{
			Type:    appError.Type,
			Message: fmt.Sprintf("%s: %s", message, appError.Message),
			Err:     appError,
			Code:    appError.Code,
			Details: appError.Details,
		}
	}

	return NewAppError(errType, message, err)
}
