// internal/api/error_codes.go
package api

import (
	"net/http"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
)

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// 方案相关错误
	ErrorPlanNotFound    = "PLAN_NOT_FOUND"
	ErrorVehicleNotFound = "VEHICLE_NOT_FOUND"

	// LLM服务相关错误
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorLLMConfigInvalid      = "LLM_CONFIG_INVALID"
	ErrorLLMProviderMissing    = "LLM_PROVIDER_MISSING"

	// 导出相关错误
	ErrorExportFailed = "EXPORT_FAILED"
)

// statusForErrorType maps an AppError type onto an HTTP status.
func statusForErrorType(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeOutOfBounds:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeInvalidAIResponse:
		return http.StatusBadGateway
	case apperrors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
