// internal/api/response_helpers.go
package api

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/vanplanner/VanLayoutMCP/internal/errors"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ResponseHelper 响应助手类
type ResponseHelper struct {
	logger *utils.Logger
}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{logger: utils.GetLogger()}
}

// Success 成功响应
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusOK, data, message)
}

// Created 创建成功响应
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	if len(message) == 0 {
		message = []string{"resource created"}
	}
	rh.write(c, http.StatusCreated, data, message)
}

func (rh *ResponseHelper) write(c *gin.Context, status int, data interface{}, message []string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// sanitizeErrorMessage hides messages that mention credentials.
func sanitizeErrorMessage(message string) string {
	lower := strings.ToLower(message)
	for _, pattern := range []string{"api_key", "apikey", "x-api-key", "secret", "token", "authorization"} {
		if strings.Contains(lower, pattern) {
			return "An internal error occurred"
		}
	}
	return message
}

// Error 错误响应
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details map[string]interface{}) {
	response := &APIResponse{
		Success: false,
		Error: &APIError{
			Code:    errorCode,
			Message: sanitizeErrorMessage(message),
			Details: details,
		},
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	c.JSON(statusCode, response)
}

// HandleError converts err into an error response. AppErrors keep their code
// and details; anything else is a 500.
func (rh *ResponseHelper) HandleError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status := statusForErrorType(appErr.Type)
		if status >= http.StatusInternalServerError {
			rh.logger.Error("request failed", map[string]interface{}{
				"path":  c.FullPath(),
				"code":  appErr.Code,
				"error": err.Error(),
			})
		}
		rh.Error(c, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	rh.logger.Error("unhandled error", map[string]interface{}{
		"path":  c.FullPath(),
		"error": err.Error(),
	})
	rh.InternalError(c, "internal error")
}

// BadRequest 400错误响应
func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, err ...error) {
	var details map[string]interface{}
	if len(err) > 0 && err[0] != nil {
		details = map[string]interface{}{"reason": err[0].Error()}
	}
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details)
}

// NotFound 404错误响应
func (rh *ResponseHelper) NotFound(c *gin.Context, resource string) {
	rh.Error(c, http.StatusNotFound, rh.getResourceNotFoundCode(resource), resource+" not found", nil)
}

// InternalError 500错误响应
func (rh *ResponseHelper) InternalError(c *gin.Context, message string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, nil)
}

// ExportResponse 导出响应，内容作为附件下发
func (rh *ResponseHelper) ExportResponse(c *gin.Context, result *models.ExportResult) {
	filename := path.Base(result.FilePath)
	if result.FilePath == "" {
		filename = fmt.Sprintf("%s.%s", result.PlanID, result.Format)
	}
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// getRequestID 获取请求ID
func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// getResourceNotFoundCode 根据资源类型生成错误代码
func (rh *ResponseHelper) getResourceNotFoundCode(resource string) string {
	switch resource {
	case "plan":
		return ErrorPlanNotFound
	case "vehicle":
		return ErrorVehicleNotFound
	default:
		return ErrorNotFound
	}
}
