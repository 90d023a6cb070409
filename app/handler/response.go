package handler

import (
	"media-forge/app/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ApiResponse 统一响应结构
type ApiResponse struct {
	Code    int    `json:"code"`    // 状态码，0表示成功
	Message string `json:"message"` // 响应消息
	Data    any    `json:"data"`    // 响应数据
}

// respondSuccess 创建成功响应
func respondSuccess(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// respondCreated 创建资源成功响应
func respondCreated(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// respondError 创建错误响应
func respondError(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// respondServiceError 把业务错误映射为 HTTP 状态码
func respondServiceError(c *gin.Context, err error) {
	switch {
	case service.IsNotFound(err):
		respondError(c, http.StatusNotFound, 404, err.Error())
	case service.IsDuplicate(err):
		respondError(c, http.StatusConflict, 409, err.Error())
	case service.IsPrecondition(err):
		respondError(c, http.StatusBadRequest, 400, err.Error())
	case service.IsExternalCall(err):
		respondError(c, http.StatusBadGateway, 502, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, 500, err.Error())
	}
}
