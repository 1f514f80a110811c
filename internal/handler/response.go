// Package handler 提供运维 HTTP 请求处理
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// BadRequest 返回参数错误响应
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, &Response{
		Code:    40001,
		Message: message,
	})
}

// Conflict 返回冲突响应 (如流水线已在运行)
func Conflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, &Response{
		Code:    40901,
		Message: message,
	})
}

// InternalError 返回内部错误响应
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, &Response{
		Code:    50001,
		Message: message,
	})
}
