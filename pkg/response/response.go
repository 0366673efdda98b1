// Package response 统一 HTTP JSON 响应格式 {"success": bool, "message": string, ...}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/storefront/pkg/errorsx"
	"github.com/wyfcoding/storefront/pkg/logger"
)

// Success 200 成功响应，fields 合并到顶层
func Success(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Created 201 成功响应
func Created(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusCreated, body)
}

// ErrorWithStatus 指定状态码的失败响应
func ErrorWithStatus(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

// Error 按错误分类映射状态码；内部错误只记录日志
func Error(c *gin.Context, err error) {
	status := errorsx.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	ErrorWithStatus(c, status, errorsx.PublicMessage(err))
}

// BadRequest 参数错误
func BadRequest(c *gin.Context, message string) {
	ErrorWithStatus(c, http.StatusBadRequest, message)
}
