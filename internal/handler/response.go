package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zemyth-app/raise/internal/protoerr"
)

// SuccessResponse 成功响应。动作类接口的data为TxResponse，查询类接口为快照数据
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// RevertResponse 账本回滚响应。携带协议错误码，客户端据此区分具体失败原因
func RevertResponse(c *gin.Context, perr *protoerr.Error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"success": false,
		"code":    perr.Code,
		"message": perr.Message,
	})
}
