package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "sudooom.trivia/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    apperrors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// ErrorWithMsg 自定义错误消息
func ErrorWithMsg(c *gin.Context, code int, message string) {
	c.JSON(httpStatus(code), Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorFromAppError 从 AppError 生成错误响应
func ErrorFromAppError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)
	c.JSON(httpStatus(code), Response{
		Code:    code,
		Message: apperrors.GetMessage(err),
		Data:    nil,
	})
}

// httpStatus 错误码前三位即 HTTP 状态码
func httpStatus(code int) int {
	if code == apperrors.CodeSuccess {
		return http.StatusOK
	}
	status := code / 100
	if status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}
