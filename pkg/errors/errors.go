package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 注册边界（HTTP / WebSocket 握手）统一使用，包含错误码和用户可见消息
type AppError struct {
	Code    int    // 错误码
	Message string // 用户可见的错误消息
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 参数相关 40000-40099
	CodeInvalidParams = 40001

	// 认证相关 40100-40199
	CodeTokenInvalid  = 40101
	CodeNotRegistered = 40102

	// 资源不存在 40400-40499
	CodeRoomNotFound = 40401

	// 资源冲突 40900-40999
	CodeNameTaken         = 40901
	CodeGameStarted       = 40902
	CodeAlreadyConnected  = 40903
	CodeRoomLimitExceeded = 40904

	// 系统错误 50000-50999
	CodeServerError = 50001
	CodeNotReady    = 50301
)

// ============== 预定义错误 ==============

var (
	ErrInvalidParams = NewError(CodeInvalidParams, "invalid parameters")

	ErrTokenInvalid  = NewError(CodeTokenInvalid, "reconnection token is invalid")
	ErrNotRegistered = NewError(CodeNotRegistered, "player is not registered in this room")

	ErrRoomNotFound = NewError(CodeRoomNotFound, "room not found")

	ErrNameTaken         = NewError(CodeNameTaken, "player name is already taken")
	ErrGameStarted       = NewError(CodeGameStarted, "game has already started")
	ErrAlreadyConnected  = NewError(CodeAlreadyConnected, "player is already connected elsewhere")
	ErrRoomLimitExceeded = NewError(CodeRoomLimitExceeded, "too many active rooms")

	ErrServerError = NewError(CodeServerError, "internal server error")
	ErrNotReady    = NewError(CodeNotReady, "service is warming up")
)
