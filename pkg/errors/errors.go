// Package errors 提供统一错误类型与哨兵错误。
//
// 两层结构:
//   - L1 哨兵错误: 会话失败分类 (首帧超时/总时长超时/传输失败/服务端错误/用户中止)
//     + 通用哨兵 (ErrNotFound / ErrInvalidInput / ErrSessionBusy)
//   - L2 AppError: 带 Op + Code + Message 的应用级错误
package errors

import (
	"errors"
	"fmt"
)

// ========================================
// L1 哨兵错误 (Sentinel Errors)
// ========================================

var (
	// ErrFirstTokenTimeout 首帧超时: T1 窗口内没有任何内容帧到达。
	ErrFirstTokenTimeout = errors.New("first token timeout")

	// ErrStreamTimeout 流总时长超时: T2 窗口内未收到终止帧。
	ErrStreamTimeout = errors.New("stream duration timeout")

	// ErrTransport 传输层失败 (连接断开、写失败等)。
	ErrTransport = errors.New("transport failure")

	// ErrServerReported 服务端通过 error 终止帧上报的错误。
	ErrServerReported = errors.New("server reported error")

	// ErrAborted 用户主动中止, 不作为错误展示。
	ErrAborted = errors.New("user aborted")

	// ErrSessionBusy 同一 thread 已有会话在流式进行中。
	ErrSessionBusy = errors.New("session busy")

	// ErrNotFound 资源不存在
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput 输入参数无效
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal 内部错误
	ErrInternal = errors.New("internal error")
)

// Retryable 判断失败的会话内容是否应保留供一键重试。
// 除用户中止外的所有失败都可重试。
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrAborted)
}

// ========================================
// L2 AppError (应用级错误)
// ========================================

// AppError 应用级错误，带操作上下文。
type AppError struct {
	Op      string // 操作名，如 "StreamSession.Send"
	Code    string // 错误码，如 "TIMEOUT"、"VALIDATION"
	Message string // 人类可读消息
	Err     error  // 原始错误
}

// Error 实现 error 接口。
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap 支持 errors.Is / errors.As 链式查找。
func (e *AppError) Unwrap() error {
	return e.Err
}

// ========================================
// 工厂函数
// ========================================

// New 创建无原因链的应用错误。
func New(op, message string) error {
	return &AppError{Op: op, Message: message}
}

// Newf 创建带格式化消息的应用错误。
func Newf(op, format string, args ...any) error {
	return &AppError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装错误并附加操作上下文。
func Wrap(err error, op string, message string) error {
	return &AppError{Op: op, Message: message, Err: err}
}

// Wrapf 用格式化消息包装错误。
func Wrapf(err error, op, format string, args ...any) error {
	return &AppError{Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// Is 透传 errors.Is (调用方免 import 标准库 errors)。
func Is(err, target error) bool { return errors.Is(err, target) }

// As 透传 errors.As。
func As(err error, target any) bool { return errors.As(err, target) }
