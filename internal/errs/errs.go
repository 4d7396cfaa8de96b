package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误类别，对外作为机器可读的错误码
type Kind string

const (
	KindValidation       Kind = "validation"        // 输入不合法
	KindNotFound         Kind = "not_found"         // 记录不存在
	KindPrecondition     Kind = "precondition"      // 状态不满足操作前置条件
	KindUnauthorized     Kind = "unauthorized"      // 调用方无权限
	KindCustodyIntegrity Kind = "custody_integrity" // 派生地址与存储地址不一致
	KindLedger           Kind = "ledger"            // 链上查询或转账失败
	KindTimeout          Kind = "timeout"           // 等待链上确认超时
	KindDecryption       Kind = "decryption"        // 密钥错误或密文被篡改
	KindFormat           Kind = "format"            // 密文格式不合法
	KindInternal         Kind = "internal"          // 其他内部错误
)

// Error 带类别的业务错误
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建指定类别的错误
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误并附加类别
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Validation 输入校验错误
func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// NotFound 记录不存在
func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// Precondition 状态前置条件错误
func Precondition(format string, args ...interface{}) *Error {
	return New(KindPrecondition, format, args...)
}

// Unauthorized 权限错误
func Unauthorized(format string, args ...interface{}) *Error {
	return New(KindUnauthorized, format, args...)
}

// CustodyIntegrity 托管密钥完整性错误
func CustodyIntegrity(format string, args ...interface{}) *Error {
	return New(KindCustodyIntegrity, format, args...)
}

// Ledger 链上操作错误
func Ledger(err error, format string, args ...interface{}) *Error {
	return Wrap(KindLedger, err, format, args...)
}

// Timeout 链上确认超时
func Timeout(format string, args ...interface{}) *Error {
	return New(KindTimeout, format, args...)
}

// Decryption 解密失败
func Decryption(format string, args ...interface{}) *Error {
	return New(KindDecryption, format, args...)
}

// Format 密文格式错误
func Format(format string, args ...interface{}) *Error {
	return New(KindFormat, format, args...)
}

// KindOf 返回错误的类别，未知错误归为 internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind 判断错误是否属于指定类别
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus 错误类别到HTTP状态码的映射
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindPrecondition, KindFormat:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindLedger:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
