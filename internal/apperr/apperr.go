package apperr

import (
	"errors"
	"net/http"
)

// Kind 业务错误分类，handlers 层据此映射 HTTP 状态码
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindInvalidState       Kind = "invalid_state"
	KindExpired            Kind = "expired"
	KindPreconditionFailed Kind = "precondition_failed"
	KindInvalidContent     Kind = "invalid_content"
	KindConflict           Kind = "conflict"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(msg string) *Error           { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) *Error          { return &Error{Kind: KindForbidden, Message: msg} }
func InvalidState(msg string) *Error       { return &Error{Kind: KindInvalidState, Message: msg} }
func Expired(msg string) *Error            { return &Error{Kind: KindExpired, Message: msg} }
func PreconditionFailed(msg string) *Error { return &Error{Kind: KindPreconditionFailed, Message: msg} }
func InvalidContent(msg string) *Error     { return &Error{Kind: KindInvalidContent, Message: msg} }
func Conflict(msg string) *Error           { return &Error{Kind: KindConflict, Message: msg} }

// As 提取业务错误，非业务错误返回 nil
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind Kind) bool {
	e := As(err)
	return e != nil && e.Kind == kind
}

// HTTPStatus 错误分类到 HTTP 状态码的映射。
// 注意参与者/权限错误按前端约定返回 401 而非 403。
func HTTPStatus(err error) int {
	e := As(err)
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusUnauthorized
	case KindExpired:
		return http.StatusGone
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState, KindPreconditionFailed, KindInvalidContent:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
