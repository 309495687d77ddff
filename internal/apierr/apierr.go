// Package apierr defines the single error shape returned by every API call.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by where the request failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindClient
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// StatusNetwork is the status code of a request that never reached the server.
const StatusNetwork = 0

// User-facing messages.
const (
	MsgNotFound     = "リクエストされたリソースが見つかりませんでした"
	MsgUnauthorized = "認証が必要です"
	MsgForbidden    = "このリソースへのアクセス権限がありません"
	MsgValidation   = "入力内容に誤りがあります"
	MsgServer       = "サーバーエラーが発生しました。時間をおいて再度お試しください"
	MsgNetwork      = "ネットワークエラーが発生しました。接続を確認してください"
	MsgFallback     = "予期しないエラーが発生しました"
)

// Classify maps an HTTP status code to a Kind.
func Classify(status int) Kind {
	switch {
	case status == StatusNetwork:
		return KindNetwork
	case status == 400 || status == 422:
		return KindValidation
	case status == 401:
		return KindUnauthorized
	case status == 403:
		return KindForbidden
	case status == 404:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindClient
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

func IsClientError(status int) bool     { return status >= 400 && status < 500 }
func IsServerError(status int) bool     { return status >= 500 }
func IsNotFound(status int) bool        { return status == 404 }
func IsUnauthorized(status int) bool    { return status == 401 }
func IsForbidden(status int) bool       { return status == 403 }
func IsValidationError(status int) bool { return status == 400 || status == 422 }

// Error is a failed API call. StatusCode is StatusNetwork when the transport
// failed before any response arrived.
type Error struct {
	Message    string
	StatusCode int
	Endpoint   string
	Method     string
	Details    any
}

// New builds an Error.
func New(message string, status int, endpoint, method string, details any) *Error {
	return &Error{
		Message:    message,
		StatusCode: status,
		Endpoint:   endpoint,
		Method:     method,
		Details:    details,
	}
}

func (e *Error) Error() string {
	if e.StatusCode == StatusNetwork {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap exposes the underlying cause when Details holds an error.
func (e *Error) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

func (e *Error) Kind() Kind              { return Classify(e.StatusCode) }
func (e *Error) IsNetwork() bool         { return e.StatusCode == StatusNetwork }
func (e *Error) IsClientError() bool     { return IsClientError(e.StatusCode) }
func (e *Error) IsServerError() bool     { return IsServerError(e.StatusCode) }
func (e *Error) IsNotFound() bool        { return IsNotFound(e.StatusCode) }
func (e *Error) IsUnauthorized() bool    { return IsUnauthorized(e.StatusCode) }
func (e *Error) IsForbidden() bool       { return IsForbidden(e.StatusCode) }
func (e *Error) IsValidationError() bool { return IsValidationError(e.StatusCode) }

// UserMessage returns the message to show to a person.
func (e *Error) UserMessage() string {
	switch {
	case e.IsNotFound():
		return MsgNotFound
	case e.IsUnauthorized():
		return MsgUnauthorized
	case e.IsForbidden():
		return MsgForbidden
	case e.IsValidationError():
		return MsgValidation
	case e.IsServerError():
		return MsgServer
	}
	if e.Message != "" {
		return e.Message
	}
	return MsgFallback
}

// As reports whether err is or wraps an *Error.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// UserMessage returns a user-facing message for any error.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := As(err); ok {
		return apiErr.UserMessage()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgFallback
}
