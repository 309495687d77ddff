package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{0, KindNetwork},
		{400, KindValidation},
		{422, KindValidation},
		{401, KindUnauthorized},
		{403, KindForbidden},
		{404, KindNotFound},
		{409, KindClient},
		{429, KindClient},
		{500, KindServer},
		{504, KindServer},
		{302, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status))
		})
	}
}

func TestError_Predicates(t *testing.T) {
	e := New("bad", 422, "/api/articles", "POST", nil)

	assert.True(t, e.IsClientError())
	assert.True(t, e.IsValidationError())
	assert.False(t, e.IsServerError())
	assert.False(t, e.IsNotFound())
	assert.False(t, e.IsNetwork())

	e = New("down", 503, "/api/tags", "GET", nil)
	assert.True(t, e.IsServerError())
	assert.False(t, e.IsClientError())

	e = New("refused", StatusNetwork, "/api/tags", "GET", nil)
	assert.True(t, e.IsNetwork())
	assert.False(t, e.IsClientError())
	assert.False(t, e.IsServerError())
}

func TestError_UserMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    string
	}{
		{"not found", 404, "article not found", MsgNotFound},
		{"unauthorized", 401, "x", MsgUnauthorized},
		{"forbidden", 403, "x", MsgForbidden},
		{"bad request", 400, "x", MsgValidation},
		{"unprocessable", 422, "x", MsgValidation},
		{"server", 500, "x", MsgServer},
		{"conflict uses raw message", 409, "tag already exists", "tag already exists"},
		{"network uses raw message", 0, MsgNetwork, MsgNetwork},
		{"empty falls back", 409, "", MsgFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.message, tt.status, "/api/x", "GET", nil)
			assert.Equal(t, tt.want, e.UserMessage())
		})
	}
}

func TestAs_Wrapped(t *testing.T) {
	base := New("gone", 404, "/api/articles/9", "GET", nil)
	wrapped := fmt.Errorf("load article: %w", base)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestError_UnwrapDetails(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	e := New(MsgNetwork, StatusNetwork, "/api/articles", "GET", cause)

	assert.ErrorIs(t, e, cause)
	assert.Contains(t, e.Error(), "GET /api/articles")
}

func TestUserMessage_AnyError(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
	assert.Equal(t, MsgServer, UserMessage(fmt.Errorf("wrap: %w", New("x", 502, "/", "GET", nil))))
}
