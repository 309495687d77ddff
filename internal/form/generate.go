package form

import (
	"github.com/user/kiji/internal/apierr"
)

const (
	MsgGenerateRateLimit = "AI生成の利用上限に達しました。しばらく待ってから再度お試しください"
	MsgGenerateTimeout   = "AI生成がタイムアウトしました。もう一度お試しください"
	MsgGenerateAuth      = "AIサービスの認証に失敗しました。APIキーを確認してください"
	MsgGenerateBlocked   = "このURLのコンテンツは安全性の理由で処理できません"
	MsgGenerateFallback  = "AI生成中にエラーが発生しました"
)

// GenerateErrorMessage maps a generation failure to the message shown next
// to the URL field.
func GenerateErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := apierr.As(err); ok {
		switch {
		case e.StatusCode == 429:
			return MsgGenerateRateLimit
		case e.StatusCode == 504:
			return MsgGenerateTimeout
		case e.IsUnauthorized():
			return MsgGenerateAuth
		case e.IsForbidden():
			return MsgGenerateBlocked
		case e.IsNetwork() && e.Message == "":
			return apierr.MsgNetwork
		}
		if e.Message != "" {
			return e.Message
		}
		return MsgGenerateFallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgGenerateFallback
}
