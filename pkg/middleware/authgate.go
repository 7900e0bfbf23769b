package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/authgate/pkg/introspect"
	"go.uber.org/zap"
)

const (
	// headerAuthorization はBearerトークンを運ぶHTTPヘッダーキー。
	headerAuthorization = "Authorization"
	// bearerPrefix はAuthorizationヘッダー値から取り除く接頭辞。
	bearerPrefix = "Bearer "
	// contentTypeJSON は拒否レスポンスのContent-Type。
	contentTypeJSON = "application/json"
)

const (
	// CodeUnauthenticated は未認証を表すアプリケーションエラーコード。
	CodeUnauthenticated = 44444
	// MessageUnauthenticated は未認証を表すメッセージ。
	MessageUnauthenticated = "UNAUTHENTICATED"
)

// errNoIntrospector はGateConfig.Introspectorが設定されていない場合のエラー。
var errNoIntrospector = errors.New("introspectorが設定されていない")

// DefaultIntrospectionTimeout はGateConfig.Timeoutが0以下の場合に使うタイムアウト。
const DefaultIntrospectionTimeout = 5 * time.Second

// RejectionPayload は未認証時のレスポンスボディ。
type RejectionPayload struct {
	// Code はアプリケーションエラーコード。
	Code int `json:"code"`
	// Message はエラーメッセージ。
	Message string `json:"message"`
}

// GateConfig は認証ゲートの設定。起動時に一度だけ組み立てる。
type GateConfig struct {
	// Matcher は認証不要の公開ルート。nilの場合は公開ルートなし。
	Matcher *RouteMatcher
	// Introspector はトークンの有効性を問い合わせる先。
	// nilの場合は公開ルート以外のすべてのリクエストを拒否する。
	Introspector introspect.Introspector
	// Timeout はイントロスペクション1回あたりの上限時間。
	Timeout time.Duration
	// Logger は診断ログの出力先。nilの場合は出力しない。
	Logger *zap.Logger
	// Metrics は判定結果の記録先。nilの場合は記録しない。
	Metrics *GateMetrics
}

// ExtractToken はAuthorizationヘッダーの値リストからトークンを取り出す。
// 値が1つもない場合はfalseを返す。先頭の値から "Bearer " を取り除き、
// 接頭辞がない場合は値をそのままトークンとして扱う。
func ExtractToken(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	return strings.TrimPrefix(values[0], bearerPrefix), true
}

// AuthGate はすべてのリクエストを下流に渡す前に認証するGinミドルウェアを返す。
//
// 公開ルートはそのまま通す。それ以外はBearerトークンをIDサービスに問い合わせ、
// 有効な場合のみ通す。トークンがない、無効、または問い合わせ自体が失敗した場合は
// 401と固定のJSONボディを返す。判定に迷う場合は必ず拒否する。
func AuthGate(cfg GateConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	matcher := cfg.Matcher
	if matcher == nil {
		matcher = &RouteMatcher{}
	}
	introspector := cfg.Introspector
	if introspector == nil {
		introspector = introspect.IntrospectorFunc(func(context.Context, string) (introspect.Result, error) {
			return introspect.Result{}, errNoIntrospector
		})
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultIntrospectionTimeout
	}

	return func(c *gin.Context) {
		if isPublicPath(matcher, c.Request.URL.Path) {
			cfg.Metrics.observeDecision(outcomePublic)
			c.Next()
			return
		}

		token, ok := ExtractToken(c.Request.Header.Values(headerAuthorization))
		if !ok {
			cfg.Metrics.observeDecision(outcomeNoCredential)
			rejectUnauthenticated(c, logger)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		start := time.Now()
		res, err := introspector.Introspect(ctx, token)
		cancel()
		cfg.Metrics.observeIntrospection(time.Since(start))

		switch {
		case err != nil:
			logger.Error("トークンのイントロスペクションに失敗",
				zap.String("request_id", GetRequestID(c)),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			cfg.Metrics.observeDecision(outcomeIntrospectionError)
			rejectUnauthenticated(c, logger)
		case !res.Valid:
			logger.Debug("無効なトークン",
				zap.String("request_id", GetRequestID(c)),
				zap.String("path", c.Request.URL.Path),
			)
			cfg.Metrics.observeDecision(outcomeInvalid)
			rejectUnauthenticated(c, logger)
		default:
			cfg.Metrics.observeDecision(outcomeVerified)
			c.Next()
		}
	}
}

// isPublicPath はpathが公開ルートかどうかを返す。
// "." や ".." のセグメントを含むパスは転送先で別のパスに解決され得るため、
// パターンに一致しても公開ルートとして扱わない。
func isPublicPath(m *RouteMatcher, p string) bool {
	if hasDotSegment(p) {
		return false
	}
	return m.IsPublic(p)
}

// hasDotSegment はpathに "." または ".." のセグメントが含まれる場合にtrueを返す。
func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// rejectUnauthenticated は401と固定のRejectionPayloadを書き込み、後続の処理を中断する。
func rejectUnauthenticated(c *gin.Context, logger *zap.Logger) {
	body, err := json.Marshal(RejectionPayload{
		Code:    CodeUnauthenticated,
		Message: MessageUnauthenticated,
	})
	if err != nil {
		logger.Error("拒否レスポンスのシリアライズに失敗", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusUnauthorized, contentTypeJSON, body)
	c.Abort()
}
