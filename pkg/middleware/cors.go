package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// defaultAllowHeaders はプリフライトでリクエストヘッダーが指定されなかった場合に返す値。
const defaultAllowHeaders = "Authorization, Content-Type"

// CORSConfig はCORSミドルウェアの設定。
type CORSConfig struct {
	// AllowedOrigins はクロスオリジンアクセスを許可するオリジン。
	AllowedOrigins []string
	// AllowCredentials はCookie等の資格情報の送信を許可するかどうか。
	AllowCredentials bool
}

// CORS は指定されたオリジンからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// 許可されたオリジンからのプリフライトはここで204を返して打ち切るため、認証ゲートより前に登録する。
func CORS(cfg CORSConfig) gin.HandlerFunc {
	originsSet := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		originsSet[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		_, allowed := originsSet[origin]
		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			allowHeaders := c.GetHeader("Access-Control-Request-Headers")
			if allowHeaders == "" {
				allowHeaders = defaultAllowHeaders
			}
			c.Header("Access-Control-Allow-Headers", allowHeaders)
			c.Header("Access-Control-Expose-Headers", HeaderRequestID)
			c.Header("Access-Control-Max-Age", "86400")
			if cfg.AllowCredentials {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		// 許可されたオリジンからのプリフライトだけをここで終える。
		// それ以外のOPTIONSは通常のリクエストとして後続に渡す。
		if allowed && isPreflight(c.Request) {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isPreflight はrがCORSのプリフライトリクエストかどうかを返す。
func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions &&
		r.Header.Get("Origin") != "" &&
		r.Header.Get("Access-Control-Request-Method") != ""
}
