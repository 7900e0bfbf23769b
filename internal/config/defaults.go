package config

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
)

// DefaultPublicRoutes は認証不要の公開ルートの初期値。
var DefaultPublicRoutes = []string{
	"/market_auth/auth/.*",
	"/market_trade/post/.*",
	"/market_notification/notification/.*",
}

const (
	defaultAddress              = ":8888"
	defaultAdminAddress         = ":9091"
	defaultShutdownTimeout      = 10 * time.Second
	defaultIntrospectionBaseURL = "http://localhost:9090/market_auth"
	defaultIntrospectionTimeout = 5 * time.Second
	defaultUpstreamURL          = "http://localhost:8080"
	defaultFrontendURL          = "http://localhost:3000"
	defaultLogLevel             = "info"
)

// applyDefaults は未設定の項目に初期値を設定する。
func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.AdminAddress == "" {
		cfg.Server.AdminAddress = defaultAdminAddress
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Auth.PublicRoutes == nil {
		cfg.Auth.PublicRoutes = append([]string(nil), DefaultPublicRoutes...)
	}
	if cfg.Auth.Introspection.BaseURL == "" {
		cfg.Auth.Introspection.BaseURL = defaultIntrospectionBaseURL
	}
	if cfg.Auth.Introspection.Timeout == 0 {
		cfg.Auth.Introspection.Timeout = defaultIntrospectionTimeout
	}
	if cfg.Upstream.URL == "" {
		cfg.Upstream.URL = defaultUpstreamURL
	}
	if cfg.CORS.AllowedOrigins == nil {
		cfg.CORS.AllowedOrigins = []string{defaultFrontendURL}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
}

// applyEnvOverrides は環境変数で設定を上書きする。環境変数が常に優先される。
// 解釈できない値があった場合はその項目を上書きせず、エラーとして返す。
func applyEnvOverrides(cfg *Config) error {
	var err error
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}
	cfg.Server.AdminAddress = getEnvOr("ADMIN_ADDRESS", cfg.Server.AdminAddress)
	cfg.Auth.Introspection.BaseURL = getEnvOr("INTROSPECT_BASE_URL", cfg.Auth.Introspection.BaseURL)
	if v := os.Getenv("INTROSPECT_TIMEOUT"); v != "" {
		d, parseErr := time.ParseDuration(v)
		if parseErr != nil {
			err = multierr.Append(err, fmt.Errorf("INTROSPECT_TIMEOUT: 時間の形式が不正: %q: %w", v, parseErr))
		} else {
			cfg.Auth.Introspection.Timeout = d
		}
	}
	if v := os.Getenv("PUBLIC_ROUTES"); v != "" {
		cfg.Auth.PublicRoutes = splitList(v)
	}
	cfg.Upstream.URL = getEnvOr("UPSTREAM_URL", cfg.Upstream.URL)
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}
	cfg.Log.Level = getEnvOr("LOG_LEVEL", cfg.Log.Level)
	return err
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
