package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath は設定ファイルのパスを指定する環境変数。
const EnvConfigPath = "GATEWAY_CONFIG"

// Config はゲートウェイ全体の設定。起動時に一度だけ読み込み、以後変更しない。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Upstream UpstreamConfig `yaml:"upstream"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig はリッスンアドレスと停止時の設定。
type ServerConfig struct {
	// Address は認証ゲートを通す公開ポートのアドレス。
	Address string `yaml:"address"`
	// AdminAddress はヘルスチェックとメトリクスを公開する管理ポートのアドレス。
	AdminAddress string `yaml:"admin_address"`
	// ShutdownTimeout はグレースフルシャットダウンの上限時間。
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig は認証ゲートの設定。
type AuthConfig struct {
	// PublicRoutes は認証不要のパス（パス全体に一致する正規表現）。
	PublicRoutes []string `yaml:"public_routes"`
	// Introspection はIDサービスへの接続設定。
	Introspection IntrospectionConfig `yaml:"introspection"`
}

// IntrospectionConfig はIDサービスへの接続設定。
type IntrospectionConfig struct {
	// BaseURL はIDサービスのベースURL。/auth/introspect が連結される。
	BaseURL string `yaml:"base_url"`
	// Timeout はイントロスペクション1回あたりの上限時間。
	Timeout time.Duration `yaml:"timeout"`
}

// UpstreamConfig は認証済みリクエストの転送先。
type UpstreamConfig struct {
	URL string `yaml:"url"`
}

// CORSConfig はCORSの設定。
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	// Credentials は未設定の場合trueとして扱う。
	Credentials *bool `yaml:"allow_credentials"`
}

// LogConfig はログ出力の設定。
type LogConfig struct {
	// Level は "debug", "info", "warn", "error" のいずれか。
	Level string `yaml:"level"`
	// Development がtrueの場合は人が読みやすいコンソール形式で出力する。
	Development bool `yaml:"development"`
}

// Load はpathのYAMLファイルから設定を読み込む。
// pathが空の場合はファイルを読まない。デフォルト値、環境変数の順に適用してから検証する。
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルのパースに失敗: %q: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	envErr := applyEnvOverrides(&cfg)

	if err := multierr.Append(envErr, Validate(&cfg)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv はGATEWAY_CONFIGが指すファイルから設定を読み込む。
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

// AllowCredentials はCORSで資格情報を許可するかどうかを返す。
func (c CORSConfig) AllowCredentials() bool {
	return c.Credentials == nil || *c.Credentials
}

// Validate は設定を検証し、見つかったすべての問題をまとめて返す。
func Validate(cfg *Config) error {
	var err error

	if cfg.Server.Address == "" {
		err = multierr.Append(err, errors.New("server.address: 必須です"))
	}
	if cfg.Server.AdminAddress == "" {
		err = multierr.Append(err, errors.New("server.admin_address: 必須です"))
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		err = multierr.Append(err, errors.New("server.shutdown_timeout: 正の値が必要です"))
	}
	if cfg.Auth.Introspection.Timeout <= 0 {
		err = multierr.Append(err, errors.New("auth.introspection.timeout: 正の値が必要です"))
	}
	err = multierr.Append(err, validateHTTPURL("auth.introspection.base_url", cfg.Auth.Introspection.BaseURL))
	err = multierr.Append(err, validateHTTPURL("upstream.url", cfg.Upstream.URL))

	for i, p := range cfg.Auth.PublicRoutes {
		if _, compileErr := regexp.Compile(p); compileErr != nil {
			err = multierr.Append(err, fmt.Errorf("auth.public_routes[%d]: 正規表現が不正: %w", i, compileErr))
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log.level: 不明なレベル %q", cfg.Log.Level))
	}

	if err != nil {
		return fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return nil
}

// validateHTTPURL はrawがhttpまたはhttpsの絶対URLであることを検証する。
func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s: 必須です", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: URLが不正: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s: http(s)の絶対URLが必要です: %q", field, raw)
	}
	return nil
}

// splitList はカンマ区切りの文字列を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
