package gateway

import (
	"fmt"

	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/pkg/httpclient"
	"github.com/nao1215/authgate/pkg/introspect"
	"github.com/nao1215/authgate/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module はGatewayサービスの構成要素をfxに登録する。
// *config.Config は呼び出し側が提供する。
var Module = fx.Module("gateway",
	fx.Provide(
		NewLogger,
		NewRegistry,
		NewIntrospector,
		NewGateConfig,
		NewServer,
		func(reg *prometheus.Registry) *middleware.GateMetrics {
			return middleware.NewGateMetrics(reg)
		},
	),
	fx.Invoke(registerLifecycle),
)

// NewLogger は設定に従ってzapロガーを生成する。
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("ログレベルが不正: %w", err)
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("ロガーの生成に失敗: %w", err)
	}
	return logger.With(zap.String("service", "gateway")), nil
}

// NewRegistry はGatewayのメトリクスを登録するPrometheusレジストリを生成する。
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewIntrospector はIDサービスに接続するIntrospectorを生成する。
// HTTPクライアントはここで一度だけ作り、全リクエストで共有する。
func NewIntrospector(cfg *config.Config) introspect.Introspector {
	hc := httpclient.New(cfg.Auth.Introspection.BaseURL,
		httpclient.WithTimeout(cfg.Auth.Introspection.Timeout),
	)
	return introspect.NewClient(hc)
}

// NewGateConfig は認証ゲートの設定を組み立てる。
func NewGateConfig(cfg *config.Config, in introspect.Introspector, metrics *middleware.GateMetrics, logger *zap.Logger) (middleware.GateConfig, error) {
	matcher, err := middleware.NewRouteMatcher(cfg.Auth.PublicRoutes)
	if err != nil {
		return middleware.GateConfig{}, err
	}
	return middleware.GateConfig{
		Matcher:      matcher,
		Introspector: in,
		Timeout:      cfg.Auth.Introspection.Timeout,
		Logger:       logger.Named("authgate"),
		Metrics:      metrics,
	}, nil
}

// registerLifecycle はサーバーの起動と停止をアプリケーションのライフサイクルに結びつける。
func registerLifecycle(lc fx.Lifecycle, s *Server) {
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Shutdown,
	})
}
