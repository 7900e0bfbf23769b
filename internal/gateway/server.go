package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Server は認証ゲートを通す公開ポートと、管理ポートの2つのHTTPサーバー。
type Server struct {
	// router は公開ポートのGinルーター。全リクエストが認証ゲートを通る。
	router *gin.Engine
	// admin はヘルスチェックとメトリクスを返す管理ポートのGinルーター。
	admin *gin.Engine
	// logger は構造化ログの出力先。
	logger *zap.Logger
	// cfg はリッスンアドレスと停止時の設定。
	cfg config.ServerConfig

	mu          sync.Mutex
	httpServer  *http.Server
	adminServer *http.Server
	addr        net.Addr
	adminAddr   net.Addr
}

// NewServer は新しいGatewayサーバーを生成する。
// gateはすべての公開ポートのリクエストに適用され、通過したリクエストはupstreamに転送される。
func NewServer(cfg *config.Config, gate middleware.GateConfig, registry *prometheus.Registry, logger *zap.Logger) (*Server, error) {
	upstream, err := url.Parse(cfg.Upstream.URL)
	if err != nil {
		return nil, fmt.Errorf("転送先URLのパースに失敗: %w", err)
	}

	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLog(logger))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowCredentials: cfg.CORS.AllowCredentials(),
	}))
	// 認証ゲートより後ろのハンドラはすべて認証済みリクエストだけを受け取る
	router.Use(middleware.AuthGate(gate))
	router.NoRoute(newUpstreamProxy(upstream, logger))

	admin := gin.New()
	admin.Use(middleware.Recovery(logger))
	admin.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
	admin.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return &Server{
		router: router,
		admin:  admin,
		logger: logger,
		cfg:    cfg.Server,
	}, nil
}

// Handler は公開ポートのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// AdminHandler は管理ポートのHTTPハンドラを返す。
func (s *Server) AdminHandler() http.Handler {
	return s.admin
}

// Start は両方のポートでリッスンを開始する。リッスンに失敗した場合はエラーを返す。
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("公開ポートのリッスンに失敗: %w", err)
	}
	adminLn, err := net.Listen("tcp", s.cfg.AdminAddress)
	if err != nil {
		ln.Close()
		return fmt.Errorf("管理ポートのリッスンに失敗: %w", err)
	}

	s.mu.Lock()
	s.httpServer = &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	s.adminServer = &http.Server{Handler: s.admin, ReadHeaderTimeout: 10 * time.Second}
	s.addr = ln.Addr()
	s.adminAddr = adminLn.Addr()
	s.mu.Unlock()

	s.logger.Info("Gatewayサービスを起動します",
		zap.Stringer("address", ln.Addr()),
		zap.Stringer("admin_address", adminLn.Addr()),
	)
	go s.serve(s.httpServer, ln)
	go s.serve(s.adminServer, adminLn)
	return nil
}

// serve はsrvがlnで受け付けを終えるまでブロックする。
func (s *Server) serve(srv *http.Server, ln net.Listener) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTPサーバーが異常終了", zap.Stringer("address", ln.Addr()), zap.Error(err))
	}
}

// Shutdown は処理中のリクエストを待ってから両方のサーバーを停止する。
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer, adminServer := s.httpServer, s.adminServer
	s.mu.Unlock()

	if httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Gatewayサービスを停止します")
	return multierr.Combine(
		httpServer.Shutdown(ctx),
		adminServer.Shutdown(ctx),
	)
}

// Addr は公開ポートの実際のリッスンアドレスを返す。Start前はnil。
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// AdminAddr は管理ポートの実際のリッスンアドレスを返す。Start前はnil。
func (s *Server) AdminAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adminAddr
}

// newUpstreamProxy は認証済みリクエストを転送先にそのまま中継するハンドラを返す。
func newUpstreamProxy(upstream *url.URL, logger *zap.Logger) gin.HandlerFunc {
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("プロキシエラー",
			zap.String("upstream", upstream.String()),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"内部サービスとの通信に失敗しました"}`))
	}

	return func(c *gin.Context) {
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}
