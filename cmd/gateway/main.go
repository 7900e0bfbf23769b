// API Gatewayサービスのエントリポイント。
// 全リクエストを認証ゲートに通し、公開ルートかIDサービスで検証済みの
// リクエストだけを内部サービスに転送する。外部からアクセス可能な唯一の
// サービスであり、セキュリティの境界線となる。
package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/authgate/internal/config"
	"github.com/nao1215/authgate/internal/gateway"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)

	fx.New(
		fx.Supply(cfg),
		gateway.Module,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
	).Run()
}
