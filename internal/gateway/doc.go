// Package gateway はAPI Gatewayサービスの内部実装を提供する。
//
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線として
// 機能する。公開ポートへのすべてのリクエストは認証ゲートを通り、公開ルートか
// IDサービスで検証済みのリクエストだけが内部サービスに転送される。
// ヘルスチェックとメトリクスは認証ゲートを通らない管理ポートで公開する。
package gateway
