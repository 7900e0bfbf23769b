// Package middleware はゲートウェイで使用するGinミドルウェアを提供する。
//
// 中心となるのはAuthGateで、公開ルートの判定、Bearerトークンの取り出し、
// 外部IDサービスへのイントロスペクション、401レスポンスの生成を行う。
// そのほかリクエストID、アクセスログ、パニックリカバリ、CORSを含む。
package middleware
