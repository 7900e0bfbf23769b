// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// ゲートウェイが外部のIDサービス（トークンイントロスペクション）を呼び出す際に使用する。
// ベースURLとタイムアウトを起動時に固定し、JSONリクエストの送受信と
// 2xx以外のステータスのエラー化を統一する。
package httpclient
