// Package introspect は外部IDサービスによるトークン検証（イントロスペクション）を提供する。
//
// ゲートウェイはトークンの形式や署名を一切解釈せず、有効性の判断を
// すべてこのパッケージ経由でIDサービスに委ねる。
package introspect
