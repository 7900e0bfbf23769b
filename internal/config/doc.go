// Package config はゲートウェイの起動時設定を提供する。
//
// YAMLファイル（任意）を読み込み、初期値と環境変数による上書きを適用してから
// 検証する。読み込んだ設定は各コンポーネントのコンストラクタに明示的に渡し、
// 実行中に変更しない。
package config
