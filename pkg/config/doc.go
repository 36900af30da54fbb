// Package config は環境変数からサービス設定を読み込むための共通ヘルパーを提供する。
//
// 全サービスは環境変数のみで設定され、開発時は .env ファイルからの読み込みもサポートする。
package config
