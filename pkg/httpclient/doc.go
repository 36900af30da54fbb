// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// 認証局へのトークン検証、サービスレジストリへの登録と検索など、
// サービス間の通信パターンを統一する。全ての呼び出しにはタイムアウトが設定され、
// 到達不能とHTTPエラー応答を呼び出し側が区別できるようにエラーを分類する。
package httpclient
