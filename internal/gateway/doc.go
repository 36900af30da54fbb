// Package gateway はクライアントからのリクエストをサービス名で振り分けるゲートウェイを実装する。
//
// パスの先頭セグメントをサービス名として扱い、サービスレジストリ（優先）と静的な
// シードテーブル（フォールバック）からインスタンスを解決する。インスタンスはリクエストごとに
// 一様ランダムに選択し、リクエストのメソッド、ヘッダー、ボディをそのまま転送する。
// 上流の応答はステータス、ヘッダー、ボディを解釈せずにそのまま中継する。
//
// 上流呼び出しにはタイムアウトを設け、タイムアウトは503、接続失敗は502として返す。
// 自動リトライは行わない。
package gateway
