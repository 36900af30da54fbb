// Package music は楽曲サービスの内部実装を提供する。
//
// すべてのエンドポイントは認証局でトークンを検証してから処理する。
// 楽曲はアップロードしたユーザーだけが一覧、再生できる。
// 他人の楽曲と存在しない楽曲は区別せず、どちらも404を返す。
package music
