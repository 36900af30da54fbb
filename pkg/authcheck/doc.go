// Package authcheck は保護されたサービスが受け取ったリクエストの認証ヘッダーを
// 認証局（authサービス）に問い合わせて検証する。
//
// 検証結果はキャッシュしない。保護されたリクエスト1件ごとに認証局へ1回問い合わせる。
// 認証局に到達できない場合は ErrUnavailable を返し、トークン不正とは区別する。
package authcheck
