// Package token はセッショントークン（HS256署名のJWT）の発行と検証を行う。
//
// トークンは発行時刻から一定時間（デフォルト1時間）有効で、期限を過ぎると失効する。
// 失効したトークンが再び有効になることはない。検証失敗は ErrMissing / ErrExpired /
// ErrInvalid のいずれかに分類され、呼び出し側がクライアントへの応答を区別できる。
package token
