// Package auth は認証局（authサービス）の内部実装を提供する。
//
// ユーザー登録とログインでセッショントークンを発行し、auth_token Cookieとして返す。
// 他のサービスは /auth にトークンを送って検証を依頼し、ユーザーIDとユーザー名を受け取る。
// パスワードはbcryptでハッシュ化してSQLiteに保存する。
package auth
