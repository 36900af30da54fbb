package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword はパスワードをbcryptでハッシュ化する。
func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}
	return string(hash), nil
}

// checkPassword はパスワードがハッシュと一致するかを返す。
// ハッシュの形式が不正な場合もfalseを返す。
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
