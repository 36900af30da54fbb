package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Load は.envファイルを読み込み、未設定の環境変数として反映する。
// ファイルが存在しない場合はエラーにしない。既に設定済みの環境変数は上書きしない。
func Load(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
	}
	return nil
}

// GetEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func GetEnvOr(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

// DurationOr は環境変数を time.Duration として解釈する。
// 値は "5s" や "250ms" のような time.ParseDuration 形式で指定する。
func DurationOr(key string, defaultValue time.Duration) (time.Duration, error) {
	v := GetEnvOr(key, "")
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s の値が不正です（%q）: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s は正の値で指定してください（%q）", key, v)
	}
	return d, nil
}

// IntOr は環境変数を整数として解釈する。
func IntOr(key string, defaultValue int) (int, error) {
	v := GetEnvOr(key, "")
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s の値が不正です（%q）: %w", key, v, err)
	}
	return n, nil
}

// FloatOr は環境変数を浮動小数点数として解釈する。
func FloatOr(key string, defaultValue float64) (float64, error) {
	v := GetEnvOr(key, "")
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s の値が不正です（%q）: %w", key, v, err)
	}
	return f, nil
}

// BoolOr は環境変数を真偽値として解釈する。
func BoolOr(key string, defaultValue bool) (bool, error) {
	v := GetEnvOr(key, "")
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s の値が不正です（%q）: %w", key, v, err)
	}
	return b, nil
}

// ListOr はカンマ区切りの環境変数を文字列スライスとして返す。空要素は除外する。
func ListOr(key string, defaultValue []string) []string {
	v := GetEnvOr(key, "")
	if v == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
