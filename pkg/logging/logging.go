// Package logging は全サービス共通の構造化ロガーを生成する。
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New はサービス名をプレフィックスに持つロガーを生成する。
// wがnilの場合は標準エラー出力に書き込む。
// ログレベルは環境変数 LOG_LEVEL（debug, info, warn, error）で指定し、未指定や不正値の場合はinfoとする。
func New(w io.Writer, service string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          service,
		Level:           levelFromString(os.Getenv("LOG_LEVEL")),
	})
}

// Discard は出力を捨てるロガーを返す。テストやライブラリのデフォルト値として使う。
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func levelFromString(s string) log.Level {
	if s == "" {
		return log.InfoLevel
	}
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
