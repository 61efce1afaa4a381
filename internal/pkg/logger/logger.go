// internal/pkg/logger/logger.go
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init 初始化全局 zerolog Logger。
// service 会作为固定字段附加到每条日志上，方便在聚合日志里按服务过滤。
func Init(service string) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && lv != zerolog.NoLevel {
		level = lv
	}
	zerolog.SetGlobalLevel(level)

	var out = zerolog.New(os.Stdout)
	// 本地开发时输出更友好的控制台格式
	if os.Getenv("LOG_PRETTY") == "true" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	log.Logger = out.With().Timestamp().Str("service", service).Logger()
}

// With 返回一个附加了额外字段的子 Logger。
func With(key, value string) zerolog.Logger {
	return log.With().Str(key, value).Logger()
}
