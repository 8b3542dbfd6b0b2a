package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New 建立模組共用的 zerolog logger
// 輸出 JSON 到 stdout，收 log 的管線在外部，這裡不管
func New(service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := zerolog.InfoLevel
	if lv, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lv != zerolog.NoLevel {
		level = lv
	}

	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
