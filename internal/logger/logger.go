package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config 控制日志级别与输出格式。
type Config struct {
	Level  string
	Format string // json 或 console
}

// Setup 初始化全局 zerolog logger 并返回它。
func Setup(cfg Config) zerolog.Logger {
	return setup(cfg, os.Stdout)
}

func setup(cfg Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	writer := out
	if strings.EqualFold(cfg.Format, "console") || strings.EqualFold(cfg.Format, "pretty") {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(writer).With().Timestamp().Logger()
	log.Logger = l
	return l
}

// Component 返回带 component 字段的子 logger。
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
