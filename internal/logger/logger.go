package logger

import (
	"log/slog"
	"os"
)

// New 返回带 service 字段的 JSON 结构化日志器。
// 主要用于提交后小票同步等后台动作的结果记录。
func New(service string) *slog.Logger {
	hostname, _ := os.Hostname()
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return slog.New(h).With(
		slog.String("service", service),
		slog.String("hostname", hostname),
	)
}
