// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base zerolog.Logger

func init() {
	// 默认输出到 stderr，Init 之前也能安全使用
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Init 初始化全局日志器，附带服务名字段。
// 所有后台任务与请求处理共用同一个底层 Logger。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base = zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回一个绑定了追踪上下文的子日志器。
// 若 ctx 中存在有效 Span，则自动附加 trace_id 字段，便于日志与链路关联。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l := base.With().Str("trace_id", sc.TraceID().String()).Logger()
		return &l
	}
	return &base
}
