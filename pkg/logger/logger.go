// Package logger 提供结构化日志功能
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"campaign-ai-api/pkg/tracer"
)

// ContextKey 用于从 context 中提取值的键类型
type ContextKey string

// 预定义的 context 键
const (
	TraceIDKey      ContextKey = "trace_id"
	SpanIDKey       ContextKey = "span_id"
	RequestIDKey    ContextKey = "request_id"
	ContextIDKey    ContextKey = "context_id"
	AnalysisIDKey   ContextKey = "analysis_id"
	SuggestionIDKey ContextKey = "suggestion_id"
)

// businessFields 按固定顺序输出，保证日志字段稳定
var businessFields = []ContextKey{
	RequestIDKey,
	ContextIDKey,
	AnalysisIDKey,
	SuggestionIDKey,
}

var defaultLogger *slog.Logger

// Init 初始化全局日志器，输出到 stdout
func Init(level string, format string) {
	defaultLogger = New(os.Stdout, level, format)
	slog.SetDefault(defaultLogger)
}

// New 创建日志器；format 为 json 时输出 JSON，否则为文本
func New(w io.Writer, level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default 返回默认日志器
func Default() *slog.Logger {
	if defaultLogger == nil {
		Init("info", "json")
	}
	return defaultLogger
}

// FromContext 返回带追踪与业务标识的 Logger。
// trace/span ID 优先取 context 中显式写入的值，其次取当前活动 span。
func FromContext(ctx context.Context) *slog.Logger {
	l := Default()
	if ctx == nil {
		return l
	}

	traceID, spanID := ctx.Value(TraceIDKey), ctx.Value(SpanIDKey)
	if traceID == nil {
		if tid, sid := tracer.IDs(ctx); tid != "" {
			traceID, spanID = tid, sid
		}
	}
	if traceID != nil {
		l = l.With(string(TraceIDKey), traceID)
	}
	if spanID != nil {
		l = l.With(string(SpanIDKey), spanID)
	}

	for _, key := range businessFields {
		if v := ctx.Value(key); v != nil {
			l = l.With(string(key), v)
		}
	}
	return l
}

// WithContext 将日志上下文信息注入到 context
func WithContext(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

// Info 记录 INFO 级别日志
func Info(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

// Debug 记录 DEBUG 级别日志
func Debug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

// Warn 记录 WARN 级别日志
func Warn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

// Error 记录 ERROR 级别日志
func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	FromContext(ctx).Error(msg, args...)
}

// Fatal 记录错误后退出进程
func Fatal(ctx context.Context, msg string, err error, args ...any) {
	Error(ctx, msg, err, args...)
	os.Exit(1)
}
