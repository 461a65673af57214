package server

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// =============================================================================
// 1. Logging Middleware (结构化日志)
// =============================================================================

// LoggingMiddleware 记录每个请求的方法、路径、状态码和耗时
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logRequest(r, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}

// logRequest 统一的日志打印逻辑
func logRequest(r *http.Request, status, bytes int, duration time.Duration) {
	// 没有显式 WriteHeader 的响应默认就是 200
	if status == 0 {
		status = http.StatusOK
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		// NotFound 这种业务错误算 Warn
		level = slog.LevelWarn
	}

	slog.Log(r.Context(), level, "HTTP Request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("dur", duration),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// =============================================================================
// 2. Recovery Middleware (防弹衣)
// =============================================================================

// RecoveryMiddleware 捕获 handler 中的 panic，返回 500 而不是断开连接
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					// 客户端断开，交给 net/http 处理
					panic(p)
				}
				recoverFromPanic(r.Context(), p)
				http.Error(w, "internal server error: panic recovered", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func recoverFromPanic(ctx context.Context, p any) {
	// 打印堆栈信息，方便调试
	slog.ErrorContext(ctx, "🔥 PANIC RECOVERED",
		slog.Any("panic", p),
		slog.String("stack", string(debug.Stack())),
	)
}
