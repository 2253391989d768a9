package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

type requestIDKey struct{}

// WithRequestID stores the request id so SQL logs can be correlated with the
// access log line of the same request.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

func RequestIDFrom(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}

// GormLevel maps the config string onto gorm's log levels.
func GormLevel(s string) gormlogger.LogLevel {
	switch s {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

type Gorm struct {
	l             *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewGorm(l *zap.Logger, level gormlogger.LogLevel, slow time.Duration) *Gorm {
	if l == nil {
		l = zap.NewNop()
	}
	return &Gorm{l: l.Named("gorm"), level: level, slowThreshold: slow}
}

func (g *Gorm) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *Gorm) with(ctx context.Context) *zap.Logger {
	if rid := RequestIDFrom(ctx); rid != "" {
		return g.l.With(zap.String("rid", rid))
	}
	return g.l
}

func (g *Gorm) Info(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.with(ctx).Info(fmt.Sprintf(msg, args...))
	}
}

func (g *Gorm) Warn(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.with(ctx).Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *Gorm) Error(ctx context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.with(ctx).Error(fmt.Sprintf(msg, args...))
	}
}

func (g *Gorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		sql, rows := fc()
		g.with(ctx).Error("sql failed", zap.String("sql", sql), zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed), zap.Error(err))
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.with(ctx).Warn("slow sql", zap.String("sql", sql), zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed))
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.with(ctx).Info("sql", zap.String("sql", sql), zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed))
	}
}
