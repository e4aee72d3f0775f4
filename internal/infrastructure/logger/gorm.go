package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const defaultSlowSQL = 200 * time.Millisecond

// GormLogger routes GORM output through zap. Statements are tagged with the
// request, task, RPC method and trace that issued them, so a failed sync_results
// insert can be matched to the batch that caused it.
type GormLogger struct {
	base           *zap.Logger
	level          gormlogger.LogLevel
	slowSQL        time.Duration
	ignoreNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement reporting.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) {
		l.slowSQL = threshold
	}
}

// NewGormLogger creates a GORM logger writing to a "gorm" child of base
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		base:           base.Named("gorm"),
		level:          level,
		slowSQL:        defaultSlowSQL,
		ignoreNotFound: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode returns a copy at the given level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

// Trace logs one executed statement. Errors win over slowness; plain
// statements are only logged at gormlogger.Info and go out at debug.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	lvl, msg, ok := l.classify(elapsed, err)
	if !ok {
		return
	}

	log := l.forContext(ctx)
	ce := log.Check(lvl, msg)
	if ce == nil {
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	} else if lvl == zapcore.WarnLevel {
		fields = append(fields, zap.Duration("slow_threshold", l.slowSQL))
	}
	ce.Write(fields...)
}

// classify picks the zap level and message for a statement, or reports
// that the statement should not be logged at the configured level.
func (l *GormLogger) classify(elapsed time.Duration, err error) (zapcore.Level, string, bool) {
	switch {
	case err != nil:
		if l.level < gormlogger.Error || (l.ignoreNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)) {
			return 0, "", false
		}
		return zapcore.ErrorLevel, "SQL Error", true
	case l.slowSQL > 0 && elapsed > l.slowSQL:
		if l.level < gormlogger.Warn {
			return 0, "", false
		}
		return zapcore.WarnLevel, "SLOW SQL", true
	case l.level >= gormlogger.Info:
		return zapcore.DebugLevel, "SQL Query", true
	default:
		return 0, "", false
	}
}

func (l *GormLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < min {
		return
	}
	if ce := l.forContext(ctx).Check(lvl, fmt.Sprintf(msg, data...)); ce != nil {
		ce.Write()
	}
}

// forContext adds trace, request and task ids plus the RPC method from ctx
func (l *GormLogger) forContext(ctx context.Context) *zap.Logger {
	log := WithLogger(ctx, l.base).Zap()
	if method := GetRPCMethod(ctx); method != "" {
		log = log.With(zap.String("rpc_method", method))
	}
	return log
}

// MapGormLogLevel maps an application log level to a GORM level.
// "silent" turns GORM logging off; unknown levels map to Warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "silent" {
		return gormlogger.Silent
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return gormlogger.Warn
	}
	switch {
	case lvl <= zapcore.InfoLevel:
		return gormlogger.Info
	case lvl == zapcore.WarnLevel:
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}
