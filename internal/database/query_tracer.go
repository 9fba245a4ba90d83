package database

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// QueryTracerConfig configures slow-query logging.
type QueryTracerConfig struct {
	// SlowQueryThreshold is the duration above which queries are logged at
	// WARN level.
	SlowQueryThreshold time.Duration

	// VerySlowQueryThreshold is the duration above which queries are logged
	// at ERROR level.
	VerySlowQueryThreshold time.Duration
}

// DefaultQueryTracerConfig returns the default thresholds.
func DefaultQueryTracerConfig() *QueryTracerConfig {
	return &QueryTracerConfig{
		SlowQueryThreshold:     100 * time.Millisecond,
		VerySlowQueryThreshold: 500 * time.Millisecond,
	}
}

// QueryStats tracks cumulative query statistics.
type QueryStats struct {
	TotalQueries  int64
	SlowQueries   int64
	FailedQueries int64

	mu              sync.RWMutex
	totalDuration   time.Duration
	slowestQuery    string
	slowestDuration time.Duration
}

// Snapshot returns the current counters and average duration.
func (qs *QueryStats) Snapshot() (total, slow, failed int64, avgDuration time.Duration) {
	total = atomic.LoadInt64(&qs.TotalQueries)
	slow = atomic.LoadInt64(&qs.SlowQueries)
	failed = atomic.LoadInt64(&qs.FailedQueries)
	if total > 0 {
		qs.mu.RLock()
		avgDuration = qs.totalDuration / time.Duration(total)
		qs.mu.RUnlock()
	}
	return
}

// SlowestQuery returns the slowest query seen and its duration.
func (qs *QueryStats) SlowestQuery() (query string, duration time.Duration) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	return qs.slowestQuery, qs.slowestDuration
}

// QueryTracer implements pgx.QueryTracer, logging slow and failed queries.
type QueryTracer struct {
	config *QueryTracerConfig
	logger *zap.Logger
	stats  *QueryStats
}

// NewQueryTracer creates a tracer; a nil config uses the defaults.
func NewQueryTracer(cfg *QueryTracerConfig, logger *zap.Logger) *QueryTracer {
	if cfg == nil {
		cfg = DefaultQueryTracerConfig()
	}
	return &QueryTracer{
		config: cfg,
		logger: logger.Named("query"),
		stats:  &QueryStats{},
	}
}

// Stats returns the query statistics.
func (qt *QueryTracer) Stats() *QueryStats {
	return qt.stats
}

type queryTraceData struct {
	startTime time.Time
	sql       string
}

type traceCtxKey struct{}

// TraceQueryStart implements pgx.QueryTracer.
func (qt *QueryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceCtxKey{}, &queryTraceData{
		startTime: time.Now(),
		sql:       data.SQL,
	})
}

// TraceQueryEnd implements pgx.QueryTracer.
func (qt *QueryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	traceData, ok := ctx.Value(traceCtxKey{}).(*queryTraceData)
	if !ok {
		return
	}

	duration := time.Since(traceData.startTime)
	atomic.AddInt64(&qt.stats.TotalQueries, 1)

	qt.stats.mu.Lock()
	qt.stats.totalDuration += duration
	if duration > qt.stats.slowestDuration {
		qt.stats.slowestDuration = duration
		qt.stats.slowestQuery = truncateSQL(traceData.sql, 200)
	}
	qt.stats.mu.Unlock()

	if data.Err != nil {
		atomic.AddInt64(&qt.stats.FailedQueries, 1)
		qt.logger.Error("query failed",
			zap.String("sql", truncateSQL(traceData.sql, 500)),
			zap.Duration("duration", duration),
			zap.Error(data.Err),
		)
		return
	}

	switch {
	case duration >= qt.config.VerySlowQueryThreshold:
		atomic.AddInt64(&qt.stats.SlowQueries, 1)
		qt.logger.Error("very slow query",
			zap.String("sql", truncateSQL(traceData.sql, 500)),
			zap.Duration("duration", duration),
			zap.String("command_tag", data.CommandTag.String()),
		)
	case duration >= qt.config.SlowQueryThreshold:
		atomic.AddInt64(&qt.stats.SlowQueries, 1)
		qt.logger.Warn("slow query",
			zap.String("sql", truncateSQL(traceData.sql, 500)),
			zap.Duration("duration", duration),
			zap.String("command_tag", data.CommandTag.String()),
		)
	}
}

func truncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen {
		return sql
	}
	return sql[:maxLen-3] + "..."
}
