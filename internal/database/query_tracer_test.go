package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func TestQueryTracerRecordsStats(t *testing.T) {
	qt := NewQueryTracer(nil, zap.NewNop())

	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL: "SELECT 1",
	})
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	total, slow, failed, _ := qt.Stats().Snapshot()
	if total != 1 {
		t.Errorf("expected 1 query, got %d", total)
	}
	if slow != 0 || failed != 0 {
		t.Errorf("expected no slow/failed queries, got slow=%d failed=%d", slow, failed)
	}
}

func TestQueryTracerCountsFailures(t *testing.T) {
	qt := NewQueryTracer(nil, zap.NewNop())

	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL: "INSERT INTO lead_captures VALUES (...)",
	})
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: context.DeadlineExceeded})

	_, _, failed, _ := qt.Stats().Snapshot()
	if failed != 1 {
		t.Errorf("expected 1 failed query, got %d", failed)
	}
}

func TestQueryTracerTracksSlowest(t *testing.T) {
	qt := NewQueryTracer(&QueryTracerConfig{
		SlowQueryThreshold:     time.Nanosecond,
		VerySlowQueryThreshold: time.Hour,
	}, zap.NewNop())

	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL: "SELECT * FROM lead_captures",
	})
	time.Sleep(time.Millisecond)
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	query, duration := qt.Stats().SlowestQuery()
	if query == "" || duration == 0 {
		t.Errorf("expected slowest query recorded, got %q %s", query, duration)
	}

	_, slow, _, _ := qt.Stats().Snapshot()
	if slow != 1 {
		t.Errorf("expected 1 slow query, got %d", slow)
	}
}

func TestQueryTracerEndWithoutStart(t *testing.T) {
	qt := NewQueryTracer(nil, zap.NewNop())

	// A missing trace context must not panic or count.
	qt.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	total, _, _, _ := qt.Stats().Snapshot()
	if total != 0 {
		t.Errorf("expected no recorded queries, got %d", total)
	}
}

func TestTruncateSQL(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := truncateSQL(long, 200)
	if len(got) != 200 {
		t.Errorf("expected length 200, got %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("expected ellipsis suffix")
	}
	if truncateSQL("short", 200) != "short" {
		t.Error("expected short SQL unchanged")
	}
}
