package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64 // per-key sequence value
	calls  int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = make(map[string]int64)
	}
	m.calls++

	key, _ := args[0].(string)
	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.values[key] += increment
	return &mockRow{val: m.values[key]}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("TEST")

	num, err := svc.GetNextNumber(ctx, "co1", cfg, nil, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TEST-2026-00001" {
		t.Errorf("expected TEST-2026-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(ctx, "co1", cfg, nil, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TEST-2026-00002" {
		t.Errorf("expected TEST-2026-00002, got %s", num)
	}
}

func TestGetNextNumber_CompanyIsolation(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("PO")
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Each company gets its own sequence even with identical prefix.
	num1, err := svc.GetNextNumber(ctx, "co1", cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	num2, err := svc.GetNextNumber(ctx, "co2", cfg, nil, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if num1 != "PO-2026-00001" {
		t.Errorf("expected PO-2026-00001 for co1, got %s", num1)
	}
	if num2 != "PO-2026-00001" {
		t.Errorf("expected PO-2026-00001 for co2, got %s", num2)
	}
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("ORD")
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	opts := &Options{
		Strategy:  StrategyCached,
		RangeSize: 10,
	}

	// First call reserves a range of 10 in a single DB round-trip.
	num, err := svc.GetNextNumber(ctx, "co1", cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2026-00001" {
		t.Errorf("expected ORD-2026-00001, got %s", num)
	}
	if q.calls != 1 {
		t.Errorf("expected 1 DB call, got %d", q.calls)
	}

	// Second call is served from memory.
	num, err = svc.GetNextNumber(ctx, "co1", cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2026-00002" {
		t.Errorf("expected ORD-2026-00002, got %s", num)
	}
	if q.calls != 1 {
		t.Errorf("expected DB calls to stay 1, got %d", q.calls)
	}

	// Exhaust the range; the next call must reserve a fresh one.
	for i := 0; i < 8; i++ {
		_, _ = svc.GetNextNumber(ctx, "co1", cfg, opts, period)
	}

	num, err = svc.GetNextNumber(ctx, "co1", cfg, opts, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "ORD-2026-00011" {
		t.Errorf("expected ORD-2026-00011, got %s", num)
	}
	if q.calls != 2 {
		t.Errorf("expected 2 DB calls, got %d", q.calls)
	}
}

func TestSetNextNumber_InvalidatesCache(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("INV")
	opts := &Options{Strategy: StrategyCached, RangeSize: 10}
	period := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, _ = svc.GetNextNumber(ctx, "co1", cfg, opts, period)
	if q.calls != 1 {
		t.Fatalf("expected 1 DB call, got %d", q.calls)
	}

	if err := svc.SetNextNumber(ctx, "co1", cfg, period, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Cache is dropped, so the next number must go back to the DB.
	_, _ = svc.GetNextNumber(ctx, "co1", cfg, opts, period)
	if q.calls != 3 {
		t.Errorf("expected 3 DB calls after cache invalidation, got %d", q.calls)
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"PO-2026-00042", 42},
		{"USG-00007", 7},
		{"garbage", -1},
	}
	for _, tc := range cases {
		if got := ParseNumber(tc.in); got != tc.want {
			t.Errorf("ParseNumber(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
