package metrics

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCounters struct {
	processed atomic.Int64
}

func (f *fakeCounters) Processed() int64 { return f.processed.Load() }
func (f *fakeCounters) Dropped() int64   { return 1 }
func (f *fakeCounters) Elements() int64  { return 7 }

func TestCollectReportsCounters(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	counters := &fakeCounters{}
	counters.processed.Store(10)

	c := NewCollector(time.Minute, zap.New(core), counters)
	if c.Last() != nil {
		t.Fatal("Last() should be nil before the first sample")
	}

	s := c.Collect()
	if s.Processed != 10 || s.Dropped != 1 || s.Elements != 7 {
		t.Errorf("counters = %d/%d/%d, want 10/1/7", s.Processed, s.Dropped, s.Elements)
	}
	if c.Last() != s {
		t.Error("Last() should return the latest snapshot")
	}

	entries := logs.FilterMessage("Metrics").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d metric entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["processed"]; got != int64(10) {
		t.Errorf("processed field = %v, want 10", got)
	}
}

func TestCollectWithoutCounters(t *testing.T) {
	c := NewCollector(0, zap.NewNop(), nil)
	if c.interval != 30*time.Second {
		t.Errorf("interval = %v, want 30s default", c.interval)
	}
	if s := c.Collect(); s.Processed != 0 || s.RecordsPerSec != 0 {
		t.Errorf("unexpected snapshot %+v", s)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c := NewCollector(time.Hour, zap.NewNop(), nil)
	go func() {
		c.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if c.Last() == nil {
		t.Error("Start should take an initial sample")
	}
}

func TestFormatMB(t *testing.T) {
	if got := formatMB(12.345); got != "12.3 MB" {
		t.Errorf("formatMB = %q, want %q", got, "12.3 MB")
	}
}
