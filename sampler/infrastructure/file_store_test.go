package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samoilenko/sensorlog/sampler/domain"
)

func tempLogPath(tb testing.TB) domain.LogPath {
	tb.Helper()
	return domain.LogPath(filepath.Join(tb.TempDir(), "sensor.txt"))
}

func TestFileStore_Append(t *testing.T) {
	t.Run("creates the file lazily and appends lines", func(t *testing.T) {
		path := tempLogPath(t)
		store := NewFileStore(path, 4096, &mockLogger{})
		defer func() { _ = store.Close() }()

		if store.IsReady() {
			t.Error("store should not be ready before the first append")
		}
		if _, err := os.Stat(string(path)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("file created too early: %v", err)
		}

		ctx := context.Background()
		for _, line := range []string{"[1.000]:a", "[2.000]:b"} {
			if err := store.Append(ctx, domain.LogRecord{Line: line}); err != nil {
				t.Fatalf("append: %v", err)
			}
		}
		if !store.IsReady() {
			t.Error("store should be ready after append")
		}
		if err := store.Flush(); err != nil {
			t.Fatalf("flush: %v", err)
		}

		data, err := os.ReadFile(string(path))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(data) != "[1.000]:a\n[2.000]:b\n" {
			t.Errorf("unexpected content %q", data)
		}
	})

	t.Run("keeps existing content", func(t *testing.T) {
		path := tempLogPath(t)
		if err := os.WriteFile(string(path), []byte("old\n"), 0644); err != nil {
			t.Fatal(err)
		}
		store := NewFileStore(path, 4096, &mockLogger{})
		_ = store.Append(context.Background(), domain.LogRecord{Line: "new"})
		_ = store.Close()

		data, _ := os.ReadFile(string(path))
		if string(data) != "old\nnew\n" {
			t.Errorf("unexpected content %q", data)
		}
	})

	t.Run("unwritable location", func(t *testing.T) {
		logger := &mockLogger{}
		store := NewFileStore("/nonexistent/dir/sensor.txt", 4096, logger)
		err := store.Append(context.Background(), domain.LogRecord{Line: "x"})
		if !errors.Is(err, domain.ErrStoreNotReady) {
			t.Errorf("expected ErrStoreNotReady, got %v", err)
		}
		if len(logger.GetMessages()) == 0 {
			t.Error("expected an error to be logged")
		}
	})
}

func TestFileStore_ReadLog(t *testing.T) {
	path := tempLogPath(t)
	store := NewFileStore(path, 4096, &mockLogger{})
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	data, err := store.ReadLog(ctx, 0)
	if err != nil || len(data) != 0 {
		t.Fatalf("missing log should read empty, got %q, %v", data, err)
	}

	_ = store.Append(ctx, domain.LogRecord{Line: "[1.000]:Pressure: 101.3 kPa"})

	data, err = store.ReadLog(ctx, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "[1.000]:Pressure: 101.3 kPa\n" {
		t.Errorf("buffered record not visible: %q", data)
	}

	data, _ = store.ReadLog(ctx, 7)
	if string(data) != "[1.000]" {
		t.Errorf("expected limited read, got %q", data)
	}
}

func TestFileStore_Clear(t *testing.T) {
	path := tempLogPath(t)
	store := NewFileStore(path, 4096, &mockLogger{})
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clearing a missing log: %v", err)
	}

	_ = store.Append(ctx, domain.LogRecord{Line: "before"})
	_ = store.Flush()
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := os.Stat(string(path)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("log still exists: %v", err)
	}

	_ = store.Append(ctx, domain.LogRecord{Line: "after"})
	_ = store.Flush()
	data, _ := os.ReadFile(string(path))
	if string(data) != "after\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestFileStore_Reconnect(t *testing.T) {
	path := tempLogPath(t)
	store := NewFileStore(path, 4096, &mockLogger{})
	defer func() { _ = store.Close() }()

	_ = store.Append(context.Background(), domain.LogRecord{Line: "a"})
	if err := store.Reconnect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	_ = store.Append(context.Background(), domain.LogRecord{Line: "b"})
	_ = store.Flush()

	data, _ := os.ReadFile(string(path))
	if string(data) != "a\nb\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestFileStore_FlushWorker(t *testing.T) {
	path := tempLogPath(t)
	store := NewFileStore(path, 4096, &mockLogger{})
	defer func() { _ = store.Close() }()

	q := domain.NewRecordQueue(domain.DefaultQueueCapacity)
	for _, line := range []string{"1", "2", "3", "4", "5"} {
		_ = q.Enqueue(context.Background(), domain.LogRecord{Line: line})
	}
	fw := domain.NewFlushWorker(q, store, domain.FlushInterval(1), &mockLogger{}, nil)
	fw.Drain(context.Background())

	data, _ := os.ReadFile(string(path))
	if string(data) != "1\n2\n3\n4\n5\n" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestFileStore_FlushWorkerWriteFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full is not available")
	}
	store := NewFileStore("/dev/full", 4096, &mockLogger{})
	defer func() { _ = store.Close() }()

	q := domain.NewRecordQueue(domain.DefaultQueueCapacity)
	for _, line := range []string{"1", "2", "3", "4", "5"} {
		_ = q.Enqueue(context.Background(), domain.LogRecord{Kind: domain.Pressure, Line: line})
	}
	metrics := NewPrometheusMetrics(prometheus.NewRegistry())
	logger := &mockLogger{}
	fw := domain.NewFlushWorker(q, store, domain.FlushInterval(1), logger, metrics)

	if written := fw.Drain(context.Background()); written != 0 {
		t.Errorf("expected no records written to a full device, got %d", written)
	}
	if got := testutil.ToFloat64(metrics.flushed.WithLabelValues("pressure")); got != 0 {
		t.Errorf("expected 0 flushed, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.dropped.WithLabelValues("pressure")); got != 5 {
		t.Errorf("expected 5 dropped, got %v", got)
	}
	if q.Count() != 0 {
		t.Errorf("queue not drained: %d left", q.Count())
	}
	if len(logger.GetMessages()) < 5 {
		t.Errorf("expected one error per lost record, got %v", logger.GetMessages())
	}
}
