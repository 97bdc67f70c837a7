package daemon

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, "", func() error { return nil }, nil, testLog()); err == nil {
		t.Error("New() expected error for zero interval")
	}
	if _, err := New(time.Minute, "", nil, nil, testLog()); err == nil {
		t.Error("New() expected error for nil cycle")
	}
}

func TestDaemonRunsCyclePerTick(t *testing.T) {
	cycleDone := make(chan struct{}, 10)
	var mu sync.Mutex
	count := 0

	d, err := New(time.Minute, "", func() error {
		mu.Lock()
		count++
		mu.Unlock()
		cycleDone <- struct{}{}
		return nil
	}, nil, testLog())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	clock := clockwork.NewFakeClock()
	d.SetClock(clock)

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	clock.BlockUntil(1)
	for i := 0; i < 3; i++ {
		clock.Advance(time.Minute)
		select {
		case <-cycleDone:
		case <-time.After(2 * time.Second):
			t.Fatalf("cycle %d never ran", i+1)
		}
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if count != 3 {
		t.Errorf("ran %d cycles, want 3", count)
	}
}

func TestDaemonKeepsRunningAfterCycleFailure(t *testing.T) {
	cycleDone := make(chan struct{}, 10)
	var mu sync.Mutex
	count := 0

	d, err := New(time.Minute, "", func() error {
		mu.Lock()
		count++
		mu.Unlock()
		cycleDone <- struct{}{}
		return errors.New("send failed")
	}, nil, testLog())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	clock := clockwork.NewFakeClock()
	d.SetClock(clock)

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	clock.BlockUntil(1)
	for i := 0; i < 2; i++ {
		clock.Advance(time.Minute)
		select {
		case <-cycleDone:
		case <-time.After(2 * time.Second):
			t.Fatalf("cycle %d never ran", i+1)
		}
	}
	d.Stop()

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Errorf("ran %d cycles, want 2", count)
	}
}

func TestDaemonReloadsOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reloaded := make(chan struct{}, 10)
	d, err := New(time.Hour, configPath, func() error { return nil }, func() error {
		reloaded <- struct{}{}
		return nil
	}, testLog())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	d.SetClock(clockwork.NewFakeClock())

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer d.Stop()

	if err := os.WriteFile(configPath, []byte(`{"changed": true}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("reload never triggered")
	}
}

func TestDaemonIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reloaded := make(chan struct{}, 10)
	d, err := New(time.Hour, configPath, func() error { return nil }, func() error {
		reloaded <- struct{}{}
		return nil
	}, testLog())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	d.SetClock(clockwork.NewFakeClock())

	if err := d.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer d.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-reloaded:
		t.Error("reload triggered by unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
}
