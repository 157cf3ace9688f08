package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWatcher_Relevant(t *testing.T) {
	t.Parallel()

	w := New("/data/project.yaml", 0, nil, nil)
	tests := []struct {
		name string
		evt  fsnotify.Event
		want bool
	}{
		{name: "write", evt: fsnotify.Event{Name: "/data/project.yaml", Op: fsnotify.Write}, want: true},
		{name: "atomic save", evt: fsnotify.Event{Name: "/data/project.yaml", Op: fsnotify.Create}, want: true},
		{name: "chmod", evt: fsnotify.Event{Name: "/data/project.yaml", Op: fsnotify.Chmod}, want: false},
		{name: "sibling file", evt: fsnotify.Event{Name: "/data/other.yaml", Op: fsnotify.Write}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := w.relevant(tt.evt); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.evt, got, tt.want)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	w := New("./data/../data/project.yaml", 0, nil, nil)
	if w.debounce != DefaultDebounce {
		t.Errorf("Expected default debounce, got %v", w.debounce)
	}
	if w.path != "data/project.yaml" {
		t.Errorf("Expected cleaned path, got %q", w.path)
	}
}

func TestWatcher_Run_DebouncedRerun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	if err := os.WriteFile(path, []byte("project: {}\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var calls atomic.Int32
	changed := make(chan struct{}, 10)
	core, logs := observer.New(zap.InfoLevel)
	w := New(path, 100*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		changed <- struct{}{}
		return errors.New("rerun failed")
	}, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for logs.FilterMessage("watch_started").Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher did not start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("project: {id: 1}\n"), 0o600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	select {
	case <-changed:
	case <-deadline:
		t.Fatal("Expected a rerun after the file changed")
	}
	time.Sleep(200 * time.Millisecond)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("Expected burst of writes to collapse into one rerun, got %d", got)
	}
	if logs.FilterMessage("watch_rerun_failed").Len() != 1 {
		t.Error("Expected rerun failure to be logged without stopping the watcher")
	}
}

func TestWatcher_Run_MissingDirectory(t *testing.T) {
	t.Parallel()

	w := New(filepath.Join(t.TempDir(), "missing", "project.yaml"), 0, func(context.Context) error { return nil }, nil)
	if err := w.Run(context.Background()); err == nil {
		t.Error("Expected error watching a missing directory")
	}
}
