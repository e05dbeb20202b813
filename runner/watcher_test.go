package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// touchUntil rewrites path until a batch arrives on changes or the deadline passes.
func touchUntil(t *testing.T, path string, changes <-chan []string) []string {
	t.Helper()
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case batch := <-changes:
			return batch
		case <-deadline:
			t.Fatal("no change reported")
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte(time.Now().String()), 0o644))
		}
	}
}

func TestWatcherReportsFileChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	target := writeTestFile(t, dir, "a.nt", "")
	other := writeTestFile(t, dir, "other.txt", "")

	changes := make(chan []string, 16)
	w := &Watcher{
		Paths:    []string{target},
		Debounce: 20 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) { changes <- changed },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	batch := touchUntil(t, target, changes)
	assert.Contains(t, batch, target)
	assert.NotContains(t, batch, other)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherDirectoryChildren(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	shapes := filepath.Join(dir, "shapes")
	require.NoError(t, os.Mkdir(shapes, 0o755))
	child := filepath.Join(shapes, "extra.ttl")

	changes := make(chan []string, 16)
	w := &Watcher{
		Paths:    []string{shapes},
		Debounce: 20 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) { changes <- changed },
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	batch := touchUntil(t, child, changes)
	assert.Contains(t, batch, child)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherRequiresHandler(t *testing.T) {
	require.Error(t, (&Watcher{Paths: []string{t.TempDir()}}).Watch(context.Background()))
}

func TestRunnerWatchRerunsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t)
	writeTestFile(t, f.dir, "shapes/common.ttl", commonShapes)
	f.cfg.Watch.Debounce = 20 * time.Millisecond

	calls := 0
	r := &Runner{Config: f.cfg, Oracle: fixedOracle(true, &calls)}

	runs := make(chan *Report, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, f.in, func(report *Report, err error) {
			if ctx.Err() != nil {
				return
			}
			assert.NoError(t, err)
			runs <- report
		})
	}()

	first := <-runs
	require.NotNil(t, first)

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	var second *Report
	for second == nil {
		select {
		case second = <-runs:
		case <-deadline:
			t.Fatal("no rerun after change")
		case <-tick.C:
			require.NoError(t, os.WriteFile(f.in.Instances[0], []byte("<urn:s> <urn:p> \"6\" .\n"), 0o644))
		}
	}
	assert.NotEqual(t, first.RunID, second.RunID)

	cancel()
	require.NoError(t, <-done)
}
