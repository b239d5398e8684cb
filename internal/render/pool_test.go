package render

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTasks(t *testing.T, n int) []Task {
	t.Helper()
	tasks := make([]Task, 0, n)
	for i := 0; i < n; i++ {
		dir := filepath.Join(t.TempDir(), fmt.Sprintf("model-%d", i))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		tasks = append(tasks, Task{
			Model:     fmt.Sprintf("vendor/model-%d", i),
			OutputDir: dir,
			Code:      fmt.Sprintf("cube(%d);", i+1),
		})
	}
	return tasks
}

func TestPoolWritesSourceAndRenders(t *testing.T) {
	exe := fakeOpenSCAD(t, `echo "solid" > "$2"`)
	pool := NewPool(exe, 2, time.Minute, nil)
	tasks := makeTasks(t, 3)

	results := pool.Process(context.Background(), tasks, nil)

	require.Len(t, results, 3)
	for _, task := range tasks {
		result := results[task.Model]
		assert.True(t, result.Success)

		code, err := os.ReadFile(filepath.Join(task.OutputDir, ScadFileName))
		require.NoError(t, err)
		assert.Equal(t, task.Code, string(code))
		assert.FileExists(t, filepath.Join(task.OutputDir, STLFileName))
	}
}

func TestPoolBoundsConcurrency(t *testing.T) {
	var current, maxSeen atomic.Int32

	pool := NewPool("unused", 5, time.Minute, nil)
	pool.renderFn = func(ctx context.Context, scadPath, openscadPath string, timeout time.Duration) Result {
		n := current.Add(1)
		for {
			m := maxSeen.Load()
			if n <= m || maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		return Result{Success: true, ScadPath: scadPath}
	}

	results := pool.Process(context.Background(), makeTasks(t, 12), nil)

	require.Len(t, results, 12)
	assert.LessOrEqual(t, maxSeen.Load(), int32(5))
}

func TestPoolCompletionCallbacks(t *testing.T) {
	pool := NewPool("unused", 3, time.Minute, nil)
	pool.renderFn = func(ctx context.Context, scadPath, openscadPath string, timeout time.Duration) Result {
		time.Sleep(time.Duration(rand.Intn(15)) * time.Millisecond)
		return Result{Success: true, ScadPath: scadPath}
	}

	tasks := makeTasks(t, 6)

	var mu sync.Mutex
	seen := map[string]bool{}
	var inCallback atomic.Int32

	results := pool.Process(context.Background(), tasks, func(task Task, result Result) {
		// Callbacks must never overlap
		require.Equal(t, int32(1), inCallback.Add(1))
		defer inCallback.Add(-1)

		mu.Lock()
		seen[task.Model] = result.Success
		mu.Unlock()
	})

	require.Len(t, results, 6)
	require.Len(t, seen, 6)
	for _, task := range tasks {
		assert.True(t, seen[task.Model])
	}
}

func TestPoolRecordsWriteFailure(t *testing.T) {
	// A regular file where the output directory should be makes the
	// source write fail before any render is attempted
	notADir := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(notADir, []byte("in the way"), 0o644))

	pool := NewPool("unused", 1, time.Minute, nil)
	tasks := []Task{{
		Model:     "vendor/model",
		OutputDir: filepath.Join(notADir, "nested"),
		Code:      "cube(1);",
	}}

	results := pool.Process(context.Background(), tasks, nil)

	result := results["vendor/model"]
	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "failed to write source file")
}

func TestPoolEmptyTaskList(t *testing.T) {
	pool := NewPool("unused", 5, time.Minute, nil)
	results := pool.Process(context.Background(), nil, nil)
	assert.Empty(t, results)
}
