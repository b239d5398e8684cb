package render

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrison/scadbench/internal/filelock"
	"github.com/harrison/scadbench/internal/logger"
)

// DefaultMaxWorkers bounds concurrent OpenSCAD processes.
const DefaultMaxWorkers = 5

// DefaultTimeout is the per-render time limit.
const DefaultTimeout = 20 * time.Minute

// Task is one model's code queued for rendering.
type Task struct {
	Model     string
	OutputDir string
	Code      string
}

// CompletionFunc is called once per task as renders finish, from the pool's
// collection goroutine only, so callbacks never race with each other.
type CompletionFunc func(task Task, result Result)

// Pool renders tasks through a bounded set of OpenSCAD workers.
type Pool struct {
	OpenSCADPath string
	MaxWorkers   int
	Timeout      time.Duration
	Log          logger.Logger

	// renderFn is swapped out in tests
	renderFn func(ctx context.Context, scadPath, openscadPath string, timeout time.Duration) Result
}

// NewPool creates a pool with the configured binary, worker cap, and
// per-render timeout. Zero values fall back to the defaults.
func NewPool(openscadPath string, maxWorkers int, timeout time.Duration, log logger.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Pool{
		OpenSCADPath: openscadPath,
		MaxWorkers:   maxWorkers,
		Timeout:      timeout,
		Log:          log,
		renderFn:     RenderSCAD,
	}
}

type taskResult struct {
	task   Task
	result Result
}

// Process writes each task's code to disk and renders all tasks through the
// worker pool. onComplete (may be nil) fires as each render finishes, and
// the final results are returned keyed by model once everything is done.
func (p *Pool) Process(ctx context.Context, tasks []Task, onComplete CompletionFunc) map[string]Result {
	results := make(map[string]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	p.Log.LogInfo(fmt.Sprintf("rendering %d models (%d workers, %s timeout)", len(tasks), p.MaxWorkers, p.Timeout))

	sem := make(chan struct{}, p.MaxWorkers)
	out := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out <- taskResult{task: task, result: p.renderTask(ctx, task)}
		}(task)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	for tr := range out {
		results[tr.task.Model] = tr.result
		if onComplete != nil {
			onComplete(tr.task, tr.result)
		}
	}
	return results
}

func (p *Pool) renderTask(ctx context.Context, task Task) Result {
	scadPath := filepath.Join(task.OutputDir, ScadFileName)

	if err := filelock.AtomicWrite(scadPath, []byte(task.Code)); err != nil {
		return Result{
			ScadPath:     scadPath,
			ErrorMessage: fmt.Sprintf("failed to write source file: %v", err),
		}
	}

	p.Log.LogDebug(fmt.Sprintf("[%s] rendering %s", task.Model, scadPath))
	result := p.renderFn(ctx, scadPath, p.OpenSCADPath, p.Timeout)

	if result.Success {
		p.Log.LogInfo(fmt.Sprintf("[%s] render succeeded in %.1fs", task.Model, result.RenderTime.Seconds()))
	} else {
		p.Log.LogWarn(fmt.Sprintf("[%s] render failed: %s", task.Model, result.ErrorMessage))
	}
	return result
}
