package dispatch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/harrison/scadbench/internal/logger"
	"github.com/harrison/scadbench/internal/openrouter"
)

// PromptSender abstracts the API client so the engine can be tested with a
// fake.
type PromptSender interface {
	Stream(ctx context.Context, req openrouter.Request) (*openrouter.Response, error)
}

// DefaultPollInterval is how often the driver refreshes the live table.
const DefaultPollInterval = 100 * time.Millisecond

// Engine dispatches one prompt to many models in parallel and drives the
// live status display until every model finishes.
type Engine struct {
	Client PromptSender
	Log    logger.Logger
	Out    io.Writer

	// MaxConcurrency caps simultaneous requests; 0 means one goroutine
	// per model
	MaxConcurrency int

	// PollInterval overrides the display refresh rate, mainly for tests
	PollInterval time.Duration
}

// NewEngine creates an engine writing its live table to out.
func NewEngine(client PromptSender, log logger.Logger, out io.Writer) *Engine {
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Engine{
		Client:       client,
		Log:          log,
		Out:          out,
		PollInterval: DefaultPollInterval,
	}
}

// Run sends baseReq to every model concurrently and blocks until all
// requests reach a terminal state. One model's failure never affects the
// others; per-model outcomes are returned keyed by model ID.
func (e *Engine) Run(ctx context.Context, challengeName string, baseReq openrouter.Request, models []string) map[string]ModelStatus {
	board := NewStatusBoard(models)
	renderer := newTableRenderer(e.Out)

	e.Log.LogInfo(fmt.Sprintf("dispatching %q to %d models", challengeName, len(models)))

	var sem chan struct{}
	if e.MaxConcurrency > 0 {
		sem = make(chan struct{}, e.MaxConcurrency)
	}

	done := make(chan struct{})
	remaining := make(chan struct{}, len(models))

	for _, model := range models {
		go func(model string) {
			defer func() {
				if r := recover(); r != nil {
					board.MarkError(model, fmt.Sprintf("worker panic: %v", r))
					e.Log.LogError(fmt.Sprintf("[%s] worker panic: %v", model, r))
				}
				remaining <- struct{}{}
			}()

			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					board.MarkError(model, "canceled before dispatch")
					return
				}
			}

			req := baseReq
			req.Model = model
			req.OnActivity = func() { board.Activity(model) }

			board.MarkStreaming(model)
			resp, err := e.Client.Stream(ctx, req)
			if err != nil {
				board.MarkError(model, err.Error())
				e.Log.LogWarn(fmt.Sprintf("[%s] request failed: %v", model, err))
				return
			}
			board.MarkDone(model, resp)
			e.Log.LogInfo(fmt.Sprintf("[%s] response complete (%d chars)", model, len(resp.Content())))
		}(model)
	}

	go func() {
		for range models {
			<-remaining
		}
		close(done)
	}()

	interval := e.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			board.RefreshElapsed()
			final := board.Snapshot()
			renderer.renderFinal(final)
			for _, s := range final {
				e.Log.LogDebug(fmt.Sprintf("[%s] final state: %s (%.1fs)", s.Model, plainState(s.State), s.Elapsed.Seconds()))
			}
			return board.Results()
		case <-ticker.C:
			board.RefreshElapsed()
			renderer.render(board.Snapshot())
		}
	}
}
