// Package dispatch fans prompts out to models concurrently and renders a
// live status table while the streams run.
package dispatch

import (
	"sync"
	"time"

	"github.com/harrison/scadbench/internal/openrouter"
)

// State is the lifecycle stage of one model's request.
type State int

const (
	// StateWaiting means the request has not produced a token yet
	StateWaiting State = iota

	// StateStreaming means tokens are arriving
	StateStreaming

	// StateDone means the response completed successfully
	StateDone

	// StateError means the request failed
	StateError
)

// IsTerminal reports whether the state is final.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateError
}

// ModelStatus is a point-in-time view of one model's request.
type ModelStatus struct {
	Model        string
	State        State
	Elapsed      time.Duration
	ErrorMessage string
	Response     *openrouter.Response

	startTime    time.Time
	spinnerIndex int
}

// StatusBoard tracks the status of every model in a dispatch wave. All
// methods are safe for concurrent use; worker goroutines update entries
// while the driver goroutine snapshots them for display.
type StatusBoard struct {
	mu     sync.Mutex
	order  []string
	status map[string]*ModelStatus
}

// NewStatusBoard creates a board with every model in the waiting state.
// Display order follows the given model order.
func NewStatusBoard(models []string) *StatusBoard {
	b := &StatusBoard{
		order:  make([]string, 0, len(models)),
		status: make(map[string]*ModelStatus, len(models)),
	}
	now := time.Now()
	for _, model := range models {
		b.order = append(b.order, model)
		b.status[model] = &ModelStatus{
			Model:     model,
			State:     StateWaiting,
			startTime: now,
		}
	}
	return b
}

// MarkStreaming transitions a model to streaming when its transport call
// begins, restarting the clock so queue wait behind the concurrency cap
// never counts toward elapsed time. Terminal states are never overwritten.
func (b *StatusBoard) MarkStreaming(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.status[model]
	if !ok || s.State != StateWaiting {
		return
	}
	s.State = StateStreaming
	s.startTime = time.Now()
	s.Elapsed = 0
}

// Activity records stream activity for a model, advancing its spinner.
func (b *StatusBoard) Activity(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.status[model]
	if !ok || s.State.IsTerminal() {
		return
	}
	if s.State == StateWaiting {
		s.State = StateStreaming
	}
	s.spinnerIndex++
}

// MarkDone records a successful response and freezes the elapsed time.
func (b *StatusBoard) MarkDone(model string, resp *openrouter.Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.status[model]
	if !ok || s.State.IsTerminal() {
		return
	}
	s.State = StateDone
	s.Response = resp
	s.Elapsed = time.Since(s.startTime)
}

// MarkError records a failure and freezes the elapsed time.
func (b *StatusBoard) MarkError(model string, errMsg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.status[model]
	if !ok || s.State.IsTerminal() {
		return
	}
	s.State = StateError
	s.ErrorMessage = errMsg
	s.Elapsed = time.Since(s.startTime)
}

// RefreshElapsed updates elapsed time for all non-terminal entries.
func (b *StatusBoard) RefreshElapsed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.status {
		if !s.State.IsTerminal() {
			s.Elapsed = time.Since(s.startTime)
		}
	}
}

// Snapshot returns value copies of every status in display order.
func (b *StatusBoard) Snapshot() []ModelStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := make([]ModelStatus, 0, len(b.order))
	for _, model := range b.order {
		snap = append(snap, *b.status[model])
	}
	return snap
}

// AllTerminal reports whether every model has finished.
func (b *StatusBoard) AllTerminal() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.status {
		if !s.State.IsTerminal() {
			return false
		}
	}
	return true
}

// Results returns the final per-model outcomes keyed by model ID.
func (b *StatusBoard) Results() map[string]ModelStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	results := make(map[string]ModelStatus, len(b.status))
	for model, s := range b.status {
		results[model] = *s
	}
	return results
}
