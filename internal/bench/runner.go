// Package bench orchestrates a full benchmark run: prompt dispatch, code
// extraction, rendering, and result collection.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/scadbench/internal/challenge"
	"github.com/harrison/scadbench/internal/config"
	"github.com/harrison/scadbench/internal/dispatch"
	"github.com/harrison/scadbench/internal/filelock"
	"github.com/harrison/scadbench/internal/history"
	"github.com/harrison/scadbench/internal/logger"
	"github.com/harrison/scadbench/internal/openrouter"
	"github.com/harrison/scadbench/internal/render"
)

const (
	// ResponseFileName holds the raw API response for an attempt
	ResponseFileName = "response.json"

	// ErrorLogFileName records an API failure for an attempt
	ErrorLogFileName = "error.log"

	// RenderErrorLogFileName records a render failure for an attempt
	RenderErrorLogFileName = "render_error.log"
)

// AttemptResult is the final outcome for one model on one challenge.
type AttemptResult struct {
	Challenge     string
	Model         string
	APISuccess    bool
	RenderSuccess bool
	ErrorMessage  string
	RenderTime    time.Duration
}

// Runner executes the benchmark described by a validated config.
type Runner struct {
	Config  *config.Config
	Client  dispatch.PromptSender
	Log     logger.Logger
	Out     io.Writer
	History *history.Store
	RunID   string
}

// NewRunner wires a runner from its dependencies. The history store may be
// nil to disable persistence.
func NewRunner(cfg *config.Config, client dispatch.PromptSender, log logger.Logger, out io.Writer, hist *history.Store) *Runner {
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Runner{
		Config:  cfg,
		Client:  client,
		Log:     log,
		Out:     out,
		History: hist,
		RunID:   render.NewRunID(),
	}
}

// Run executes every challenge against every model and returns all attempt
// results in challenge-then-config order.
func (r *Runner) Run(ctx context.Context, challenges []challenge.Challenge) ([]AttemptResult, error) {
	startedAt := time.Now()
	var all []AttemptResult

	bold := color.New(color.Bold)
	for i, ch := range challenges {
		if err := ctx.Err(); err != nil {
			return all, fmt.Errorf("run canceled: %w", err)
		}

		bold.Fprintf(r.Out, "\n[%d/%d] Challenge: %s\n", i+1, len(challenges), ch.Name)
		results, err := r.runChallenge(ctx, ch)
		if err != nil {
			return all, err
		}
		all = append(all, results...)
	}

	r.recordHistory(challenges, all, startedAt)
	return all, nil
}

func (r *Runner) runChallenge(ctx context.Context, ch challenge.Challenge) ([]AttemptResult, error) {
	imageURL, err := ch.ReferenceImageDataURL()
	if err != nil {
		return nil, err
	}
	if imageURL != "" {
		r.Log.LogInfo(fmt.Sprintf("challenge %q includes a reference image", ch.Name))
	}

	baseReq := openrouter.Request{
		SystemPrompt: r.Config.SystemPrompt,
		UserPrompt:   ch.Prompt,
		ImageDataURL: imageURL,
		Params:       r.Config.API.SamplingParams(),
	}

	engine := dispatch.NewEngine(r.Client, r.Log, r.Out)
	engine.MaxConcurrency = r.Config.API.MaxConcurrency
	statuses := engine.Run(ctx, ch.Name, baseReq, r.Config.Models)

	nonDefault := r.Config.API.NonDefaultParams()

	attempts := make(map[string]*AttemptResult, len(r.Config.Models))
	outputDirs := make(map[string]string, len(r.Config.Models))
	var tasks []render.Task

	for _, model := range r.Config.Models {
		attempt := &AttemptResult{Challenge: ch.Name, Model: model}
		attempts[model] = attempt

		outputDir, err := challenge.OutputDir(ch.Path, model, nonDefault)
		if err != nil {
			return nil, err
		}
		outputDirs[model] = outputDir

		if err := render.WriteParams(outputDir, r.RunID, model, r.Config.Render.Timeout,
			r.Config.API.SamplingParams(), nonDefault); err != nil {
			r.Log.LogWarn(fmt.Sprintf("[%s] %v", model, err))
		}

		status := statuses[model]
		if status.State != dispatch.StateDone {
			attempt.ErrorMessage = status.ErrorMessage
			r.writeAttemptFile(outputDir, ErrorLogFileName, status.ErrorMessage)
			continue
		}

		r.saveResponse(outputDir, model, status.Response)

		code, err := openrouter.ExtractCode(model, status.Response.Content())
		if err != nil {
			attempt.ErrorMessage = err.Error()
			r.Log.LogWarn(err.Error())
			continue
		}

		attempt.APISuccess = true
		tasks = append(tasks, render.Task{Model: model, OutputDir: outputDir, Code: code})
	}

	pool := render.NewPool(r.Config.OpenSCADPath, r.Config.Render.MaxWorkers, r.Config.Render.Timeout, r.Log)
	pool.Process(ctx, tasks, func(task render.Task, result render.Result) {
		attempt := attempts[task.Model]
		attempt.RenderSuccess = result.Success
		attempt.RenderTime = result.RenderTime

		if result.Success {
			fmt.Fprintf(r.Out, "  %s %s rendered in %.1fs\n",
				color.GreenString("✓"), task.Model, result.RenderTime.Seconds())
			return
		}

		attempt.ErrorMessage = result.ErrorMessage
		fmt.Fprintf(r.Out, "  %s %s render failed\n", color.RedString("✗"), task.Model)
		r.writeAttemptFile(outputDirs[task.Model], RenderErrorLogFileName, result.ErrorMessage)
	})

	results := make([]AttemptResult, 0, len(r.Config.Models))
	for _, model := range r.Config.Models {
		results = append(results, *attempts[model])
	}
	return results, nil
}

// saveResponse writes the raw API response so failed extractions stay
// debuggable.
func (r *Runner) saveResponse(outputDir, model string, resp *openrouter.Response) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		r.Log.LogWarn(fmt.Sprintf("[%s] failed to encode response: %v", model, err))
		return
	}
	path := filepath.Join(outputDir, ResponseFileName)
	if err := filelock.AtomicWrite(path, append(data, '\n')); err != nil {
		r.Log.LogWarn(fmt.Sprintf("[%s] failed to write %s: %v", model, ResponseFileName, err))
	}
}

func (r *Runner) writeAttemptFile(outputDir, name, content string) {
	if outputDir == "" || content == "" {
		return
	}
	path := filepath.Join(outputDir, name)
	if err := filelock.AtomicWrite(path, []byte(content+"\n")); err != nil {
		r.Log.LogWarn(fmt.Sprintf("failed to write %s: %v", path, err))
	}
}

func (r *Runner) recordHistory(challenges []challenge.Challenge, results []AttemptResult, startedAt time.Time) {
	if r.History == nil {
		return
	}

	names := make([]string, 0, len(challenges))
	for _, ch := range challenges {
		names = append(names, ch.Name)
	}

	for _, result := range results {
		err := r.History.RecordAttempt(history.Attempt{
			RunID:         r.RunID,
			Challenge:     result.Challenge,
			Model:         result.Model,
			APISuccess:    result.APISuccess,
			RenderSuccess: result.RenderSuccess,
			ErrorMessage:  result.ErrorMessage,
			RenderSecs:    result.RenderTime.Seconds(),
		})
		if err != nil {
			r.Log.LogWarn(err.Error())
		}
	}

	err := r.History.RecordRun(history.Run{
		RunID:      r.RunID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Models:     r.Config.Models,
		Challenges: names,
		Rendered:   RenderedCount(results),
		Total:      len(results),
	})
	if err != nil {
		r.Log.LogWarn(err.Error())
	}
}
