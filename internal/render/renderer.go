// Package render drives OpenSCAD subprocesses that turn generated code
// into STL files, bounded by a worker pool.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ScadFileName is the generated source file inside an output directory
	ScadFileName = "attempt.scad"

	// STLFileName is the render target inside an output directory
	STLFileName = "attempt.stl"
)

// Result is the outcome of one render attempt. STLPath is set only when
// the render succeeded.
type Result struct {
	Success      bool
	ScadPath     string
	STLPath      string
	ErrorMessage string
	RenderTime   time.Duration
}

// RenderSCAD runs OpenSCAD on scadPath, writing the STL next to it. Success
// requires both a zero exit status and an STL file on disk, since OpenSCAD
// can exit cleanly without producing output for degenerate geometry.
func RenderSCAD(ctx context.Context, scadPath, openscadPath string, timeout time.Duration) Result {
	stlPath := filepath.Join(filepath.Dir(scadPath), STLFileName)
	result := Result{ScadPath: scadPath}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, openscadPath, "-o", stlPath, scadPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result.RenderTime = time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		result.ErrorMessage = fmt.Sprintf("render timed out after %s", timeout)
		return result
	}

	if err != nil {
		result.ErrorMessage = renderErrorMessage(err, stdout.Bytes(), stderr.Bytes())
		return result
	}

	if _, statErr := os.Stat(stlPath); statErr != nil {
		result.ErrorMessage = "OpenSCAD exited successfully but produced no STL file"
		return result
	}

	result.Success = true
	result.STLPath = stlPath
	return result
}

// renderErrorMessage prefers stderr, falls back to stdout, then to the exit
// status alone.
func renderErrorMessage(err error, stdout, stderr []byte) string {
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(string(stdout)); msg != "" {
		return msg
	}

	if errors.Is(err, exec.ErrNotFound) {
		return "OpenSCAD executable not found, check openscad_path in the config"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("OpenSCAD exited with code %d", exitErr.ExitCode())
	}
	return err.Error()
}
