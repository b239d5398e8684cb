package dispatch

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// spinnerFrames animate the streaming state in the live table.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	dimText    = color.New(color.Faint)
	yellowText = color.New(color.FgYellow)
	greenText  = color.New(color.FgGreen)
	redText    = color.New(color.FgRed)
)

// tableRenderer prints the per-model status table, rewriting it in place
// when the output is a terminal and appending plain snapshots otherwise.
type tableRenderer struct {
	w          io.Writer
	isTerminal bool
	linesDrawn int
}

func newTableRenderer(w io.Writer) *tableRenderer {
	r := &tableRenderer{w: w}
	if f, ok := w.(*os.File); ok {
		r.isTerminal = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return r
}

// render draws the current snapshot. On a terminal the previous table is
// erased with cursor movement; otherwise only final states are printed so
// logs stay readable.
func (r *tableRenderer) render(snapshot []ModelStatus) {
	if !r.isTerminal {
		return
	}
	if r.linesDrawn > 0 {
		fmt.Fprintf(r.w, "\x1b[%dA", r.linesDrawn)
	}

	width := modelColumnWidth(snapshot)
	for _, s := range snapshot {
		fmt.Fprintf(r.w, "\x1b[2K  %-*s  %s\n", width, s.Model, r.cell(s))
	}
	r.linesDrawn = len(snapshot)
}

// renderFinal prints the finished table. On non-terminal output this is the
// only table printed for the wave.
func (r *tableRenderer) renderFinal(snapshot []ModelStatus) {
	if r.isTerminal {
		r.render(snapshot)
		return
	}
	width := modelColumnWidth(snapshot)
	for _, s := range snapshot {
		fmt.Fprintf(r.w, "  %-*s  %s\n", width, s.Model, r.cell(s))
	}
}

func (r *tableRenderer) cell(s ModelStatus) string {
	switch s.State {
	case StateWaiting:
		return dimText.Sprintf("... waiting (%.1fs)", s.Elapsed.Seconds())
	case StateStreaming:
		frame := spinnerFrames[s.spinnerIndex%len(spinnerFrames)]
		return yellowText.Sprintf("%s streaming (%.1fs)", frame, s.Elapsed.Seconds())
	case StateDone:
		return greenText.Sprintf("✓ done (%.1fs)", s.Elapsed.Seconds())
	case StateError:
		msg := s.ErrorMessage
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		return redText.Sprintf("✗ error: %s (%.1fs)", msg, s.Elapsed.Seconds())
	default:
		return "?"
	}
}

func modelColumnWidth(snapshot []ModelStatus) int {
	width := 0
	for _, s := range snapshot {
		if len(s.Model) > width {
			width = len(s.Model)
		}
	}
	return width
}

// plainState is the log-friendly name of a state.
func plainState(s State) string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
