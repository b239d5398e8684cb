package bench

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// maxModelWidth truncates very long model IDs in the summary table.
const maxModelWidth = 35

// RenderedCount returns how many attempts produced an STL.
func RenderedCount(results []AttemptResult) int {
	n := 0
	for _, r := range results {
		if r.RenderSuccess {
			n++
		}
	}
	return n
}

// ExitCode maps run results to the process exit status: 0 when every
// attempt rendered, 2 when none did, 1 otherwise.
func ExitCode(results []AttemptResult) int {
	if len(results) == 0 {
		return 2
	}
	rendered := RenderedCount(results)
	switch {
	case rendered == len(results):
		return 0
	case rendered == 0:
		return 2
	default:
		return 1
	}
}

// PrintSummary writes the final results table.
func PrintSummary(w io.Writer, results []AttemptResult) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "\nSummary\n")

	challengeWidth := len("Challenge")
	modelWidth := len("Model")
	for _, r := range results {
		if len(r.Challenge) > challengeWidth {
			challengeWidth = len(r.Challenge)
		}
		if mw := len(truncateModel(r.Model)); mw > modelWidth {
			modelWidth = mw
		}
	}

	fmt.Fprintf(w, "  %-*s  %-*s  %s\n", challengeWidth, "Challenge", modelWidth, "Model", "Render")
	fmt.Fprintf(w, "  %s  %s  %s\n",
		strings.Repeat("-", challengeWidth),
		strings.Repeat("-", modelWidth),
		strings.Repeat("-", len("Render")))

	for _, r := range results {
		fmt.Fprintf(w, "  %-*s  %-*s  %s\n",
			challengeWidth, r.Challenge,
			modelWidth, truncateModel(r.Model),
			statusCell(r))
	}

	rendered := RenderedCount(results)
	bold.Fprintf(w, "\n  %d/%d attempts rendered\n", rendered, len(results))
}

func statusCell(r AttemptResult) string {
	switch {
	case r.RenderSuccess:
		return color.GreenString("✓ (%.1fs)", r.RenderTime.Seconds())
	case !r.APISuccess:
		return color.RedString("API ✗")
	default:
		return color.RedString("✗")
	}
}

func truncateModel(model string) string {
	if len(model) <= maxModelWidth {
		return model
	}
	return model[:maxModelWidth-3] + "..."
}
