package banner

import (
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

// Print writes the startup banner with the run id and base directory.
func Print(w io.Writer, version, runID, baseDir string) {
	fig := figure.NewColorFigure("MAINURL", "doom", "cyan", true)
	_, _ = io.WriteString(w, fig.ColorString())

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
	_, _ = green.Fprintf(w, "    mainurlhunter %s | run %s\n", version, runID)
	_, _ = green.Fprintf(w, "    plugins: %s\n", baseDir)
	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
}
