package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/YuminosukeSato/studentperf/pipeline"
)

// printReport writes the per-model score table. rmse and mae are on the
// test set. The selected model is green;
// models below minScore are red.
func printReport(w io.Writer, res *pipeline.TrainResult, minScore float64) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	width := len("model")
	for _, e := range res.Report.Entries {
		if len(e.Name) > width {
			width = len(e.Name)
		}
	}

	fmt.Fprintln(w, cyan(fmt.Sprintf("%-*s  %9s  %9s  %9s  %9s  %9s",
		width, "model", "train r2", "cv r2", "test r2", "rmse", "mae")))
	fmt.Fprintln(w, strings.Repeat("-", width+55))
	for _, e := range res.Report.Entries {
		line := fmt.Sprintf("%-*s  %9.4f  %9.4f  %9.4f  %9.4f  %9.4f",
			width, e.Name, e.TrainScore, e.CVScore, e.TestScore, e.TestRMSE, e.TestMAE)
		switch {
		case pipeline.BelowMinScore(e.TestScore, minScore):
			line = red(line)
		case e.Name == res.BestName:
			line = green(line + "  *")
		}
		fmt.Fprintln(w, line)
	}
	if pipeline.BelowMinScore(res.BestScore, minScore) {
		fmt.Fprintln(w, red(fmt.Sprintf("no model reached r2 %.2f (best %s at %.4f)", minScore, res.BestName, res.BestScore)))
		return
	}
	fmt.Fprintf(w, "best: %s r2=%.4f run=%s\n", green(res.BestName), res.BestScore, res.RunID)
}
