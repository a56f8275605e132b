package pipeline

import (
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// SaveReportPlot renders the test R² of every report entry as a bar chart.
// The image format follows the file extension (png, svg, pdf, ...).
func SaveReportPlot(r *Report, path string) error {
	if len(r.Entries) == 0 {
		return errors.NewValueError("pipeline.SaveReportPlot", "empty report")
	}

	values := make(plotter.Values, len(r.Entries))
	names := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		values[i] = e.TestScore
		names[i] = e.Name
	}

	p := plot.New()
	p.Title.Text = "Test R² by model"
	p.Y.Label.Text = "R²"

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return errors.Wrap(err, "pipeline.SaveReportPlot")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.Add(plotter.NewGrid())

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewIOFailureError("pipeline.SaveReportPlot", path, err)
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.NewIOFailureError("pipeline.SaveReportPlot", path, err)
	}
	return nil
}
