package reduce

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-analyze/charts"
	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff renders the original-to-reduced diff included in reports.
func unifiedDiff(original, reduced []byte) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(reduced)),
		FromFile: "original",
		ToFile:   "reduced",
		Context:  3,
	}
	if text, err := difflib.GetUnifiedDiffString(diff); err == nil {
		return text
	}
	return ""
}

// WriteReportFiles writes the JSON report and the progress chart to the given
// paths. Either path may be empty to skip that output.
func WriteReportFiles(report *ReductionReport, jsonPath, chartsPath string) error {
	if jsonPath != "" {
		blob, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report failed: %w", err)
		}
		if err := os.WriteFile(jsonPath, blob, 0644); err != nil {
			return fmt.Errorf("write report file failed: %w", err)
		}
	}
	if chartsPath != "" {
		if err := writeProgressChart(chartsPath, report); err != nil {
			return err
		}
	}
	return nil
}

// writeProgressChart renders source size per round as a line chart, output
// format chosen by the file extension.
func writeProgressChart(path string, report *ReductionReport) error {
	var outputType string
	if strings.HasSuffix(path, ".png") {
		outputType = charts.ChartOutputPNG
	} else if strings.HasSuffix(path, ".jpg") || strings.HasSuffix(path, ".jpeg") {
		outputType = charts.ChartOutputJPG
	} else if strings.HasSuffix(path, ".svg") {
		outputType = charts.ChartOutputSVG
	} else {
		return fmt.Errorf("unhandled chart file type: %s", path)
	}

	sizes := make([]float64, 0, len(report.Rounds)+1)
	labels := make([]string, 0, len(report.Rounds)+1)
	sizes = append(sizes, float64(report.OriginalSize))
	labels = append(labels, "start")
	for _, r := range report.Rounds {
		sizes = append(sizes, float64(r.Size))
		labels = append(labels, strconv.Itoa(r.Round))
	}

	opt := charts.NewLineChartOptionWithData([][]float64{sizes})
	opt.Title.Text = report.FileName + " bytes per round (" + report.Transformation + ")"
	opt.XAxis.Labels = labels
	opt.Legend.Show = charts.Ptr(false)

	p := charts.NewPainter(charts.PainterOptions{
		OutputFormat: outputType,
		Width:        1024,
		Height:       512,
	})
	if err := p.LineChart(opt); err != nil {
		return fmt.Errorf("render chart failed: %w", err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return fmt.Errorf("render chart failed: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write chart file failed: %w", err)
	}
	return nil
}
