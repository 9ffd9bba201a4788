package reporting

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format names accepted by WriteFiles.
const (
	FormatMarkdown = "markdown"
	FormatYAML     = "yaml"
	FormatCSV      = "csv"
	FormatHTML     = "html"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format")

// WriteFiles renders r in each format into dir and returns the written
// paths. csv writes trades.csv, daily.csv and results.csv.
func WriteFiles(dir string, r *Report, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var written []string
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}

	for _, format := range formats {
		var err error
		switch strings.ToLower(strings.TrimSpace(format)) {
		case FormatMarkdown:
			err = write("report.md", []byte(RenderMarkdown(r)))
		case FormatYAML:
			var out []byte
			if out, err = RenderYAML(r); err == nil {
				err = write("summary.yaml", out)
			}
		case FormatCSV:
			err = writeCSVs(r, write)
		case FormatHTML:
			var buf bytes.Buffer
			err = RenderCharts(&buf, r)
			if errors.Is(err, ErrNothingToPlot) {
				continue
			}
			if err == nil {
				err = write("charts.html", buf.Bytes())
			}
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
		}
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func writeCSVs(r *Report, write func(string, []byte) error) error {
	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, r.Trades); err != nil {
		return err
	}
	if err := write("trades.csv", buf.Bytes()); err != nil {
		return err
	}

	buf.Reset()
	if err := WriteDailyCSV(&buf, r.Daily); err != nil {
		return err
	}
	if err := write("daily.csv", buf.Bytes()); err != nil {
		return err
	}

	if r.Summary == nil {
		return nil
	}
	buf.Reset()
	if err := WriteResultsCSV(&buf, r.Summary); err != nil {
		return err
	}
	return write("results.csv", buf.Bytes())
}
