package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/insight-layer/internal/analysis"
	"github.com/KaramelBytes/insight-layer/internal/dataset"
	"github.com/KaramelBytes/insight-layer/internal/server"
	"github.com/KaramelBytes/insight-layer/internal/utils"
)

// readDataset applies the same acceptance rules as the upload endpoint.
func readDataset(path string) (*dataset.Dataset, error) {
	if err := dataset.CheckName(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return dataset.Load(filepath.Base(path), data)
}

// cliLogger is a console logger at debug level when --debug is set and a
// no-op otherwise.
func cliLogger() *zap.Logger {
	if !debug {
		return zap.NewNop()
	}
	l, err := server.NewLogger("debug", "console")
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func newAnalyzer(workers int) *analysis.Analyzer {
	return analysis.New(analysis.DefaultConfig(),
		analysis.WithLogger(cliLogger()),
		analysis.WithWorkers(workers))
}

// resolveWorkers prefers an explicit flag over the configured value.
func resolveWorkers(flag int, changed bool) int {
	if changed {
		return flag
	}
	if c, err := requireConfig(); err == nil {
		return c.Workers
	}
	return 0
}

func analyzeFile(ctx context.Context, a *analysis.Analyzer, path string) (*analysis.Report, error) {
	ds, err := readDataset(path)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, ds)
}

func checkFormat(format string) error {
	switch format {
	case "json", "yaml", "markdown", "md":
		return nil
	}
	return fmt.Errorf("unsupported --format: %s (use json|yaml|markdown)", format)
}

// encodeReport renders rep as json, yaml or markdown.
func encodeReport(rep *analysis.Report, format string) ([]byte, error) {
	switch format {
	case "json":
		return utils.PrettyJSON(rep)
	case "yaml":
		b, err := yaml.Marshal(rep)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	case "markdown", "md":
		return []byte(rep.Markdown()), nil
	default:
		return nil, checkFormat(format)
	}
}

func normalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

// formatExt is the output file suffix for format.
func formatExt(format string) string {
	switch format {
	case "yaml":
		return ".yaml"
	case "markdown", "md":
		return ".summary.md"
	default:
		return ".json"
	}
}
