package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/insight-layer/internal/utils"
	"github.com/spf13/cobra"
)

var (
	abOutDir  string
	abFormat  string
	abWorkers int
	abQuiet   bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV files with progress, one report per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := normalizeFormat(abFormat)
		if err := checkFormat(format); err != nil {
			return err
		}
		files, err := utils.ExpandInputs(args)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(abOutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		out := cmd.OutOrStdout()
		a := newAnalyzer(resolveWorkers(abWorkers, cmd.Flags().Changed("workers")))
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			rep, err := analyzeFile(cmd.Context(), a, path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			b, err := encodeReport(rep, format)
			if err != nil {
				return err
			}

			base := utils.BaseName(path)
			ext := formatExt(format)
			outFile := utils.UniquePath(abOutDir, base, ext)
			if filepath.Base(outFile) != base+ext && !abQuiet {
				fmt.Fprintf(out, "⚠ Detected existing report, writing to %s to avoid overwrite.\n", filepath.Base(outFile))
			}
			if err := utils.SafeWriteFile(outFile, b); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote analysis to %s\n", outFile)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "insight_reports", "directory for the per-file reports")
	analyzeBatchCmd.Flags().StringVar(&abFormat, "format", "markdown", "output format: json|yaml|markdown")
	analyzeBatchCmd.Flags().IntVar(&abWorkers, "workers", 0, "concurrent sub-analyses per file (0 = GOMAXPROCS; overrides config)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
