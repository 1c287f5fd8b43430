package cmd

import (
	"fmt"

	"github.com/KaramelBytes/insight-layer/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaFormat     string
	anaWorkers    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a CSV file and print or write the insight report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := normalizeFormat(anaFormat)
		if err := checkFormat(format); err != nil {
			return err
		}
		a := newAnalyzer(resolveWorkers(anaWorkers, cmd.Flags().Changed("workers")))
		rep, err := analyzeFile(cmd.Context(), a, args[0])
		if err != nil {
			return err
		}
		out, err := encodeReport(rep, format)
		if err != nil {
			return err
		}
		if anaOutputPath == "" {
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		}
		if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "json", "output format: json|yaml|markdown")
	analyzeCmd.Flags().IntVar(&anaWorkers, "workers", 0, "concurrent sub-analyses (0 = GOMAXPROCS; overrides config)")
}
