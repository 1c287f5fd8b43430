package cmd

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"

	"github.com/KaramelBytes/insight-layer/internal/analysis"
	"github.com/KaramelBytes/insight-layer/internal/dataset"
	"github.com/KaramelBytes/insight-layer/internal/utils"
	"github.com/spf13/cobra"
)

var recOutputPath string

var recordsCmd = &cobra.Command{
	Use:   "records <file>",
	Short: "Export the canonical long form (batch,time,variable,value) as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := readDataset(args[0])
		if err != nil {
			return err
		}
		b, err := encodeRecords(ds)
		if err != nil {
			return err
		}
		if recOutputPath == "" {
			_, err := cmd.OutOrStdout().Write(b)
			return err
		}
		if err := utils.SafeWriteFile(recOutputPath, b); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote records to %s\n", recOutputPath)
		return nil
	},
}

func encodeRecords(ds *dataset.Dataset) ([]byte, error) {
	work := ds.Clone()
	f := analysis.Canonicalize(analysis.InferRoles(analysis.DefaultConfig(), work), work)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"batch", "time", "variable", "value"}); err != nil {
		return nil, err
	}
	for _, r := range f.Records() {
		row := []string{r.Batch, formatCell(r.Time), r.Variable, formatCell(r.Value)}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// formatCell leaves missing values empty.
func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.Flags().StringVarP(&recOutputPath, "output", "o", "", "write CSV to a file instead of stdout")
}
