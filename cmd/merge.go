package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/disclosure-cli/internal/merge"
	"github.com/sells-group/disclosure-cli/internal/model"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Join metric rows with ESG scores and emissions",
	Long: `Deduplicates the metric rows by ticker, inner-joins them with the ESG
reference table and left-joins the emissions table. Metric rows come from a
CSV (--metrics) or from a recorded run (--run-id).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		metricsPath, _ := cmd.Flags().GetString("metrics")
		runID, _ := cmd.Flags().GetString("run-id")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Merge.Output
		}
		if v, _ := cmd.Flags().GetString("esg"); v != "" {
			cfg.Merge.ESGPath = v
		}
		if v, _ := cmd.Flags().GetString("emissions"); v != "" {
			cfg.Merge.EmissionsPath = v
		}
		if v, _ := cmd.Flags().GetString("policy"); v != "" {
			cfg.Merge.DuplicatePolicy = v
		}

		var rows []model.EntityMetricRow
		switch {
		case metricsPath != "" && runID != "":
			return eris.New("merge: --metrics and --run-id are mutually exclusive")
		case metricsPath != "":
			f, err := os.Open(metricsPath)
			if err != nil {
				return eris.Wrapf(err, "merge: open %s", metricsPath)
			}
			rows, err = merge.ReadMetricsCSV(f)
			f.Close() //nolint:errcheck
			if err != nil {
				return err
			}
		case runID != "":
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if _, err := st.GetRun(ctx, runID); err != nil {
				return eris.Wrap(err, "merge: load run")
			}
			if rows, err = st.ListEntityMetrics(ctx, runID); err != nil {
				return eris.Wrap(err, "merge: load metrics")
			}
		default:
			return eris.New("merge: one of --metrics or --run-id is required")
		}

		return mergeAndWrite(rows, out)
	},
}

// mergeAndWrite joins rows with the reference tables named in cfg.Merge
// and writes the result to out. Reference tables are loaded, and their key
// columns checked, before any join.
func mergeAndWrite(rows []model.EntityMetricRow, out string) error {
	policy, err := merge.ParsePolicy(cfg.Merge.DuplicatePolicy)
	if err != nil {
		return err
	}

	var esg, emissions *merge.Table
	if cfg.Merge.ESGPath != "" {
		t, err := merge.LoadReference(cfg.Merge.ESGPath, cfg.Merge.KeyColumns, cfg.Merge.ESGColumns)
		if err != nil {
			return err
		}
		esg = &t
	}
	if cfg.Merge.EmissionsPath != "" {
		t, err := merge.LoadReference(cfg.Merge.EmissionsPath, cfg.Merge.KeyColumns, cfg.Merge.EmissionsColumns)
		if err != nil {
			return err
		}
		emissions = &t
	}

	merged, err := merge.Merge(rows, esg, emissions, merge.Options{Policy: policy})
	if err != nil {
		return err
	}

	w, err := createOutput(out)
	if err != nil {
		return err
	}
	if err := merge.WriteCSV(w, merged); err != nil {
		w.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(w.Close(), "merge: close %s", out)
}

func init() {
	mergeCmd.Flags().String("metrics", "", "metric rows CSV")
	mergeCmd.Flags().String("run-id", "", "read metric rows from a recorded run")
	mergeCmd.Flags().String("esg", "", "ESG reference table, CSV or XLSX (defaults to merge.esg_path)")
	mergeCmd.Flags().String("emissions", "", "emissions reference table, CSV or XLSX (defaults to merge.emissions_path)")
	mergeCmd.Flags().String("policy", "", "duplicate key policy: first or last (defaults to merge.duplicate_policy)")
	mergeCmd.Flags().String("out", "", "output CSV (defaults to merge.output, - for stdout)")
	rootCmd.AddCommand(mergeCmd)
}
