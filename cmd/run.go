package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/oracle"
	"github.com/sells-group/disclosure-cli/internal/pipeline"
	"github.com/sells-group/disclosure-cli/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score every company in a chunk dataset",
	Long: `Runs the relatedness filter and the specificity, sentiment, commitment and
category stages over each company's segments, writes one metric row per
company and records the run in the store. Companies that fail are logged and
left out of the output.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		chunks, _ := cmd.Flags().GetString("chunks")
		if chunks == "" {
			chunks = cfg.Scrape.OutDir
		}
		out, _ := cmd.Flags().GetString("out")
		offline, _ := cmd.Flags().GetBool("offline")
		doMerge, _ := cmd.Flags().GetBool("merge")
		if dump, _ := cmd.Flags().GetString("dump-dir"); dump != "" {
			cfg.Funnel.DumpDir = dump
		}
		if offline {
			cfg.Oracle.Provider = "lexicon"
		}

		docs, err := loadDocuments(chunks)
		if err != nil {
			return err
		}
		p, err := buildPipeline()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, rows, err := scoreDataset(ctx, st, p, chunks, docs)
		if err != nil {
			return err
		}
		if err := writeMetricsCSV(out, rows); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "run %s: %d scored, %d failed\n", truncateID(run.ID), run.Entities-run.Failed, run.Failed)

		if doMerge {
			return mergeAndWrite(rows, cfg.Merge.Output)
		}
		return nil
	},
}

func buildPipeline() (*pipeline.Pipeline, error) {
	factory, err := oracle.NewFactory(cfg.Oracle)
	if err != nil {
		return nil, err
	}
	return pipeline.FromConfig(cfg, factory)
}

// scoreDataset runs the pipeline over docs inside a recorded run. The run is
// marked failed only when every entity failed.
func scoreDataset(ctx context.Context, st store.Store, p *pipeline.Pipeline, source string, docs []model.Document) (*model.Run, []model.EntityMetricRow, error) {
	run, err := st.CreateRun(ctx, source)
	if err != nil {
		return nil, nil, eris.Wrap(err, "run: create run")
	}
	log := zap.L().With(zap.String("run_id", run.ID))

	outcomes, sum := p.Batch(ctx, docs, cfg.Batch.MaxConcurrentEntities)
	rows := pipeline.Rows(outcomes)

	status := model.RunStatusComplete
	if sum.Failed > 0 && sum.Succeeded == 0 {
		status = model.RunStatusFailed
	}

	if err := st.SaveEntityMetrics(ctx, run.ID, rows); err != nil {
		status = model.RunStatusFailed
		if ferr := st.FinishRun(ctx, run.ID, status, len(docs), sum.Failed); ferr != nil {
			log.Warn("run: finish after save failure", zap.Error(ferr))
		}
		return nil, nil, eris.Wrap(err, "run: save metrics")
	}
	if err := st.FinishRun(ctx, run.ID, status, len(docs), sum.Failed); err != nil {
		return nil, nil, eris.Wrap(err, "run: finish run")
	}

	run.Status = status
	run.Entities = len(docs)
	run.Failed = sum.Failed
	log.Info("run: complete",
		zap.String("status", string(status)),
		zap.Int("entities", run.Entities),
		zap.Int("failed", run.Failed),
		zap.Int("circuit_open", sum.CircuitOpen),
	)
	return run, rows, nil
}

func writeMetricsCSV(path string, rows []model.EntityMetricRow) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = r.Values()
	}
	return writeCSVFile(path, model.MetricColumns, records)
}

func init() {
	runCmd.Flags().String("chunks", "", "chunk directory or single chunk file (defaults to scrape.out_dir)")
	runCmd.Flags().String("out", "metrics.csv", "metric rows CSV (- for stdout)")
	runCmd.Flags().Bool("offline", false, "use the local lexicon oracle instead of a remote provider")
	runCmd.Flags().Bool("merge", false, "also merge the rows with the configured reference tables")
	runCmd.Flags().String("dump-dir", "", "write each stage's forwarded segments here")
	rootCmd.AddCommand(runCmd)
}
