package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/funnel"
	"github.com/sells-group/disclosure-cli/internal/metric"
	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/oracle"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Run a single classifier stage over chunk files",
	Long: `Runs one funnel stage (relatedness, specificity, sentiment, commitment or
category) over every segment of each company, without the relatedness
filter, and prints the stage counts and score per company.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		taskName, _ := cmd.Flags().GetString("task")
		task, err := model.ParseTask(taskName)
		if err != nil {
			return err
		}
		chunks, _ := cmd.Flags().GetString("chunks")
		if chunks == "" {
			chunks = cfg.Scrape.OutDir
		}
		out, _ := cmd.Flags().GetString("out")
		if offline, _ := cmd.Flags().GetBool("offline"); offline {
			cfg.Oracle.Provider = "lexicon"
		}

		docs, err := loadDocuments(chunks)
		if err != nil {
			return err
		}
		factory, err := oracle.NewFactory(cfg.Oracle)
		if err != nil {
			return err
		}
		o, err := factory.For(task, cfg.Stage(task).Model)
		if err != nil {
			return err
		}
		st, err := funnel.NewStage(funnel.FromConfig(cfg, task), o)
		if err != nil {
			return err
		}

		header, rows := scoreStage(cmd.Context(), st, docs)
		return writeCSVFile(out, header, rows)
	},
}

// scoreStage runs st over each document and renders one row per entity.
// Entities whose stage fails are logged and omitted.
func scoreStage(ctx context.Context, st *funnel.Stage, docs []model.Document) ([]string, [][]string) {
	task := st.Task()
	labels := task.Labels()

	header := []string{"ticker", "period", "evaluated", "confident", "weighted", "score"}
	for _, l := range labels {
		header = append(header, string(l))
	}

	var rows [][]string
	for _, d := range docs {
		res, err := st.Run(ctx, d.Segments)
		if err != nil {
			zap.L().Error("score: entity failed",
				zap.String("entity", d.Entity),
				zap.String("task", string(task)),
				zap.Error(err),
			)
			continue
		}
		row := []string{
			d.Entity,
			d.Period,
			strconv.Itoa(res.Evaluated),
			strconv.Itoa(res.ConfidentTotal),
			formatFloat(res.WeightedCount),
			formatFloat(stageScore(st, res)),
		}
		for _, l := range labels {
			row = append(row, strconv.Itoa(res.Count(l)))
		}
		rows = append(rows, row)
	}
	return header, rows
}

// stageScore is the headline number for one stage: the severity score for
// sentiment, the dominant category share for category and the binary rate
// otherwise.
func stageScore(st *funnel.Stage, res *model.FunnelResult) float64 {
	switch st.Task() {
	case model.TaskSentiment:
		return metric.SeverityScore(res, st.Config().MaxWeight())
	case model.TaskCategory:
		best := 0.0
		for _, s := range metric.Distribution(res.LabelCounts, model.CategoryLabels()) {
			best = max(best, s)
		}
		return best
	default:
		return metric.BinaryRate(res)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func init() {
	scoreCmd.Flags().String("task", "", "stage to run (relatedness, specificity, sentiment, commitment, category)")
	scoreCmd.Flags().String("chunks", "", "chunk directory or single chunk file (defaults to scrape.out_dir)")
	scoreCmd.Flags().String("out", "-", "output CSV (- for stdout)")
	scoreCmd.Flags().Bool("offline", false, "use the local lexicon oracle instead of a remote provider")
	_ = scoreCmd.MarkFlagRequired("task")
	rootCmd.AddCommand(scoreCmd)
}
