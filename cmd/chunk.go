package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/chunk"
	"github.com/sells-group/disclosure-cli/internal/model"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Split a reports CSV into sentence-aligned segments",
	Long: `Reads a reports CSV with one document per row, splits each row's text into
segments and writes the grouped dataset (one blank line between companies).
With --out-dir every company is also written as <TICKER>_<YEAR>_chunks.txt.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")
		dataset, _ := cmd.Flags().GetString("dataset")
		sample, _ := cmd.Flags().GetString("sample")
		sampleSize, _ := cmd.Flags().GetInt("sample-size")
		outDir, _ := cmd.Flags().GetString("out-dir")
		period, _ := cmd.Flags().GetString("period")

		if !cmd.Flags().Changed("sample-size") {
			sampleSize = cfg.Chunk.SampleSize
		}
		return runChunk(cmd, chunkJob{
			Input:      input,
			Dataset:    dataset,
			Sample:     sample,
			SampleSize: sampleSize,
			OutDir:     outDir,
			Period:     period,
		})
	},
}

type chunkJob struct {
	Input      string
	Dataset    string
	Sample     string
	SampleSize int
	OutDir     string
	Period     string
}

func runChunk(cmd *cobra.Command, job chunkJob) error {
	f, err := os.Open(job.Input)
	if err != nil {
		return eris.Wrapf(err, "chunk: open %s", job.Input)
	}
	defer f.Close() //nolint:errcheck

	docs, err := chunk.ReadReportsCSV(cmd.Context(), f, chunk.ReportsOptions{
		KeyColumn:    cfg.Chunk.KeyColumn,
		TextColumn:   cfg.Chunk.TextColumn,
		PeriodColumn: cfg.Chunk.PeriodColumn,
		Width:        cfg.Chunk.Width,
	})
	if err != nil {
		return err
	}
	for i := range docs {
		if docs[i].Period == "" {
			docs[i].Period = job.Period
		}
	}

	if job.Dataset != "" {
		if err := chunk.WriteDataset(job.Dataset, docs); err != nil {
			return err
		}
	}
	if job.Sample != "" && job.SampleSize > 0 {
		n := min(job.SampleSize, len(docs))
		if err := chunk.WriteDataset(job.Sample, docs[:n]); err != nil {
			return err
		}
	}

	var written int
	if job.OutDir != "" {
		for _, d := range docs {
			if d.Entity == "" || len(d.Segments) == 0 {
				continue
			}
			stampDocument(&d)
			if _, err := chunk.WriteChunkFile(job.OutDir, d); err != nil {
				return err
			}
			written++
		}
	}

	zap.L().Info("chunk: complete",
		zap.String("input", job.Input),
		zap.Int("documents", len(docs)),
		zap.Int("chunk_files", written),
	)
	return nil
}

// stampDocument propagates the document's entity and period to its segments.
func stampDocument(d *model.Document) {
	for i := range d.Segments {
		d.Segments[i].Entity, d.Segments[i].Period = d.Entity, d.Period
	}
}

func init() {
	chunkCmd.Flags().String("input", "", "reports CSV with a ticker and text column")
	chunkCmd.Flags().String("dataset", "chunks.txt", "grouped dataset output path (empty to skip)")
	chunkCmd.Flags().String("sample", "", "write the first --sample-size companies here")
	chunkCmd.Flags().Int("sample-size", 5, "number of companies in the sample dataset")
	chunkCmd.Flags().String("out-dir", "", "also write one chunk file per company to this directory")
	chunkCmd.Flags().String("period", "2024", "reporting period when the CSV has no period column")
	_ = chunkCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(chunkCmd)
}
