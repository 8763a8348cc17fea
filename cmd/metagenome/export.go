package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/metagenome/internal/duckdb"
)

func newExportCmd() *cobra.Command {
	var (
		dbPath string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "export [flags] <vcf>...",
		Short: "Export synchronized tracks and offsets to DuckDB",
		Long: `Synchronize the given VCF files and write every placed variant, every
tracker offset and the meta-genome length of each chromosome to a DuckDB
database. An export of the same unchanged files is reused unless --force
is given.`,
		Example: `  metagenome export -o family.duckdb family.vcf.gz
  metagenome export --force -o cohort.duckdb a.vcf b.vcf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return usagef("--output is required")
			}

			files, err := duckdb.StatFiles(args)
			if err != nil {
				return err
			}

			store, err := duckdb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if !force {
				id, ok, err := store.FindRun(files)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintf(os.Stderr, "Export %s already holds these files, use --force to export again\n", id)
					return nil
				}
			}

			p, results, err := loadAndSync(cmd.Context(), args)
			if err != nil {
				return err
			}

			run, err := store.NewRun(p.Genomes(), files)
			if err != nil {
				return err
			}
			var tracks int
			for _, r := range results {
				if err := store.ExportChromosome(run, p, r.Chromosome); err != nil {
					// Leave no partial run behind.
					if derr := store.DeleteRun(run); derr != nil {
						logger.Warn("removing partial export", zap.String("run", run), zap.Error(derr))
					}
					return fmt.Errorf("exporting %s: %w", r.Chromosome, err)
				}
				for _, g := range p.Genomes() {
					tracks += len(r.Offsets[g])
				}
			}

			logger.Info("exported run",
				zap.String("run", run),
				zap.String("path", dbPath),
				zap.Int("chromosomes", len(results)))
			fmt.Fprintf(os.Stderr, "Exported run %s: %d chromosomes, %s tracker entries to %s\n",
				run, len(results), humanize.Comma(int64(tracks)), dbPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dbPath, "output", "o", "", "DuckDB database to write (required)")
	cmd.Flags().BoolVar(&force, "force", false, "Export even if the same files were exported before")

	return cmd
}
