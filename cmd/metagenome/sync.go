package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/metagenome/internal/ingest"
	"github.com/inodb/metagenome/internal/metagenome"
	"github.com/inodb/metagenome/internal/output"
)

func newSyncCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "sync [flags] <vcf>...",
		Short: "Synchronize the genomes of one or more VCF files",
		Long: `Load every sample of the given VCF files as a genome, synchronize all
chromosomes and print the meta-genome length of each chromosome together
with the bases each genome inserts.`,
		Example: `  metagenome sync family.vcf.gz
  metagenome sync -o summary.tsv mother.vcf father.vcf child.vcf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, results, err := loadAndSync(cmd.Context(), args)
			if err != nil {
				return err
			}
			return withOutput(outputFile, func(w io.Writer) error {
				return writeSummary(w, p, results)
			})
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// loadAndSync reads the files into a project and synchronizes every
// chromosome.
func loadAndSync(ctx context.Context, paths []string) (*metagenome.Project, []*metagenome.SyncResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	loader := ingest.NewLoader(viper.GetInt("ingest.workers"))
	loader.SetLogger(logger)

	p, sum, err := loader.LoadFiles(ctx, paths)
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(os.Stderr, "Loaded %s genomes from %s files: %s variants, %s observations, %s skipped\n",
		humanize.Comma(int64(sum.Genomes)),
		humanize.Comma(int64(sum.Files)),
		humanize.Comma(int64(sum.Variants)),
		humanize.Comma(int64(sum.Observations)),
		humanize.Comma(int64(sum.Skipped)))

	results, err := p.ComputeAll()
	if err != nil {
		return nil, nil, err
	}
	var inserted int64
	for _, r := range results {
		inserted += r.Inserted()
	}
	fmt.Fprintf(os.Stderr, "Synchronized %d chromosomes, %s bases inserted\n",
		len(results), humanize.Comma(inserted))
	return p, results, nil
}

func writeSummary(w io.Writer, p *metagenome.Project, results []*metagenome.SyncResult) error {
	sw := output.NewSummaryWriter(w)
	if err := sw.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range results {
		if err := sw.Write(r, p.Genomes()); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}
	return sw.Flush()
}

// withOutput runs fn against the named file, or stdout when name is empty.
func withOutput(name string, fn func(w io.Writer) error) error {
	if name == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
