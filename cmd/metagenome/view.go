package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/metagenome/internal/display"
	"github.com/inodb/metagenome/internal/metagenome"
	"github.com/inodb/metagenome/internal/output"
)

type viewOptions struct {
	chrom      string
	genomes    []string
	allele     int
	start      int64
	stop       int64
	types      []string
	fields     []string
	snapshots  string
	outputFile string
}

func newViewCmd() *cobra.Command {
	var opts viewOptions

	cmd := &cobra.Command{
		Use:   "view [flags] <vcf>...",
		Short: "Print the fitted variants of a meta-genome window",
		Long: `Synchronize the given VCF files and print, per genome and allele, the
variants intersecting a closed meta-genome window. At a pixel ratio below
one, variants closer than one pixel are merged into MIX items.`,
		Example: `  metagenome view --chrom 1 --start 1000 --stop 2000 family.vcf.gz
  metagenome view --chrom 1 --ratio 0.01 --pass-only --genome CHILD *.vcf
  metagenome view --chrom 1 --snapshots cache/ family.vcf.gz`,
		Args: cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for key, flag := range map[string]string{
				"display.show_filtered":  "show-filtered",
				"display.show_reference": "show-reference",
				"display.min_quality":    "min-quality",
				"display.pass_only":      "pass-only",
				"view.ratio":             "ratio",
			} {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, args, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.chrom, "chrom", "", "Chromosome to view (required)")
	f.StringSliceVar(&opts.genomes, "genome", nil, "Genomes to view (default: all)")
	f.IntVar(&opts.allele, "allele", -1, "Allele to view: 0, 1, or -1 for both")
	f.Int64Var(&opts.start, "start", 0, "First meta-genome position of the window")
	f.Int64Var(&opts.stop, "stop", -1, "Last meta-genome position of the window (default: end of chromosome)")
	f.StringSliceVar(&opts.types, "type", nil, "Variant types to keep, e.g. SNP,INSERTION (default: all)")
	f.StringSliceVar(&opts.fields, "field", nil, "Require a FORMAT field value, as KEY=VALUE")
	f.StringVar(&opts.snapshots, "snapshots", "", "Directory of display list snapshots to reuse and refresh")
	f.StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: stdout)")
	f.Float64("ratio", 1, "Pixels per base; below 1 nearby variants are merged")
	f.Float64("min-quality", 0, "Filter calls below this quality")
	f.Bool("pass-only", false, "Filter calls whose FILTER is not PASS")
	f.Bool("show-filtered", true, "Show filtered calls")
	f.Bool("show-reference", true, "Show homozygous reference calls")
	_ = cmd.MarkFlagRequired("chrom")

	return cmd
}

func runView(cmd *cobra.Command, args []string, opts *viewOptions) error {
	if opts.allele < -1 || opts.allele >= metagenome.Alleles {
		return usagef("--allele must be 0, 1 or -1, got %d", opts.allele)
	}
	ratio := viper.GetFloat64("view.ratio")
	if !(ratio > 0) || math.IsInf(ratio, 1) {
		return usagef("--ratio must be a positive number, got %g", ratio)
	}
	types, err := parseTypes(opts.types)
	if err != nil {
		return usagef("%v", err)
	}
	filters, err := buildFilters(viper.GetFloat64("display.min_quality"), viper.GetBool("display.pass_only"), opts.fields)
	if err != nil {
		return usagef("%v", err)
	}

	p, _, err := loadAndSync(cmd.Context(), args)
	if err != nil {
		return err
	}
	chrom := opts.chrom
	if _, ok := p.Chromosome(chrom); !ok {
		chrom = strings.TrimPrefix(chrom, "chr")
	}
	metaLen, err := p.MetaLength(chrom)
	if err != nil {
		return err
	}
	stop := opts.stop
	// Meta coordinates are 1-based, the last base is metaLen.
	if stop < 0 {
		stop = metaLen
	}
	if stop < opts.start {
		return usagef("--stop %d is before --start %d", stop, opts.start)
	}

	genomes := opts.genomes
	if len(genomes) == 0 {
		genomes = p.Genomes()
	}

	showFiltered := viper.GetBool("display.show_filtered")
	showReference := viper.GetBool("display.show_reference")

	lists := make([]*display.List, 0, len(genomes))
	for _, g := range genomes {
		if !p.HasGenome(g) {
			return fmt.Errorf("%w: %q", metagenome.ErrUnknownGenome, g)
		}
		l, err := openList(p, g, chrom, types, opts.snapshots)
		if err != nil {
			return err
		}
		l.UpdateDisplay(filters, showFiltered)
		l.UpdateDisplayForOption(showReference, showFiltered)
		lists = append(lists, l)
	}

	return withOutput(opts.outputFile, func(w io.Writer) error {
		return writeView(w, lists, opts.allele, opts.start, stop, ratio)
	})
}

// openList builds the display list of a genome, reusing a snapshot from dir
// when one exists and writing a fresh one otherwise. A snapshot that cannot
// be read is replaced.
func openList(p *metagenome.Project, genome, chrom string, types []metagenome.VariantType, dir string) (*display.List, error) {
	if dir == "" {
		l, err := display.Build(p, genome, chrom, types...)
		if err != nil {
			return nil, err
		}
		l.SetLogger(logger)
		return l, nil
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.%s.snap.gz", genome, chrom))
	l, regenerated, err := display.ReadSnapshotFile(path, p)
	switch {
	case err == nil && slices.Equal(l.Types, types):
		l.SetLogger(logger)
		logger.Debug("loaded display snapshot",
			zap.String("path", path),
			zap.Bool("regenerated", regenerated))
		if !regenerated {
			return l, nil
		}
	default:
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("rebuilding unreadable display snapshot",
				zap.String("path", path), zap.Error(err))
		}
		l, err = display.Build(p, genome, chrom, types...)
		if err != nil {
			return nil, err
		}
		l.SetLogger(logger)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := display.WriteSnapshotFile(path, l); err != nil {
		return nil, err
	}
	logger.Info("wrote display snapshot", zap.String("path", path))
	return l, nil
}

func writeView(w io.Writer, lists []*display.List, allele int, start, stop int64, ratio float64) error {
	tw := output.NewTabWriter(w)
	if err := tw.WriteHeader(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, l := range lists {
		for a := 0; a < metagenome.Alleles; a++ {
			if allele >= 0 && a != allele {
				continue
			}
			states := stateIndex(l, a)
			for _, it := range l.FittedData(start, stop, ratio, a) {
				state := ""
				if !it.IsMix() {
					state = states[it.Variant].String()
				}
				if err := tw.Write(it, state); err != nil {
					return fmt.Errorf("writing item: %w", err)
				}
			}
		}
	}
	return tw.Flush()
}

func stateIndex(l *display.List, allele int) map[*metagenome.Variant]display.DisplayState {
	vs, states := l.Variants(allele), l.States(allele)
	idx := make(map[*metagenome.Variant]display.DisplayState, len(vs))
	for i, v := range vs {
		idx[v] = states[i]
	}
	return idx
}

func parseTypes(names []string) ([]metagenome.VariantType, error) {
	var types []metagenome.VariantType
	for _, n := range names {
		t, err := metagenome.ParseVariantType(strings.ToUpper(strings.TrimSpace(n)))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func buildFilters(minQuality float64, passOnly bool, fields []string) ([]display.Filter, error) {
	var filters []display.Filter
	if minQuality > 0 {
		filters = append(filters, display.QualityFilter{Min: minQuality})
	}
	if passOnly {
		filters = append(filters, display.PassFilter{})
	}
	for _, kv := range fields {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field filter %q, want KEY=VALUE", kv)
		}
		filters = append(filters, display.FieldFilter{Key: key, Value: value})
	}
	return filters, nil
}
