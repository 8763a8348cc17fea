package ingest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/metagenome/internal/metagenome"
	"github.com/inodb/metagenome/internal/vcf"
)

// File is the classified content of one VCF file.
type File struct {
	Path     string
	Genomes  []string
	Contigs  []vcf.Contig
	Records  []Record
	MaxPos   map[string]int64 // largest position seen per chromosome
	Variants int              // data lines read
	Skipped  int              // data lines that produced nothing usable
}

// Summary describes a LoadFiles run.
type Summary struct {
	Files        int
	Genomes      int
	Variants     int
	Observations int
	Skipped      int
}

// Loader reads VCF files into a project.
type Loader struct {
	workers int
	logger  *zap.Logger
}

// NewLoader creates a loader classifying with the given number of workers
// per file. Zero uses one worker per CPU.
func NewLoader(workers int) *Loader {
	return &Loader{workers: workers, logger: zap.NewNop()}
}

// SetLogger sets the logger for warning and info messages.
func (l *Loader) SetLogger(log *zap.Logger) {
	l.logger = log
}

// GenomeName derives a genome name from a file path for files without
// sample columns.
func GenomeName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".gz", ".bgz", ".vcf"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// ReadFile parses and classifies one file, keeping record order.
func (l *Loader) ReadFile(ctx context.Context, path string) (*File, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	c := NewClassifier(p.SampleNames(), GenomeName(path))
	c.SetLogger(l.logger)

	f := &File{
		Path:    path,
		Genomes: c.Genomes(),
		Contigs: p.Contigs(),
		MaxPos:  make(map[string]int64),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan dataLine, 64)
	var readErr error
	go func() {
		defer close(lines)
		for seq := 0; ; seq++ {
			v, err := p.Next()
			if err != nil {
				var pe *vcf.ParseError
				if !errors.As(err, &pe) {
					readErr = err
					return
				}
				l.logger.Warn("skipping malformed line",
					zap.String("file", path),
					zap.Int("line", pe.Line),
					zap.String("reason", pe.Message))
			} else if v == nil {
				return
			}
			select {
			case lines <- dataLine{seq: seq, variant: v}:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := f.gather(ctx, c.classifyLines(ctx, lines, l.workers)); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	// The reader has exited once the results channel is closed.
	if readErr != nil {
		return nil, fmt.Errorf("read %s: %w", path, readErr)
	}

	l.logger.Info("read variant file",
		zap.String("file", path),
		zap.Int("genomes", len(f.Genomes)),
		zap.Int("variants", f.Variants),
		zap.Int("observations", len(f.Records)),
		zap.Int("skipped", f.Skipped))
	return f, nil
}

// LoadFiles reads files concurrently and builds a project from them. Every
// sample of every file becomes a genome; names must be unique across
// files. Chromosome lengths come from ##contig headers, or the largest
// position seen plus one.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) (*metagenome.Project, *Summary, error) {
	files := make([]*File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := l.ReadFile(gctx, path)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	p, sum, err := l.Build(files)
	if err != nil {
		return nil, nil, err
	}
	return p, sum, nil
}

// Build creates a project from classified files.
func (l *Loader) Build(files []*File) (*metagenome.Project, *Summary, error) {
	var genomes []string
	for _, f := range files {
		genomes = append(genomes, f.Genomes...)
	}
	p, err := metagenome.NewProject(genomes)
	if err != nil {
		return nil, nil, err
	}
	p.SetLogger(l.logger)

	declared := make(map[string]bool)
	for _, f := range files {
		for _, c := range f.Contigs {
			if c.Length > 0 {
				name := normalizeChrom(c.Name)
				p.AddChromosome(name, c.Length)
				declared[name] = true
			}
		}
	}
	observed := make(map[string]int64)
	for _, f := range files {
		for chrom, pos := range f.MaxPos {
			if !declared[chrom] {
				observed[chrom] = max(observed[chrom], pos+1)
			}
		}
	}
	for _, chrom := range slices.Sorted(maps.Keys(observed)) {
		p.AddChromosome(chrom, observed[chrom])
	}

	sum := &Summary{Files: len(files), Genomes: len(genomes)}
	for _, f := range files {
		sum.Variants += f.Variants
		sum.Skipped += f.Skipped
		for _, r := range f.Records {
			if err := p.Add(r.Genome, r.Obs); err != nil {
				l.logger.Warn("skipping observation",
					zap.String("file", f.Path),
					zap.String("genome", r.Genome),
					zap.Error(err))
				sum.Skipped++
				continue
			}
			sum.Observations++
		}
	}
	return p, sum, nil
}

func normalizeChrom(name string) string {
	v := vcf.Variant{Chrom: name}
	return v.NormalizeChrom()
}
