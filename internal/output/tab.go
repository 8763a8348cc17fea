// Package output provides tab-delimited formatters for synchronization
// summaries and fitted display items.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/metagenome/internal/display"
	"github.com/inodb/metagenome/internal/metagenome"
)

// TabWriter writes fitted display items in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Genome",
			"Chrom",
			"Allele",
			"Type",
			"Meta_start",
			"Meta_stop",
			"Ref_pos",
			"Length",
			"Dead_zone",
			"Merged",
			"Filter",
			"QUAL",
			"GT",
			"Display",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single fitted item. state is the display state of the
// underlying variant; merged items report "-".
func (tw *TabWriter) Write(item display.DisplayItem, state string) error {
	v := item.Variant

	filter, qual, gt := "-", "-", "-"
	if v.Call != nil {
		filter = orDash(v.Call.Filter)
		qual = strconv.FormatFloat(v.Call.Quality, 'f', -1, 64)
		gt = orDash(v.Call.Genotype)
	}

	deadZone := "-"
	if v.Type == metagenome.Insertion && v.ExtraOffset > 0 {
		deadZone = strconv.FormatInt(v.ExtraOffset, 10)
	}

	values := []string{
		orDash(v.Genome),
		v.Chrom,
		strconv.Itoa(v.Allele),
		v.Type.String(),
		strconv.FormatInt(v.Start, 10),
		strconv.FormatInt(v.Stop, 10),
		strconv.FormatInt(v.RefPos, 10),
		strconv.FormatInt(v.Length, 10),
		deadZone,
		strconv.Itoa(item.Count),
		filter,
		qual,
		gt,
		orDash(state),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// SummaryWriter writes one row per synchronized chromosome and genome.
type SummaryWriter struct {
	w *bufio.Writer
}

// NewSummaryWriter creates a summary writer.
func NewSummaryWriter(w io.Writer) *SummaryWriter {
	return &SummaryWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (sw *SummaryWriter) WriteHeader() error {
	_, err := sw.w.WriteString("#Chrom\tGenome\tRef_length\tMeta_length\tInserted\tPositions\tInsertions\tDropped\n")
	return err
}

// Write writes the chromosome row (genome "*") followed by one row per
// genome in the given order.
func (sw *SummaryWriter) Write(res *metagenome.SyncResult, genomes []string) error {
	if _, err := fmt.Fprintf(sw.w, "%s\t*\t%d\t%d\t%d\t%d\t%d\t%d\n",
		res.Chromosome, res.RefLength, res.MetaLength, res.Inserted(),
		res.Positions, res.Insertions, res.Dropped); err != nil {
		return err
	}
	for _, g := range genomes {
		track := res.TrackLength(g)
		if _, err := fmt.Fprintf(sw.w, "%s\t%s\t%d\t%d\t%d\t-\t-\t-\n",
			res.Chromosome, g, res.RefLength, track, inserted(res, g)); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (sw *SummaryWriter) Flush() error {
	return sw.w.Flush()
}

// inserted sums the bases a genome's own insertions contribute, ignoring
// padding received from other genomes.
func inserted(res *metagenome.SyncResult, genome string) int64 {
	var n int64
	for _, o := range res.Offsets[genome] {
		for a := range o.NextGenomeOffset {
			if d := o.NextGenomeOffset[a] - o.InitialGenomeOffset[a]; d > 0 {
				n += d
			}
		}
	}
	return n
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
