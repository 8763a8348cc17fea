package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/metagenome/internal/metagenome"
)

// ErrNoResult is returned when a run has no data for a chromosome.
var ErrNoResult = errors.New("no exported result")

// withAppender batch-inserts rows into a table using the Appender API.
func (s *Store) withAppender(table string, fn func(a *goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	if err := fn(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// WriteTracks appends placed variants to a run.
func (s *Store) WriteTracks(runID string, variants []*metagenome.Variant) error {
	if len(variants) == 0 {
		return nil
	}
	return s.withAppender("tracks", func(a *goduckdb.Appender) error {
		for _, v := range variants {
			var filter, genotype, quality driver.Value
			if v.Call != nil {
				filter, genotype, quality = v.Call.Filter, v.Call.Genotype, v.Call.Quality
			}
			if err := a.AppendRow(
				runID, v.Genome, v.Chrom, int32(v.Allele), v.RefPos, v.Type.String(), v.Length,
				v.Start, v.Stop, v.ExtraOffset, filter, quality, genotype,
			); err != nil {
				return fmt.Errorf("append track: %w", err)
			}
		}
		return nil
	})
}

// WriteOffsets appends the tracker offsets and the meta-genome length of a
// synchronized chromosome. Reference offsets are stored with an empty
// genome name.
func (s *Store) WriteOffsets(runID string, res *metagenome.SyncResult) error {
	err := s.withAppender("offsets", func(a *goduckdb.Appender) error {
		write := func(genome string, offsets []metagenome.Offset) error {
			for _, o := range offsets {
				if err := a.AppendRow(
					runID, genome, res.Chromosome, o.RefPos, o.Synthesized, o.Padding,
					o.InitialMetaOffset, o.NextMetaOffset,
					o.InitialGenomeOffset[0], o.NextGenomeOffset[0],
					o.InitialGenomeOffset[1], o.NextGenomeOffset[1],
				); err != nil {
					return fmt.Errorf("append offset: %w", err)
				}
			}
			return nil
		}
		for genome, offsets := range res.Offsets {
			if err := write(genome, offsets); err != nil {
				return err
			}
		}
		return write("", res.ReferenceOffsets)
	})
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`INSERT INTO meta_lengths (run_id, chrom, ref_length, meta_length) VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id, chrom) DO UPDATE SET ref_length = excluded.ref_length, meta_length = excluded.meta_length`,
		runID, res.Chromosome, res.RefLength, res.MetaLength)
	if err != nil {
		return fmt.Errorf("write meta length: %w", err)
	}
	return nil
}

// ExportChromosome writes every genome's placed variants and the offsets of
// a synchronized chromosome.
func (s *Store) ExportChromosome(runID string, p *metagenome.Project, chrom string) error {
	res, ok := p.Result(chrom)
	if !ok {
		return fmt.Errorf("export %s: %w", chrom, metagenome.ErrNotSynchronized)
	}

	var variants []*metagenome.Variant
	for _, g := range p.Genomes() {
		placed, err := p.Placed(g, chrom)
		if err != nil {
			return fmt.Errorf("export %s: %w", chrom, err)
		}
		for _, vs := range placed {
			variants = append(variants, vs...)
		}
	}
	if err := s.WriteTracks(runID, variants); err != nil {
		return fmt.Errorf("export %s: %w", chrom, err)
	}
	if err := s.WriteOffsets(runID, res); err != nil {
		return fmt.Errorf("export %s: %w", chrom, err)
	}
	return nil
}

// QueryWindow returns the exported variants of one genome allele that
// intersect the closed meta-genome window [start, stop], ordered by start.
func (s *Store) QueryWindow(runID, genome, chrom string, allele int, start, stop int64) ([]*metagenome.Variant, error) {
	rows, err := s.db.Query(`SELECT
		ref_pos, type, length, meta_start, meta_stop, extra_offset, filter, quality, genotype
		FROM tracks
		WHERE run_id = ? AND genome = ? AND chrom = ? AND allele = ?
		AND meta_stop > ? AND meta_start <= ?
		ORDER BY meta_start, ref_pos`,
		runID, genome, chrom, int32(allele), start, stop)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}
	defer rows.Close()

	var out []*metagenome.Variant
	for rows.Next() {
		v := &metagenome.Variant{Genome: genome, Chrom: chrom, Allele: allele}
		var typ string
		var filter, genotype sql.NullString
		var quality sql.NullFloat64
		if err := rows.Scan(&v.RefPos, &typ, &v.Length, &v.Start, &v.Stop, &v.ExtraOffset,
			&filter, &quality, &genotype); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		if v.Type, err = metagenome.ParseVariantType(typ); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		if filter.Valid {
			v.Call = &metagenome.Call{Filter: filter.String, Quality: quality.Float64, Genotype: genotype.String}
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return out, nil
}

// MetaLength returns the exported meta-genome length of a chromosome.
func (s *Store) MetaLength(runID, chrom string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT meta_length FROM meta_lengths WHERE run_id = ? AND chrom = ?`, runID, chrom).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: run %s chromosome %s", ErrNoResult, runID, chrom)
	}
	if err != nil {
		return 0, fmt.Errorf("query meta length: %w", err)
	}
	return n, nil
}

// Offsets returns the exported offsets of a genome, or of the reference for
// an empty genome name, in reference order.
func (s *Store) Offsets(runID, genome, chrom string) ([]metagenome.Offset, error) {
	rows, err := s.db.Query(`SELECT
		ref_pos, synthesized, padding, initial_meta_offset, next_meta_offset,
		initial_genome_offset_0, next_genome_offset_0, initial_genome_offset_1, next_genome_offset_1
		FROM offsets WHERE run_id = ? AND genome = ? AND chrom = ? ORDER BY ref_pos`,
		runID, genome, chrom)
	if err != nil {
		return nil, fmt.Errorf("query offsets: %w", err)
	}
	defer rows.Close()

	var out []metagenome.Offset
	for rows.Next() {
		var o metagenome.Offset
		if err := rows.Scan(&o.RefPos, &o.Synthesized, &o.Padding, &o.InitialMetaOffset, &o.NextMetaOffset,
			&o.InitialGenomeOffset[0], &o.NextGenomeOffset[0],
			&o.InitialGenomeOffset[1], &o.NextGenomeOffset[1]); err != nil {
			return nil, fmt.Errorf("scan offset: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offsets: %w", err)
	}
	return out, nil
}
