package ingest

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/metagenome/internal/vcf"
)

// dataLine is one data line of a file, numbered in file order. A nil
// variant marks a line the parser rejected.
type dataLine struct {
	seq     int
	variant *vcf.Variant
}

// classified is what one data line contributes to its File.
type classified struct {
	seq       int
	chrom     string
	pos       int64
	records   []Record
	skipped   bool // parsed, but no sample could be read
	malformed bool // rejected by the parser
}

// classifyLines classifies lines on a pool of workers until lines is
// closed or ctx is done. Results arrive in completion order; File.gather
// restores file order. Zero workers uses one per CPU.
func (c *Classifier) classifyLines(ctx context.Context, lines <-chan dataLine, workers int) <-chan classified {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make(chan classified, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for ln := range lines {
				res := classified{seq: ln.seq, malformed: ln.variant == nil}
				if ln.variant != nil {
					res.chrom = ln.variant.NormalizeChrom()
					res.pos = ln.variant.Pos
					records, err := c.Classify(ln.variant)
					res.records, res.skipped = records, err != nil
				}
				select {
				case out <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// gather folds classified lines into f in file order and returns once
// results is closed. Lines finishing early wait in a pending map. After
// cancellation the remaining results are drained and ctx's error returned.
func (f *File) gather(ctx context.Context, results <-chan classified) error {
	pending := make(map[int]classified)
	next := 0

	for r := range results {
		if ctx.Err() != nil {
			continue
		}
		pending[r.seq] = r
		for {
			rr, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			f.add(rr)
		}
	}
	return ctx.Err()
}

func (f *File) add(r classified) {
	if r.malformed {
		f.Skipped++
		return
	}
	f.Variants++
	// Failed lines still extend the chromosome.
	f.MaxPos[r.chrom] = max(f.MaxPos[r.chrom], r.pos)
	if r.skipped {
		f.Skipped++
		return
	}
	f.Records = append(f.Records, r.records...)
}
