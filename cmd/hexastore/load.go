package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aleksaelezovic/hexastore/pkg/store"
	"github.com/aleksaelezovic/hexastore/pkg/triple"
	"golang.org/x/sync/errgroup"
)

// parseLine parses "subject<TAB>predicate<TAB>object". Blank lines and lines
// starting with # are skipped.
func parseLine(line string) (triple.Triple, bool, error) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return triple.Triple{}, false, nil
	}

	fields := strings.Split(line, "\t")
	if len(fields) != 3 {
		return triple.Triple{}, false, fmt.Errorf("expected 3 tab separated fields, got %d", len(fields))
	}

	t := triple.NewTriple(fields[0], fields[1], fields[2])
	if err := t.Validate(); err != nil {
		return triple.Triple{}, false, err
	}
	return t, true, nil
}

// load reads triples from r and writes them in batches of batchSize using
// up to workers concurrent writers. Each batch is atomic; a failing batch
// stops the load but batches already committed stay.
func load(ctx context.Context, s *store.TripleStore, r io.Reader, workers, batchSize int) (int, error) {
	if workers < 1 {
		workers = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	total := 0
	batch := make([]triple.Triple, 0, batchSize)
	flush := func() {
		pending := batch
		g.Go(func() error {
			return s.PutBatch(ctx, pending)
		})
		total += len(pending)
		batch = make([]triple.Triple, 0, batchSize)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		t, ok, err := parseLine(scanner.Text())
		if err != nil {
			_ = g.Wait()
			return 0, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !ok {
			continue
		}
		batch = append(batch, t)
		if len(batch) == batchSize {
			flush()
		}
	}
	if err := scanner.Err(); err != nil {
		_ = g.Wait()
		return 0, err
	}
	if len(batch) > 0 {
		flush()
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total, nil
}
