package store

import (
	"context"
	"fmt"

	"github.com/aleksaelezovic/hexastore/internal/encoding"
	"github.com/aleksaelezovic/hexastore/pkg/triple"
)

// TripleIterator is a lazy, forward-only, single-pass sequence of triples.
// Results come in the byte order of the ordering chosen by the planner, which
// is not necessarily subject-major.
//
//	it, err := s.Get(ctx, c)
//	...
//	defer it.Close()
//	for it.Next() {
//		t, err := it.Triple()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type TripleIterator interface {
	// Next advances to the next matching triple
	Next() bool

	// Triple decodes the current triple. A stored value that cannot be
	// decoded yields an error wrapping ErrDecode.
	Triple() (triple.Triple, error)

	// Err returns the error that ended iteration early, if any
	Err() error

	// Close releases the snapshot held by the iterator
	Close() error
}

// scan is an open prefix scan over one namespace
type scan struct {
	ns  namespace
	txn Transaction
	it  Iterator
}

// openScan plans c and opens a prefix scan over the chosen namespace on a
// read-only snapshot.
func (s *TripleStore) openScan(ctx context.Context, c Criteria) (*scan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	idx := c.Plan()
	ns := s.namespaces[idx]
	prefix := c.Prefix(ns.ordering)

	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}

	it, err := txn.ScanPrefix(ns.table, prefix)
	if err != nil {
		txn.Rollback()
		return nil, err
	}

	queriesTotal[idx].Inc()
	if c.Bound().Len() == 0 {
		fullScansTotal.Inc()
		s.logger.DebugContext(ctx, "unconstrained query scans the whole index", "ordering", ns.ordering.Name())
	} else {
		s.logger.DebugContext(ctx, "query planned", "criteria", c.String(), "ordering", ns.ordering.Name())
	}

	return &scan{ns: ns, txn: txn, it: it}, nil
}

func (sc *scan) close() error {
	sc.it.Close()
	return sc.txn.Rollback()
}

// Get returns the triples matching c
func (s *TripleStore) Get(ctx context.Context, c Criteria) (TripleIterator, error) {
	sc, err := s.openScan(ctx, c)
	if err != nil {
		queryErrorsTotal.Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, c, err)
	}

	return &tripleIterator{
		ctx:   ctx,
		scan:  sc,
		codec: s.codec,
	}, nil
}

// Count returns the number of triples matching c without decoding them
func (s *TripleStore) Count(ctx context.Context, c Criteria) (int64, error) {
	sc, err := s.openScan(ctx, c)
	if err != nil {
		queryErrorsTotal.Inc()
		return 0, fmt.Errorf("%w: %s: %w", ErrRead, c, err)
	}
	defer sc.close()

	count := int64(0)
	for sc.it.Next() {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("%w: %s: %w", ErrRead, c, err)
		}
		count++
	}

	return count, nil
}

// Collect drains it into a slice and closes it
func Collect(it TripleIterator) ([]triple.Triple, error) {
	defer it.Close()

	var triples []triple.Triple
	for it.Next() {
		t, err := it.Triple()
		if err != nil {
			return triples, err
		}
		triples = append(triples, t)
	}

	return triples, it.Err()
}

// tripleIterator implements TripleIterator
type tripleIterator struct {
	ctx    context.Context
	scan   *scan
	codec  ValueCodec
	err    error
	closed bool
}

func (ti *tripleIterator) Next() bool {
	if ti.closed || ti.err != nil {
		return false
	}
	if err := ti.ctx.Err(); err != nil {
		ti.err = err
		return false
	}
	if !ti.scan.it.Next() {
		return false
	}
	rowsTotal.Inc()
	return true
}

func (ti *tripleIterator) Triple() (triple.Triple, error) {
	if ti.closed {
		return triple.Triple{}, ErrIteratorClosed
	}

	key := ti.scan.it.Key()
	if key == nil {
		return triple.Triple{}, fmt.Errorf("%w: no current key", ErrRead)
	}

	value, err := ti.scan.it.Value()
	if err != nil {
		return triple.Triple{}, fmt.Errorf("%w: %w", ErrRead, err)
	}

	t, err := ti.codec.Unmarshal(value)
	if err != nil {
		decodeErrorsTotal.Inc()
		return triple.Triple{}, fmt.Errorf("%w: %s key %q: %w", ErrDecode, ti.scan.ns.ordering, key, err)
	}

	// the value must be the triple the key was projected from
	projected, err := encoding.DecodeTripleKey(key, ti.scan.ns.ordering)
	if err != nil || projected != t {
		decodeErrorsTotal.Inc()
		return triple.Triple{}, fmt.Errorf("%w: %s key %q does not match value %s", ErrDecode, ti.scan.ns.ordering, key, t)
	}

	return t, nil
}

func (ti *tripleIterator) Err() error {
	return ti.err
}

func (ti *tripleIterator) Close() error {
	if ti.closed {
		return nil
	}
	ti.closed = true
	return ti.scan.close()
}
