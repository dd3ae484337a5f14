package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aleksaelezovic/hexastore/internal/encoding"
	"github.com/aleksaelezovic/hexastore/pkg/triple"
)

// Keys of the meta table
var (
	metaLayoutKey = []byte("layout")
	metaCodecKey  = []byte("codec")
)

// namespace binds an ordering to the table holding its index
type namespace struct {
	ordering triple.Ordering
	table    Table
}

// TripleStore stores every triple under all six orderings of its fields and
// answers exact-match queries with a single prefix scan. It is safe for
// concurrent use.
type TripleStore struct {
	storage    Storage
	codec      ValueCodec
	logger     *slog.Logger
	namespaces [len(triple.Hexagon)]namespace
}

// NewTripleStore creates a triplestore on top of storage. On an empty storage
// the index layout and codec name are recorded; on an existing one they must
// match, otherwise ErrOpen is returned. A nil logger discards output.
func NewTripleStore(storage Storage, codec ValueCodec, logger *slog.Logger) (*TripleStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &TripleStore{
		storage:    storage,
		codec:      codec,
		logger:     logger,
		namespaces: hexagonNamespaces(),
	}

	if err := s.ensureLayout(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}

	return s, nil
}

// hexagonNamespaces pairs each ordering of triple.Hexagon with its table
func hexagonNamespaces() [len(triple.Hexagon)]namespace {
	return [len(triple.Hexagon)]namespace{
		{ordering: triple.Hexagon[0], table: OrderingTable(0)},
		{ordering: triple.Hexagon[1], table: OrderingTable(1)},
		{ordering: triple.Hexagon[2], table: OrderingTable(2)},
		{ordering: triple.Hexagon[3], table: OrderingTable(3)},
		{ordering: triple.Hexagon[4], table: OrderingTable(4)},
		{ordering: triple.Hexagon[5], table: OrderingTable(5)},
	}
}

// Layout returns the comma separated ordering names, in table order
func Layout() string {
	names := make([]string, len(triple.Hexagon))
	for i, o := range triple.Hexagon {
		names[i] = o.Name()
	}
	return strings.Join(names, ",")
}

// ensureLayout creates the layout record or verifies an existing one
func (s *TripleStore) ensureLayout() error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	expected := map[string]string{
		string(metaLayoutKey): Layout(),
		string(metaCodecKey):  s.codec.Name(),
	}

	created := false
	for _, key := range [][]byte{metaLayoutKey, metaCodecKey} {
		want := expected[string(key)]
		existing, err := txn.Get(TableMeta, key)
		switch {
		case errors.Is(err, ErrNotFound):
			if err := txn.Set(TableMeta, key, []byte(want)); err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		case string(existing) != want:
			return fmt.Errorf("%s mismatch: store has %q, expected %q", key, existing, want)
		}
	}

	if !created {
		return nil
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	s.logger.Info("initialized store layout", "layout", Layout(), "codec", s.codec.Name())
	return nil
}

// Close closes the triplestore
func (s *TripleStore) Close() error {
	return s.storage.Close()
}

// Sync flushes pending writes to disk
func (s *TripleStore) Sync() error {
	return s.storage.Sync()
}

// update runs fn in a writable transaction and commits it. Nothing fn writes
// is visible unless the commit succeeds.
func (s *TripleStore) update(ctx context.Context, fn func(txn Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if err := fn(txn); err != nil {
		return err
	}

	return txn.Commit()
}

// Put stores a triple under all six orderings in one atomic write
func (s *TripleStore) Put(ctx context.Context, t triple.Triple) error {
	return s.PutBatch(ctx, []triple.Triple{t})
}

// PutBatch stores several triples in one atomic write: either every
// projection of every triple becomes visible or none does.
func (s *TripleStore) PutBatch(ctx context.Context, triples []triple.Triple) error {
	for _, t := range triples {
		if err := t.Validate(); err != nil {
			putErrorsTotal.Inc()
			return fmt.Errorf("%w: %s: %w", ErrWrite, t, err)
		}
	}

	err := s.update(ctx, func(txn Transaction) error {
		for _, t := range triples {
			if err := s.putInTxn(txn, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		putErrorsTotal.Inc()
		s.logger.ErrorContext(ctx, "put failed", "count", len(triples), "error", err)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	putsTotal.Add(len(triples))
	s.logger.DebugContext(ctx, "put completed", "count", len(triples))
	return nil
}

// putInTxn writes the six projections of t, all sharing one serialized value
func (s *TripleStore) putInTxn(txn Transaction, t triple.Triple) error {
	value, err := s.codec.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", t, err)
	}

	for _, ns := range s.namespaces {
		if err := txn.Set(ns.table, encoding.EncodeTripleKey(t, ns.ordering), value); err != nil {
			return fmt.Errorf("failed to set %s key: %w", ns.ordering, err)
		}
	}

	return nil
}

// Delete removes all six projections of a triple in one atomic write.
// Deleting a triple that is not stored is a no-op.
func (s *TripleStore) Delete(ctx context.Context, t triple.Triple) error {
	if err := t.Validate(); err != nil {
		deleteErrorsTotal.Inc()
		return fmt.Errorf("%w: %s: %w", ErrWrite, t, err)
	}

	err := s.update(ctx, func(txn Transaction) error {
		for _, ns := range s.namespaces {
			if err := txn.Delete(ns.table, encoding.EncodeTripleKey(t, ns.ordering)); err != nil {
				return fmt.Errorf("failed to delete %s key: %w", ns.ordering, err)
			}
		}
		return nil
	})
	if err != nil {
		deleteErrorsTotal.Inc()
		s.logger.ErrorContext(ctx, "delete failed", "triple", t, "error", err)
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	deletesTotal.Inc()
	s.logger.DebugContext(ctx, "delete completed", "triple", t)
	return nil
}

// Contains checks if a triple is stored
func (s *TripleStore) Contains(ctx context.Context, t triple.Triple) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := t.Validate(); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrRead, t, err)
	}

	txn, err := s.storage.Begin(false)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer txn.Rollback()

	ns := s.namespaces[0]
	_, err = txn.Get(ns.table, encoding.EncodeTripleKey(t, ns.ordering))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRead, err)
	}

	return true, nil
}
