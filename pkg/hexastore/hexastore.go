// Package hexastore opens a BadgerDB-backed triplestore that indexes every
// triple under all six orderings of subject, predicate and object.
//
//	s, err := hexastore.Open("./data")
//	if err != nil { ... }
//	defer s.Close()
//
//	err = s.Put(ctx, triple.NewTriple("alice", "knows", "bob"))
//
//	it, err := s.Get(ctx, store.NewCriteria().WithObject("bob").Build())
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//		t, err := it.Triple()
//		...
//	}
//
// Queries binding at least one field cost O(log n + results). A query with
// no bound field scans a whole index and is O(n).
package hexastore

import (
	"fmt"
	"log/slog"

	"github.com/aleksaelezovic/hexastore/internal/encoding"
	"github.com/aleksaelezovic/hexastore/internal/storage"
	"github.com/aleksaelezovic/hexastore/pkg/store"
)

type options struct {
	logger     *slog.Logger
	syncWrites bool
}

// Option configures Open
type Option func(*options)

// WithLogger sets the logger used by the store and by BadgerDB
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSyncWrites controls whether every commit is flushed to disk before
// returning. Enabled by default.
func WithSyncWrites(sync bool) Option {
	return func(o *options) {
		o.syncWrites = sync
	}
}

// Open opens the store in directory path, creating it if absent. Errors wrap
// store.ErrOpen.
func Open(path string, opts ...Option) (*store.TripleStore, error) {
	o := options{syncWrites: true}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := storage.DefaultConfig(path)
	cfg.SyncWrites = o.syncWrites
	return open(cfg, o)
}

// OpenInMemory opens a store that lives only as long as the process
func OpenInMemory(opts ...Option) (*store.TripleStore, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return open(storage.InMemoryConfig(), o)
}

func open(cfg storage.Config, o options) (*store.TripleStore, error) {
	cfg.Logger = o.logger

	badgerStorage, err := storage.NewBadgerStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrOpen, err)
	}

	s, err := store.NewTripleStore(badgerStorage, encoding.NewValueCodec(), o.logger)
	if err != nil {
		badgerStorage.Close()
		return nil, err
	}

	return s, nil
}
