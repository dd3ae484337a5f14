package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aleksaelezovic/hexastore/internal/encoding"
	"github.com/aleksaelezovic/hexastore/internal/storage"
	"github.com/aleksaelezovic/hexastore/pkg/store"
	"github.com/aleksaelezovic/hexastore/pkg/triple"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestStore(t *testing.T) (*store.TripleStore, *storage.BadgerStorage) {
	t.Helper()

	badgerStorage, err := storage.NewBadgerStorage(storage.InMemoryConfig())
	require.NoError(t, err)

	s, err := store.NewTripleStore(badgerStorage, encoding.NewValueCodec(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, badgerStorage
}

func get(t *testing.T, s *store.TripleStore, c store.Criteria) []triple.Triple {
	t.Helper()

	it, err := s.Get(context.Background(), c)
	require.NoError(t, err)

	triples, err := store.Collect(it)
	require.NoError(t, err)
	return triples
}

func putAll(t *testing.T, s *store.TripleStore, triples ...triple.Triple) {
	t.Helper()

	for _, tr := range triples {
		require.NoError(t, s.Put(context.Background(), tr))
	}
}

var sample = []triple.Triple{
	triple.NewTriple("a", "b", "c"),
	triple.NewTriple("a", "b", "c2"),
	triple.NewTriple("d", "b", "c"),
	triple.NewTriple("e", "b", "f"),
	triple.NewTriple("e", "b", "c2"),
}

func TestPutGet_FullMatch(t *testing.T) {
	s, _ := newTestStore(t)
	tr := triple.NewTriple("http://example.org/alice", "http://xmlns.com/foaf/0.1/name", "Alice")
	putAll(t, s, tr)

	assert.Equal(t, []triple.Triple{tr}, get(t, s, store.MatchTriple(tr)))
}

func TestPutGet_SingleField(t *testing.T) {
	s, _ := newTestStore(t)
	putAll(t, s, sample...)

	for _, tr := range sample {
		for f := triple.Subject; f < triple.FieldCount; f++ {
			var c store.Criteria
			switch f {
			case triple.Subject:
				c = store.NewCriteria().WithSubject(tr.Subject).Build()
			case triple.Predicate:
				c = store.NewCriteria().WithPredicate(tr.Predicate).Build()
			case triple.Object:
				c = store.NewCriteria().WithObject(tr.Object).Build()
			}

			results := get(t, s, c)
			assert.Contains(t, results, tr, "%s by %s", tr, f)
			for _, r := range results {
				assert.True(t, c.Matches(r), "%s does not match %s", r, c)
			}
		}
	}
}

func TestGet_EveryBoundSet(t *testing.T) {
	s, _ := newTestStore(t)
	putAll(t, s, sample...)

	tr := sample[3]
	builders := []func(store.CriteriaBuilder) store.CriteriaBuilder{
		func(b store.CriteriaBuilder) store.CriteriaBuilder { return b.WithSubject(tr.Subject) },
		func(b store.CriteriaBuilder) store.CriteriaBuilder { return b.WithPredicate(tr.Predicate) },
		func(b store.CriteriaBuilder) store.CriteriaBuilder { return b.WithObject(tr.Object) },
	}

	for mask := 0; mask < 8; mask++ {
		b := store.NewCriteria()
		for i, with := range builders {
			if mask&(1<<i) != 0 {
				b = with(b)
			}
		}
		c := b.Build()

		t.Run(c.String(), func(t *testing.T) {
			var expected []triple.Triple
			for _, candidate := range sample {
				if c.Matches(candidate) {
					expected = append(expected, candidate)
				}
			}
			assert.ElementsMatch(t, expected, get(t, s, c))
		})
	}
}

func TestGet_ExactValueBoundary(t *testing.T) {
	s, _ := newTestStore(t)
	putAll(t, s, triple.NewTriple("a", "b", "c"), triple.NewTriple("a", "b", "c2"))

	assert.Equal(t, []triple.Triple{triple.NewTriple("a", "b", "c")}, get(t, s, store.NewCriteria().WithObject("c").Build()))
	assert.Equal(t, []triple.Triple{triple.NewTriple("a", "b", "c2")}, get(t, s, store.NewCriteria().WithObject("c2").Build()))
	assert.Empty(t, get(t, s, store.NewCriteria().WithObject("").Build()))
}

func TestGet_Multiplicity(t *testing.T) {
	s, _ := newTestStore(t)
	putAll(t, s, sample...)

	// planned on osp: ordered by subject, then predicate
	expected := []triple.Triple{
		triple.NewTriple("a", "b", "c"),
		triple.NewTriple("d", "b", "c"),
	}
	assert.Equal(t, expected, get(t, s, store.NewCriteria().WithObject("c").Build()))
}

func TestGet_ResultsFollowPlannedOrdering(t *testing.T) {
	s, _ := newTestStore(t)
	putAll(t, s, sample...)

	// planned on pos: ordered by object key bytes, then subject. The separator
	// 0xFF sorts after every value byte, so "c2" comes before "c".
	expected := []triple.Triple{
		triple.NewTriple("a", "b", "c2"),
		triple.NewTriple("e", "b", "c2"),
		triple.NewTriple("a", "b", "c"),
		triple.NewTriple("d", "b", "c"),
		triple.NewTriple("e", "b", "f"),
	}
	assert.Equal(t, expected, get(t, s, store.NewCriteria().WithPredicate("b").Build()))
}

func TestPut_Idempotent(t *testing.T) {
	s, _ := newTestStore(t)
	tr := triple.NewTriple("a", "b", "c")
	putAll(t, s, tr, tr, tr)

	assert.Equal(t, []triple.Triple{tr}, get(t, s, store.MatchTriple(tr)))
	assert.Equal(t, []triple.Triple{tr}, get(t, s, store.NewCriteria().WithPredicate("b").Build()))
	assert.Equal(t, []triple.Triple{tr}, get(t, s, store.NewCriteria().Build()))
}

func TestGet_EmptyCriteriaReturnsEverythingOnce(t *testing.T) {
	s, _ := newTestStore(t)
	putAll(t, s, sample[4], sample[1], sample[3], sample[0], sample[2], sample[1])

	// planned on spo: subject-major key order regardless of insertion order
	expected := []triple.Triple{
		triple.NewTriple("a", "b", "c2"),
		triple.NewTriple("a", "b", "c"),
		triple.NewTriple("d", "b", "c"),
		triple.NewTriple("e", "b", "c2"),
		triple.NewTriple("e", "b", "f"),
	}
	assert.Equal(t, expected, get(t, s, store.NewCriteria().Build()))
}

func TestGet_EmptyStore(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Empty(t, get(t, s, store.NewCriteria().Build()))
	assert.Empty(t, get(t, s, store.NewCriteria().WithSubject("nobody").Build()))
}

func TestGet_UnicodeAndEmptyValues(t *testing.T) {
	s, _ := newTestStore(t)
	trs := []triple.Triple{
		triple.NewTriple("", "", ""),
		triple.NewTriple("日本", "ist", "ünïcödé"),
		triple.NewTriple("\U0010FFFF", "max", "rune"),
	}
	putAll(t, s, trs...)

	assert.Equal(t, []triple.Triple{trs[0]}, get(t, s, store.NewCriteria().WithSubject("").Build()))
	assert.Equal(t, []triple.Triple{trs[1]}, get(t, s, store.NewCriteria().WithObject("ünïcödé").Build()))
	assert.Equal(t, []triple.Triple{trs[2]}, get(t, s, store.MatchTriple(trs[2])))
	assert.ElementsMatch(t, trs, get(t, s, store.NewCriteria().Build()))
}

func TestGet_EmptyFieldAfterBoundFields(t *testing.T) {
	s, _ := newTestStore(t)
	noSubject := triple.NewTriple("", "p", "o")
	noPredicate := triple.NewTriple("a", "", "c")
	putAll(t, s, noSubject, noPredicate)

	assert.ElementsMatch(t, []triple.Triple{noSubject, noPredicate}, get(t, s, store.NewCriteria().Build()))
	assert.Equal(t, []triple.Triple{noPredicate}, get(t, s, store.NewCriteria().WithSubject("a").Build()))
	assert.Equal(t, []triple.Triple{noSubject}, get(t, s, store.NewCriteria().WithObject("o").Build()))
	assert.Equal(t, []triple.Triple{noSubject}, get(t, s, store.NewCriteria().WithSubject("").Build()))
	assert.Equal(t, []triple.Triple{noPredicate}, get(t, s, store.NewCriteria().WithPredicate("").Build()))
	assert.Equal(t, []triple.Triple{noPredicate}, get(t, s, store.NewCriteria().WithSubject("a").WithPredicate("").Build()))
	assert.Empty(t, get(t, s, store.NewCriteria().WithSubject("a").WithPredicate("p").Build()))

	count, err := s.Count(context.Background(), store.NewCriteria().Build())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestPutBatch(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutBatch(ctx, sample))
	assert.ElementsMatch(t, sample, get(t, s, store.NewCriteria().Build()))

	// one invalid triple rejects the whole batch
	batch := []triple.Triple{triple.NewTriple("x", "y", "z"), triple.NewTriple("x", "y\xff", "z")}
	err := s.PutBatch(ctx, batch)
	require.ErrorIs(t, err, store.ErrWrite)
	require.ErrorIs(t, err, triple.ErrInvalidField)
	assert.Empty(t, get(t, s, store.NewCriteria().WithSubject("x").Build()))
}

func TestPut_RejectsSeparator(t *testing.T) {
	s, _ := newTestStore(t)

	err := s.Put(context.Background(), triple.NewTriple("a\xffb", "p", "o"))
	require.ErrorIs(t, err, store.ErrWrite)
	require.ErrorIs(t, err, triple.ErrInvalidField)
	assert.Empty(t, get(t, s, store.NewCriteria().Build()))
}

func TestGet_RejectsSeparator(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), store.NewCriteria().WithObject("\xff").Build())
	require.ErrorIs(t, err, store.ErrRead)
	require.ErrorIs(t, err, triple.ErrInvalidField)
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	putAll(t, s, sample...)

	gone := triple.NewTriple("a", "b", "c")
	require.NoError(t, s.Delete(ctx, gone))

	for _, c := range []store.Criteria{
		store.NewCriteria().Build(),
		store.NewCriteria().WithSubject("a").Build(),
		store.NewCriteria().WithPredicate("b").Build(),
		store.NewCriteria().WithObject("c").Build(),
		store.NewCriteria().WithSubject("a").WithObject("c").Build(),
		store.NewCriteria().WithPredicate("b").WithObject("c").Build(),
		store.MatchTriple(gone),
	} {
		assert.NotContains(t, get(t, s, c), gone, "deleted triple visible through %s", c)
	}

	count, err := s.Count(ctx, store.NewCriteria().Build())
	require.NoError(t, err)
	assert.Equal(t, int64(len(sample)-1), count)

	// deleting twice is a no-op
	require.NoError(t, s.Delete(ctx, gone))
}

func TestContains(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	putAll(t, s, sample[0])

	ok, err := s.Contains(ctx, sample[0])
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Contains(ctx, sample[1])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	putAll(t, s, sample...)

	tests := []struct {
		criteria store.Criteria
		expected int64
	}{
		{store.NewCriteria().Build(), 5},
		{store.NewCriteria().WithPredicate("b").Build(), 5},
		{store.NewCriteria().WithObject("c2").Build(), 2},
		{store.NewCriteria().WithSubject("e").WithObject("f").Build(), 1},
		{store.NewCriteria().WithSubject("z").Build(), 0},
	}

	for _, tt := range tests {
		count, err := s.Count(ctx, tt.criteria)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, count, tt.criteria.String())
	}
}

// setRaw writes a raw value into one index, bypassing the store
func setRaw(t *testing.T, st store.Storage, table store.Table, key, value []byte) {
	t.Helper()

	txn, err := st.Begin(true)
	require.NoError(t, err)
	defer txn.Rollback()
	require.NoError(t, txn.Set(table, key, value))
	require.NoError(t, txn.Commit())
}

func TestGet_CorruptValueFailsTheStep(t *testing.T) {
	s, badgerStorage := newTestStore(t)
	putAll(t, s, triple.NewTriple("a", "b", "c"), triple.NewTriple("d", "b", "c"))

	corrupt := triple.NewTriple("d", "b", "c")
	setRaw(t, badgerStorage, store.TableOSP, encoding.EncodeTripleKey(corrupt, triple.OSP), []byte("garbage"))

	it, err := s.Get(context.Background(), store.NewCriteria().WithObject("c").Build())
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	first, err := it.Triple()
	require.NoError(t, err)
	assert.Equal(t, triple.NewTriple("a", "b", "c"), first)

	require.True(t, it.Next())
	_, err = it.Triple()
	require.ErrorIs(t, err, store.ErrDecode)
	require.ErrorIs(t, err, encoding.ErrCorruptValue)

	// the other orderings are untouched
	assert.Equal(t, []triple.Triple{corrupt}, get(t, s, store.NewCriteria().WithSubject("d").Build()))
}

func TestGet_ValueMustMatchKey(t *testing.T) {
	s, badgerStorage := newTestStore(t)

	key := encoding.EncodeTripleKey(triple.NewTriple("a", "b", "c"), triple.SPO)
	value, err := encoding.NewValueCodec().Marshal(triple.NewTriple("x", "y", "z"))
	require.NoError(t, err)
	setRaw(t, badgerStorage, store.TableSPO, key, value)

	it, err := s.Get(context.Background(), store.NewCriteria().WithSubject("a").Build())
	require.NoError(t, err)

	_, err = store.Collect(it)
	require.ErrorIs(t, err, store.ErrDecode)
}

func TestIterator_ClosedAndCancelled(t *testing.T) {
	s, _ := newTestStore(t)
	putAll(t, s, sample...)

	ctx, cancel := context.WithCancel(context.Background())
	it, err := s.Get(ctx, store.NewCriteria().Build())
	require.NoError(t, err)

	require.True(t, it.Next())
	cancel()
	assert.False(t, it.Next())
	require.ErrorIs(t, it.Err(), context.Canceled)

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.False(t, it.Next())
	_, err = it.Triple()
	require.ErrorIs(t, err, store.ErrIteratorClosed)

	require.ErrorIs(t, s.Put(ctx, sample[0]), context.Canceled)
	_, err = s.Get(ctx, store.NewCriteria().Build())
	require.ErrorIs(t, err, context.Canceled)
}

// cancelAfter reports no error for its first n Err calls, then Canceled
type cancelAfter struct {
	context.Context
	n int
}

func (c *cancelAfter) Err() error {
	if c.n > 0 {
		c.n--
		return nil
	}
	return context.Canceled
}

func TestCount_CancelledMidScan(t *testing.T) {
	s, _ := newTestStore(t)
	putAll(t, s, sample...)

	_, err := s.Count(&cancelAfter{Context: context.Background(), n: 2}, store.NewCriteria().Build())
	require.ErrorIs(t, err, store.ErrRead)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIterator_TripleBeforeNext(t *testing.T) {
	s, _ := newTestStore(t)
	putAll(t, s, sample...)

	it, err := s.Get(context.Background(), store.NewCriteria().Build())
	require.NoError(t, err)
	defer it.Close()

	_, err = it.Triple()
	require.ErrorIs(t, err, store.ErrRead)

	require.True(t, it.Next())
	_, err = it.Triple()
	require.NoError(t, err)
}

func TestIterator_SnapshotIsolation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	putAll(t, s, sample[0])

	it, err := s.Get(ctx, store.NewCriteria().Build())
	require.NoError(t, err)

	putAll(t, s, sample[1], sample[2])

	triples, err := store.Collect(it)
	require.NoError(t, err)
	assert.Equal(t, []triple.Triple{sample[0]}, triples)
}

func TestPut_ConcurrentWriters(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	var g errgroup.Group
	g.SetLimit(8)
	for i := 0; i < 64; i++ {
		i := i
		g.Go(func() error {
			tr := triple.NewTriple(fmt.Sprintf("s%02d", i), "p", fmt.Sprintf("o%d", i%4))
			return s.Put(ctx, tr)
		})
	}
	require.NoError(t, g.Wait())

	count, err := s.Count(ctx, store.NewCriteria().Build())
	require.NoError(t, err)
	assert.Equal(t, int64(64), count)

	count, err = s.Count(ctx, store.NewCriteria().WithObject("o1").Build())
	require.NoError(t, err)
	assert.Equal(t, int64(16), count)
}

// failingStorage fails every commit
type failingStorage struct {
	store.Storage
}

func (f failingStorage) Begin(writable bool) (store.Transaction, error) {
	txn, err := f.Storage.Begin(writable)
	if err != nil {
		return nil, err
	}
	return failingTransaction{txn}, nil
}

type failingTransaction struct {
	store.Transaction
}

var errCommit = errors.New("commit refused")

func (f failingTransaction) Commit() error {
	return errCommit
}

func TestPut_CommitFailureLeavesNothingVisible(t *testing.T) {
	s, badgerStorage := newTestStore(t)

	failing, err := store.NewTripleStore(failingStorage{badgerStorage}, encoding.NewValueCodec(), nil)
	require.NoError(t, err, "the layout already exists, so opening needs no commit")

	err = failing.Put(context.Background(), triple.NewTriple("a", "b", "c"))
	require.ErrorIs(t, err, store.ErrWrite)
	require.ErrorIs(t, err, errCommit)

	for i := range triple.Hexagon {
		count := 0
		txn, err := badgerStorage.Begin(false)
		require.NoError(t, err)
		it, err := txn.Scan(store.OrderingTable(i), nil, nil)
		require.NoError(t, err)
		for it.Next() {
			count++
		}
		it.Close()
		txn.Rollback()
		assert.Zero(t, count, "projection visible in %s", store.OrderingTable(i))
	}
	assert.Empty(t, get(t, s, store.NewCriteria().Build()))
}

type renamedCodec struct {
	*encoding.ValueCodec
}

func (renamedCodec) Name() string {
	return "something-else"
}

func TestNewTripleStore_LayoutMismatch(t *testing.T) {
	_, badgerStorage := newTestStore(t)

	_, err := store.NewTripleStore(badgerStorage, renamedCodec{encoding.NewValueCodec()}, nil)
	require.ErrorIs(t, err, store.ErrOpen)

	setRaw(t, badgerStorage, store.TableMeta, []byte("layout"), []byte("spo,pos,osp"))
	_, err = store.NewTripleStore(badgerStorage, encoding.NewValueCodec(), nil)
	require.ErrorIs(t, err, store.ErrOpen)
}
