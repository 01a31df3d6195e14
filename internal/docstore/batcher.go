package docstore

import (
	"context"
)

// Outcome reports what Batcher.Add did with a document.
type Outcome int

const (
	// Flushed means the document (and any buffered ones) reached the store.
	Flushed Outcome = iota
	// Buffered means the document is waiting in the batch.
	Buffered
)

func (o Outcome) String() string {
	if o == Buffered {
		return "buffered"
	}
	return "flushed"
}

type pendingWrite struct {
	table string
	doc   Document
}

// Batcher accumulates one worker's inserts and writes them in bulk once the
// batch is full. It is owned by exactly one worker and is not safe for
// concurrent use.
//
// There is no time-based flush: documents still buffered when the worker
// stops are dropped by Discard.
type Batcher struct {
	store   Store
	size    int
	upsert  bool
	pending []pendingWrite
}

// NewBatcher creates a batcher. size <= 1 disables batching.
func NewBatcher(store Store, size int, upsert bool) *Batcher {
	if size < 1 {
		size = 1
	}
	b := &Batcher{
		store:  store,
		size:   size,
		upsert: upsert,
	}
	if size > 1 {
		b.pending = make([]pendingWrite, 0, size)
	}
	return b
}

// Size returns the configured batch size.
func (b *Batcher) Size() int {
	return b.size
}

// Pending returns the number of buffered documents.
func (b *Batcher) Pending() int {
	return len(b.pending)
}

// Add submits doc for table. Unbatched, the document is written at once.
// Batched, Add returns Buffered until the batch holds size documents; the
// call that fills it writes the whole batch and returns Flushed.
//
// A failed flush drops the whole batch; the caller decides whether to
// resubmit.
func (b *Batcher) Add(ctx context.Context, table string, doc Document) (Outcome, error) {
	if b.size == 1 {
		var err error
		if b.upsert {
			err = b.store.Replace(ctx, table, doc)
		} else {
			err = b.store.Insert(ctx, table, doc)
		}
		if err != nil {
			return Flushed, ErrStore.WithCause(err)
		}
		return Flushed, nil
	}

	b.pending = append(b.pending, pendingWrite{table: table, doc: doc})
	if len(b.pending) < b.size {
		return Buffered, nil
	}

	err := b.flush(ctx)
	return Flushed, err
}

// Discard empties the buffer without writing it and returns how many
// documents were dropped.
func (b *Batcher) Discard() int {
	n := len(b.pending)
	b.pending = b.pending[:0]
	return n
}

// flush writes the buffer as one bulk call per table, tables in first-seen
// order. The buffer is cleared whatever the outcome.
func (b *Batcher) flush(ctx context.Context) error {
	batch := b.pending
	b.pending = make([]pendingWrite, 0, b.size)

	order := make([]string, 0, 1)
	groups := make(map[string][]Document, 1)
	for _, w := range batch {
		if _, ok := groups[w.table]; !ok {
			order = append(order, w.table)
		}
		groups[w.table] = append(groups[w.table], w.doc)
	}

	for _, table := range order {
		docs := groups[table]
		var err error
		if b.upsert {
			err = b.store.UpsertMany(ctx, table, docs)
		} else {
			err = b.store.InsertMany(ctx, table, docs)
		}
		if err != nil {
			return ErrStore.WithCause(err).WithMessagef("bulk write of %d documents to %s", len(docs), table)
		}
	}
	return nil
}
