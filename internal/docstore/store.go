package docstore

import (
	"context"
)

// Defaults are the read preference and write concern a store resolved when
// the connection was established. They never change for the life of a handle.
type Defaults struct {
	ReadPreference string
	WriteConcern   string
}

// MetaQuery selects documents by one metadata field, optionally narrowed by a
// regular expression over the document identifier.
type MetaQuery struct {
	Field      MetaField
	Condition  string
	KeyPattern string
}

// Store is the storage collaborator: everything docstore needs from a
// document database. Implementations must be safe for concurrent use; the
// handle shares one Store between every worker and the sweeper.
//
// Store methods return raw backend errors; Client maps them to ErrStore.
type Store interface {
	// Defaults reports the connection's resolved read/write settings.
	Defaults() Defaults

	// Collections lists every collection of the selected database.
	Collections(ctx context.Context) ([]string, error)

	// Get fetches one document by identifier. The expiry stamp is always
	// returned even when fields narrows the projection.
	Get(ctx context.Context, coll, id string, fields []string) (Document, bool, error)

	// Scan returns up to limit documents with identifier >= start in
	// ascending order, excluding documents whose expiresAt <= now. The expiry
	// filter is part of the query itself.
	Scan(ctx context.Context, coll, start string, limit int, fields []string, now int64) ([]Document, error)

	// Insert writes a new document.
	Insert(ctx context.Context, coll string, doc Document) error

	// InsertMany writes documents without ordering guarantees.
	InsertMany(ctx context.Context, coll string, docs []Document) error

	// Replace upserts doc as a whole, keyed by its identifier.
	Replace(ctx context.Context, coll string, doc Document) error

	// UpsertMany sets every document's fields, inserting absent identifiers.
	UpsertMany(ctx context.Context, coll string, docs []Document) error

	// Update sets fields on the document with the given identifier and
	// reports how many documents matched.
	Update(ctx context.Context, coll, id string, values map[string][]byte) (int64, error)

	// Delete removes the document with the given identifier and reports how
	// many documents were removed.
	Delete(ctx context.Context, coll, id string) (int64, error)

	// DeleteExpired removes every document whose expiresAt <= now.
	DeleteExpired(ctx context.Context, coll string, now int64) (int64, error)

	// FindMeta returns every document matching q.
	FindMeta(ctx context.Context, coll string, q MetaQuery) ([]Document, error)

	// UpdateMeta sets field=value on every document matching q.
	UpdateMeta(ctx context.Context, coll string, q MetaQuery, field, value string) (int64, error)

	// DeleteMeta removes every document matching q.
	DeleteMeta(ctx context.Context, coll string, q MetaQuery) (int64, error)

	// RecentProfile returns up to n operation-profile entries, newest first.
	RecentProfile(ctx context.Context, n int) ([]string, error)

	// Sync asks the backend to flush pending writes to durable storage.
	Sync(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error
}

// Connector establishes a Store. It is called once per handle lifetime.
type Connector func(ctx context.Context) (Store, error)
