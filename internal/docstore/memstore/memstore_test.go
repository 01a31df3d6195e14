package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/internal/docstore/memstore"
)

var ctx = context.Background()

func doc(id string, fields map[string]string) docstore.Document {
	values := make(map[string][]byte, len(fields))
	for k, v := range fields {
		values[k] = []byte(v)
	}
	return docstore.NewDocument(id, values)
}

func TestInsertDuplicate(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.Insert(ctx, "t", doc("a", nil)))

	err := s.Insert(ctx, "t", doc("a", nil))
	assert.ErrorIs(t, err, memstore.ErrDuplicateKey)
	assert.Equal(t, 1, s.Len("t"))
}

func TestInsertManyIsUnordered(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.Insert(ctx, "t", doc("b", nil)))

	err := s.InsertMany(ctx, "t", []docstore.Document{doc("a", nil), doc("b", nil), doc("c", nil)})
	assert.ErrorIs(t, err, memstore.ErrDuplicateKey)
	assert.Equal(t, 3, s.Len("t"))
}

func TestUpsertManyMergesFields(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.Insert(ctx, "t", doc("a", map[string]string{"f0": "old", "f1": "keep"})))
	require.NoError(t, s.UpsertMany(ctx, "t", []docstore.Document{
		doc("a", map[string]string{"f0": "new"}),
		doc("z", map[string]string{"f0": "fresh"}),
	}))

	got, ok, err := s.Get(ctx, "t", "a", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", string(got.Fields["f0"]))
	assert.Equal(t, "keep", string(got.Fields["f1"]))
	assert.Equal(t, 2, s.Len("t"))
}

func TestUpdateByKey(t *testing.T) {
	s := memstore.New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Insert(ctx, "t", doc(id, map[string]string{"USR": "alice", "f0": id})))
	}

	n, err := s.Update(ctx, "t", "b", map[string][]byte{"USR": []byte("bob")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Update(ctx, "t", "missing", map[string][]byte{"USR": []byte("bob")})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 3, s.Len("t"))

	bob, err := s.FindMeta(ctx, "t", docstore.MetaQuery{Field: docstore.MetaUser, Condition: "bob"})
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, "b", bob[0].ID)
	assert.Equal(t, "b", string(bob[0].Fields["f0"]))

	alice, err := s.FindMeta(ctx, "t", docstore.MetaQuery{Field: docstore.MetaUser, Condition: "alice"})
	require.NoError(t, err)
	assert.Len(t, alice, 2)
}

func TestScanOrderAndExpiry(t *testing.T) {
	s := memstore.New()
	require.NoError(t, s.Insert(ctx, "t", doc("k3", nil)))
	require.NoError(t, s.Insert(ctx, "t", doc("k1", nil)))
	require.NoError(t, s.Insert(ctx, "t", docstore.Stamp(doc("k2", nil), 10, 100)))
	require.NoError(t, s.Insert(ctx, "t", doc("k4", nil)))

	docs, err := s.Scan(ctx, "t", "k2", 2, nil, 110)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "k3", docs[0].ID)
	assert.Equal(t, "k4", docs[1].ID)

	docs, err = s.Scan(ctx, "t", "k2", 2, nil, 109)
	require.NoError(t, err)
	assert.Equal(t, "k2", docs[0].ID)

	n, err := s.DeleteExpired(ctx, "t", 110)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 3, s.Len("t"))
}

func TestMetaOperations(t *testing.T) {
	s := memstore.New()
	for id, pur := range map[string]string{"u1": "ads", "u2": "ads", "x3": "ads", "u4": "mail"} {
		require.NoError(t, s.Insert(ctx, "t", doc(id, map[string]string{"PUR": pur})))
	}

	q := docstore.MetaQuery{Field: docstore.MetaPurpose, Condition: "ads", KeyPattern: "^u"}
	docs, err := s.FindMeta(ctx, "t", q)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	n, err := s.UpdateMeta(ctx, "t", q, "Data", "tagged")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	got, _, err := s.Get(ctx, "t", "u1", nil)
	require.NoError(t, err)
	assert.Equal(t, "tagged", string(got.Fields["Data"]))

	n, err = s.DeleteMeta(ctx, "t", docstore.MetaQuery{Field: docstore.MetaPurpose, Condition: "ads"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 1, s.Len("t"))

	_, err = s.FindMeta(ctx, "t", docstore.MetaQuery{Field: docstore.MetaPurpose, Condition: "ads", KeyPattern: "("})
	assert.Error(t, err)
}

func TestProfile(t *testing.T) {
	s := memstore.New(memstore.WithProfileSize(2))
	require.NoError(t, s.Insert(ctx, "t", doc("a", nil)))
	require.NoError(t, s.Insert(ctx, "t", doc("b", nil)))
	require.NoError(t, s.Insert(ctx, "t", doc("c", nil)))

	entries, err := s.RecentProfile(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0], `"id":"c"`)
	assert.Contains(t, entries[1], `"id":"b"`)

	off := memstore.New(memstore.WithProfiling(false))
	require.NoError(t, off.Insert(ctx, "t", doc("a", nil)))
	entries, err = off.RecentProfile(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFaultsAndClose(t *testing.T) {
	s := memstore.New()
	boom := errors.New("boom")

	s.Fail("Get", "*", boom)
	_, _, err := s.Get(ctx, "t", "a", nil)
	assert.ErrorIs(t, err, boom)
	s.Fail("Get", "*", nil)
	_, ok, err := s.Get(ctx, "t", "a", nil)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Close(ctx))
	assert.True(t, s.Closed())
	assert.ErrorIs(t, s.Close(ctx), memstore.ErrClosed)
	assert.ErrorIs(t, s.Sync(ctx), memstore.ErrClosed)

	conn, err := memstore.Connector(s)(ctx)
	require.NoError(t, err)
	assert.NoError(t, conn.Sync(ctx))
	assert.Equal(t, int64(1), s.Syncs())
}
