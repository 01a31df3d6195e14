package redisstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docbench/internal/docstore"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "usertable:doc:user1", docKey("usertable", "user1"))
	assert.Equal(t, "usertable:ids", idsKey("usertable"))
	assert.Equal(t, "usertable:exp", expKey("usertable"))
}

func TestEncodeHash(t *testing.T) {
	doc := docstore.Stamp(docstore.NewDocument("user1", map[string][]byte{
		"field0": []byte("a"),
	}), 30, 100)

	h := encodeHash(doc)
	assert.Equal(t, map[string]interface{}{
		"_id":       "user1",
		"field0":    []byte("a"),
		"createdAt": "100",
		"TTL":       "30",
		"expiresAt": "130",
	}, h)

	assert.Equal(t, map[string]interface{}{"_id": "empty"}, encodeHash(docstore.NewDocument("empty", nil)))
}

func TestDecodeHash(t *testing.T) {
	tests := []struct {
		name   string
		in     map[string]string
		fields map[string][]byte
		expiry *docstore.Expiry
	}{
		{
			name:   "plain",
			in:     map[string]string{"_id": "k", "field0": "a"},
			fields: map[string][]byte{"field0": []byte("a")},
		},
		{
			name:   "stamped",
			in:     map[string]string{"_id": "k", "createdAt": "5", "TTL": "10", "expiresAt": "15"},
			fields: map[string][]byte{},
			expiry: &docstore.Expiry{CreatedAt: 5, TTL: 10, ExpiresAt: 15},
		},
		{
			name:   "TTL without stamp is a field",
			in:     map[string]string{"_id": "k", "TTL": "30d"},
			fields: map[string][]byte{"TTL": []byte("30d")},
		},
		{
			name:   "unparseable expiresAt",
			in:     map[string]string{"_id": "k", "expiresAt": "soon"},
			fields: map[string][]byte{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeHash("k", tt.in)
			assert.Equal(t, "k", got.ID)
			assert.Equal(t, tt.fields, got.Fields)
			assert.Equal(t, tt.expiry, got.Expiry)
		})
	}
}

func TestDecodeAllRequiresID(t *testing.T) {
	_, ok := decodeAll("k", map[string]string{"field0": "a"})
	assert.False(t, ok)
	_, ok = decodeAll("k", map[string]string{})
	assert.False(t, ok)

	d, ok := decodeAll("k", map[string]string{"_id": "k", "field0": "a"})
	require.True(t, ok)
	assert.Equal(t, map[string][]byte{"field0": []byte("a")}, d.Fields)
}

func TestUpdateArgs(t *testing.T) {
	assert.Empty(t, updateArgs(nil))
	assert.Equal(t, []interface{}{"field0", []byte("x")}, updateArgs(map[string][]byte{"field0": []byte("x")}))
}

func TestDecodeFields(t *testing.T) {
	names := withReserved([]string{"field1"})
	require.Equal(t, []string{"field1", "_id", "createdAt", "TTL", "expiresAt"}, names)

	d, ok := decodeFields("k", names, []interface{}{"b", "k", "1", "2", "3"})
	require.True(t, ok)
	assert.Equal(t, map[string][]byte{"field1": []byte("b")}, d.Fields)
	assert.Equal(t, &docstore.Expiry{CreatedAt: 1, TTL: 2, ExpiresAt: 3}, d.Expiry)

	d, ok = decodeFields("k", names, []interface{}{nil, "k", nil, nil, nil})
	require.True(t, ok)
	assert.Empty(t, d.Fields)
	assert.Nil(t, d.Expiry)

	_, ok = decodeFields("k", names, []interface{}{nil, nil, nil, nil, nil})
	assert.False(t, ok)
}
