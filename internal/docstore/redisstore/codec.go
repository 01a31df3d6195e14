package redisstore

import (
	"strconv"

	"github.com/kart-io/docbench/internal/docstore"
)

// collectionsKey is the set of every collection that has been written.
const collectionsKey = "docbench:collections"

// Key layout of one collection:
//
//	<coll>:doc:<id>  hash of the document's fields and expiry stamp
//	<coll>:ids       sorted set of identifiers, all score 0, ordered by lex
//	<coll>:exp       sorted set of stamped identifiers scored by expiresAt
func docKey(coll, id string) string { return coll + ":doc:" + id }
func idsKey(coll string) string     { return coll + ":ids" }
func expKey(coll string) string     { return coll + ":exp" }

// reservedFields are fetched alongside every projection.
var reservedFields = []string{docstore.FieldID, docstore.FieldCreatedAt, docstore.FieldTTL, docstore.FieldExpiresAt}

// encodeHash flattens a document into HSET arguments. The identifier is kept
// in the hash so a document without fields still exists; the stamp is
// written as decimal seconds.
func encodeHash(d docstore.Document) map[string]interface{} {
	h := make(map[string]interface{}, len(d.Fields)+4)
	h[docstore.FieldID] = d.ID
	for k, v := range d.Fields {
		h[k] = v
	}
	if e := d.Expiry; e != nil {
		h[docstore.FieldCreatedAt] = strconv.FormatInt(e.CreatedAt, 10)
		h[docstore.FieldTTL] = strconv.FormatInt(e.TTL, 10)
		h[docstore.FieldExpiresAt] = strconv.FormatInt(e.ExpiresAt, 10)
	}
	return h
}

// decodeHash rebuilds a document from HGETALL output. A parseable expiresAt
// makes createdAt and TTL the stamp; without one TTL is an ordinary field.
func decodeHash(id string, h map[string]string) docstore.Document {
	d := docstore.Document{ID: id, Fields: make(map[string][]byte, len(h))}

	if exp, err := strconv.ParseInt(h[docstore.FieldExpiresAt], 10, 64); err == nil {
		created, _ := strconv.ParseInt(h[docstore.FieldCreatedAt], 10, 64)
		ttl, err := strconv.ParseInt(h[docstore.FieldTTL], 10, 64)
		if err != nil {
			ttl = exp - created
		}
		d.Expiry = &docstore.Expiry{CreatedAt: created, TTL: ttl, ExpiresAt: exp}
	}

	for k, v := range h {
		switch k {
		case docstore.FieldID, docstore.FieldCreatedAt, docstore.FieldExpiresAt:
			continue
		case docstore.FieldTTL:
			if d.Expiry != nil {
				continue
			}
		}
		d.Fields[k] = []byte(v)
	}
	return d
}

// decodeAll rebuilds a document from HGETALL output. A hash without the
// identifier is treated as absent.
func decodeAll(id string, h map[string]string) (docstore.Document, bool) {
	if _, ok := h[docstore.FieldID]; !ok {
		return docstore.Document{}, false
	}
	return decodeHash(id, h), true
}

// decodeFields rebuilds a projected document from HMGET output, where
// names[i] is paired with vals[i] and a nil value means the field is absent.
// It reports false when the hash itself does not exist.
func decodeFields(id string, names []string, vals []interface{}) (docstore.Document, bool) {
	h := make(map[string]string, len(names))
	for i, name := range names {
		if i >= len(vals) {
			break
		}
		if s, ok := vals[i].(string); ok {
			h[name] = s
		}
	}
	if _, ok := h[docstore.FieldID]; !ok {
		return docstore.Document{}, false
	}
	return decodeHash(id, h), true
}

// withReserved appends the identifier and stamp fields to a projection.
func withReserved(fields []string) []string {
	out := make([]string, 0, len(fields)+len(reservedFields))
	out = append(out, fields...)
	return append(out, reservedFields...)
}
