package docstore

// Reserved document field names.
const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
	FieldTTL       = "TTL"
	FieldExpiresAt = "expiresAt"
)

// Expiry is the write-time TTL stamp of a document. All values are seconds;
// ExpiresAt is always CreatedAt + TTL.
type Expiry struct {
	CreatedAt int64
	TTL       int64
	ExpiresAt int64
}

// Document is one record: an identifier, byte-valued fields and an optional
// expiry stamp. A document without an expiry never expires.
type Document struct {
	ID     string
	Fields map[string][]byte
	Expiry *Expiry
}

// NewDocument builds a document from a key and its field values.
// The values map is copied; byte slices are shared.
func NewDocument(key string, values map[string][]byte) Document {
	fields := make(map[string][]byte, len(values))
	for k, v := range values {
		fields[k] = v
	}
	return Document{ID: key, Fields: fields}
}

// Project returns the document's fields restricted to names. A nil or empty
// selector returns every field. Reserved names are never part of the result.
func (d Document) Project(names []string) map[string][]byte {
	if len(names) == 0 {
		out := make(map[string][]byte, len(d.Fields))
		for k, v := range d.Fields {
			if !isReserved(k) {
				out[k] = v
			}
		}
		return out
	}
	out := make(map[string][]byte, len(names))
	for _, name := range names {
		if isReserved(name) {
			continue
		}
		if v, ok := d.Fields[name]; ok {
			out[name] = v
		}
	}
	return out
}

// Clone returns a deep copy of the document's map and expiry.
func (d Document) Clone() Document {
	c := Document{ID: d.ID, Fields: make(map[string][]byte, len(d.Fields))}
	for k, v := range d.Fields {
		c.Fields[k] = v
	}
	if d.Expiry != nil {
		e := *d.Expiry
		c.Expiry = &e
	}
	return c
}

func isReserved(name string) bool {
	switch name {
	case FieldID, FieldCreatedAt, FieldExpiresAt:
		return true
	}
	return false
}
