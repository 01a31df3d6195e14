package mongostore

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kart-io/docbench/internal/docstore"
)

// encode lays a document out as stored: _id, the byte fields as binary, and
// the expiry stamp as int64 seconds.
func encode(d docstore.Document) bson.D {
	out := make(bson.D, 0, len(d.Fields)+4)
	out = append(out, bson.E{Key: docstore.FieldID, Value: d.ID})
	out = append(out, setFields(d)...)
	return out
}

// setFields is encode without _id, for $set updates.
func setFields(d docstore.Document) bson.D {
	out := make(bson.D, 0, len(d.Fields)+3)
	for k, v := range d.Fields {
		out = append(out, bson.E{Key: k, Value: v})
	}
	if e := d.Expiry; e != nil {
		out = append(out,
			bson.E{Key: docstore.FieldCreatedAt, Value: e.CreatedAt},
			bson.E{Key: docstore.FieldTTL, Value: e.TTL},
			bson.E{Key: docstore.FieldExpiresAt, Value: e.ExpiresAt},
		)
	}
	return out
}

func valuesSet(values map[string][]byte) bson.D {
	out := make(bson.D, 0, len(values))
	for k, v := range values {
		out = append(out, bson.E{Key: k, Value: v})
	}
	return out
}

// decode maps a stored document back. Binary and string values become
// fields; a numeric expiresAt makes the numeric createdAt/TTL/expiresAt the
// stamp. Any other value type is dropped.
func decode(m bson.M) docstore.Document {
	d := docstore.Document{Fields: make(map[string][]byte, len(m))}
	if id, ok := m[docstore.FieldID]; ok {
		d.ID = idString(id)
	}

	if exp, ok := toInt64(m[docstore.FieldExpiresAt]); ok {
		created, _ := toInt64(m[docstore.FieldCreatedAt])
		ttl, ok := toInt64(m[docstore.FieldTTL])
		if !ok {
			ttl = exp - created
		}
		d.Expiry = &docstore.Expiry{CreatedAt: created, TTL: ttl, ExpiresAt: exp}
	}

	for k, v := range m {
		switch k {
		case docstore.FieldID, docstore.FieldCreatedAt, docstore.FieldExpiresAt:
			continue
		case docstore.FieldTTL:
			if d.Expiry != nil {
				continue
			}
		}
		switch x := v.(type) {
		case primitive.Binary:
			d.Fields[k] = x.Data
		case []byte:
			d.Fields[k] = x
		case string:
			d.Fields[k] = []byte(x)
		}
	}
	return d
}

func idString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case primitive.ObjectID:
		return x.Hex()
	default:
		return ""
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func byID(id string) bson.D {
	return bson.D{{Key: docstore.FieldID, Value: id}}
}

// liveRange selects identifiers >= start that are not expired at now.
func liveRange(start string, now int64) bson.D {
	return bson.D{
		{Key: docstore.FieldID, Value: bson.D{{Key: "$gte", Value: start}}},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: docstore.FieldExpiresAt, Value: bson.D{{Key: "$exists", Value: false}}}},
			bson.D{{Key: docstore.FieldExpiresAt, Value: bson.D{{Key: "$gt", Value: now}}}},
		}},
	}
}

func expiredAt(now int64) bson.D {
	return bson.D{{Key: docstore.FieldExpiresAt, Value: bson.D{{Key: "$lte", Value: now}}}}
}

// metaFilter matches the condition whether the field was written as binary
// (inserts) or as a string (metadata updates).
func metaFilter(q docstore.MetaQuery) bson.D {
	f := bson.D{}
	if q.KeyPattern != "" {
		f = append(f, bson.E{Key: docstore.FieldID, Value: bson.D{{Key: "$regex", Value: q.KeyPattern}}})
	}
	f = append(f, bson.E{Key: q.Field.String(), Value: bson.D{{Key: "$in", Value: bson.A{
		q.Condition,
		primitive.Binary{Data: []byte(q.Condition)},
	}}}})
	return f
}

// projection keeps the selected fields plus the expiry stamp. A nil selector
// returns the whole document.
func projection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	stamp := []string{docstore.FieldCreatedAt, docstore.FieldTTL, docstore.FieldExpiresAt}
	p := make(bson.D, 0, len(fields)+len(stamp))
	seen := make(map[string]struct{}, len(fields)+len(stamp))
	for _, f := range append(append([]string(nil), fields...), stamp...) {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		p = append(p, bson.E{Key: f, Value: 1})
	}
	return p
}
