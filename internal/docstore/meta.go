package docstore

// MetaField names one of the fixed per-document metadata attributes.
type MetaField int

// Metadata fields, in ordinal order.
const (
	MetaPurpose MetaField = iota
	MetaTTL
	MetaUser
	MetaObjection
	MetaDecision
	MetaACL
	MetaShare
	MetaSource
	MetaCategory
	MetaData
)

var metaFieldNames = [...]string{
	MetaPurpose:   "PUR",
	MetaTTL:       "TTL",
	MetaUser:      "USR",
	MetaObjection: "OBJ",
	MetaDecision:  "DEC",
	MetaACL:       "ACL",
	MetaShare:     "SHR",
	MetaSource:    "SRC",
	MetaCategory:  "CAT",
	MetaData:      "Data",
}

// String returns the stored field name.
func (f MetaField) String() string {
	if !f.Valid() {
		return "unknown"
	}
	return metaFieldNames[f]
}

// Valid reports whether f is inside the field table.
func (f MetaField) Valid() bool {
	return f >= 0 && int(f) < len(metaFieldNames)
}

// MetaFieldAt maps an ordinal to its field.
func MetaFieldAt(i int) (MetaField, error) {
	f := MetaField(i)
	if !f.Valid() {
		return 0, ErrInvalidMetaField.WithMessagef("metadata field index %d out of range [0,%d)", i, len(metaFieldNames))
	}
	return f, nil
}

// MetaFields returns every metadata field in ordinal order.
func MetaFields() []MetaField {
	out := make([]MetaField, len(metaFieldNames))
	for i := range out {
		out[i] = MetaField(i)
	}
	return out
}
