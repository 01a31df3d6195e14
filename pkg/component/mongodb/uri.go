package mongodb

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/kart-io/docbench/pkg/errors"
	options "github.com/kart-io/docbench/pkg/options/mongodb"
)

// DefaultDatabase is used when the connection string names no usable database.
const DefaultDatabase = "ycsb"

// ConnInfo is what a connection string resolves to before connecting.
type ConnInfo struct {
	URL            string
	Database       string
	ReadPreference string
	WriteConcern   string
}

// ParseURL validates a connection string and resolves its database and
// read/write defaults. The database is the URL path unless that is empty or
// "admin", in which case DefaultDatabase is used.
func ParseURL(raw string) (*ConnInfo, error) {
	if !strings.HasPrefix(raw, options.SchemeStandard) && !strings.HasPrefix(raw, options.SchemeSRV) {
		return nil, errors.ErrInvalidConfig.WithMessagef(
			"mongodb url must start with %s or %s", options.SchemeStandard, options.SchemeSRV)
	}

	cs, err := connstring.Parse(raw)
	if err != nil {
		return nil, errors.ErrInvalidConfig.WithCause(err).WithMessage("parse mongodb url")
	}

	info := &ConnInfo{
		URL:            raw,
		Database:       cs.Database,
		ReadPreference: cs.ReadPreference,
		WriteConcern:   "w=1",
	}
	if info.Database == "" || info.Database == "admin" {
		info.Database = DefaultDatabase
	}
	if info.ReadPreference == "" {
		info.ReadPreference = "primary"
	}
	switch {
	case cs.WString != "":
		info.WriteConcern = "w=" + cs.WString
	case cs.WNumberSet:
		info.WriteConcern = fmt.Sprintf("w=%d", cs.WNumber)
	}
	if cs.JSet && cs.J {
		info.WriteConcern += ",j=true"
	}
	return info, nil
}
