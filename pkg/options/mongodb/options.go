// Package mongodb provides MongoDB connection options.
package mongodb

import (
	"encoding/json"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/docbench/pkg/errors"
	"github.com/kart-io/docbench/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// DefaultURL is the connection string used when none is configured.
const DefaultURL = "mongodb://localhost:27017/ycsb?w=1"

// Accepted connection string schemes.
const (
	SchemeStandard = "mongodb://"
	SchemeSRV      = "mongodb+srv://"
)

// Options defines configuration options for MongoDB.
type Options struct {
	// URL is the full connection string. Its path selects the database.
	URL string `json:"url" mapstructure:"url"`

	// Connection Pool
	MaxPoolSize     uint64        `json:"max-pool-size" mapstructure:"max-pool-size"`
	MinPoolSize     uint64        `json:"min-pool-size" mapstructure:"min-pool-size"`
	MaxConnIdleTime time.Duration `json:"max-conn-idle-time" mapstructure:"max-conn-idle-time"`

	// Timeouts
	ConnectTimeout         time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	SocketTimeout          time.Duration `json:"socket-timeout" mapstructure:"socket-timeout"`
	ServerSelectionTimeout time.Duration `json:"server-selection-timeout" mapstructure:"server-selection-timeout"`

	Direct bool `json:"direct" mapstructure:"direct"`
}

type optionsForJSON Options

// MarshalJSON implements json.Marshaler with the URL password redacted.
func (o *Options) MarshalJSON() ([]byte, error) {
	c := optionsForJSON(*o)
	c.URL = RedactURL(o.URL)
	return json.Marshal(c)
}

// String returns a string representation with the password redacted.
func (o *Options) String() string {
	return "MongoDB{url=" + RedactURL(o.URL) + "}"
}

// RedactURL hides the password of a connection string.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		URL:                    DefaultURL,
		MaxPoolSize:            100,
		MinPoolSize:            0,
		MaxConnIdleTime:        5 * time.Minute,
		ConnectTimeout:         10 * time.Second,
		SocketTimeout:          30 * time.Second,
		ServerSelectionTimeout: 30 * time.Second,
	}
}

// Complete fills in the connection string from MONGODB_URL when unset.
func (o *Options) Complete() error {
	if o.URL == "" {
		o.URL = os.Getenv("MONGODB_URL")
	}
	if o.URL == "" {
		o.URL = DefaultURL
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if !strings.HasPrefix(o.URL, SchemeStandard) && !strings.HasPrefix(o.URL, SchemeSRV) {
		errs = append(errs, errors.ErrInvalidConfig.WithMessagef(
			"mongodb.url must start with %s or %s, got %q", SchemeStandard, SchemeSRV, RedactURL(o.URL)))
	}
	if o.MinPoolSize > o.MaxPoolSize && o.MaxPoolSize > 0 {
		errs = append(errs, errors.ErrInvalidConfig.WithMessagef(
			"mongodb.min-pool-size %d exceeds mongodb.max-pool-size %d", o.MinPoolSize, o.MaxPoolSize))
	}
	return errs
}

// AddFlags adds flags for MongoDB options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "mongodb."
	fs.StringVar(&o.URL, p+"url", o.URL, "MongoDB connection string (mongodb:// or mongodb+srv://). The path selects the database.")
	fs.Uint64Var(&o.MaxPoolSize, p+"max-pool-size", o.MaxPoolSize, "Maximum number of connections in the pool.")
	fs.Uint64Var(&o.MinPoolSize, p+"min-pool-size", o.MinPoolSize, "Minimum number of connections in the pool.")
	fs.DurationVar(&o.MaxConnIdleTime, p+"max-conn-idle-time", o.MaxConnIdleTime, "Maximum connection idle time.")
	fs.DurationVar(&o.ConnectTimeout, p+"connect-timeout", o.ConnectTimeout, "Timeout for connection.")
	fs.DurationVar(&o.SocketTimeout, p+"socket-timeout", o.SocketTimeout, "Timeout for socket operations.")
	fs.DurationVar(&o.ServerSelectionTimeout, p+"server-selection-timeout", o.ServerSelectionTimeout, "Timeout for server selection.")
	fs.BoolVar(&o.Direct, p+"direct", o.Direct, "Connect directly to a single host.")
}
