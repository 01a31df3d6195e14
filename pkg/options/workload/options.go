// Package workload provides options for the benchmark workload.
package workload

import (
	"github.com/spf13/pflag"

	"github.com/kart-io/docbench/pkg/errors"
	"github.com/kart-io/docbench/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Request distributions.
const (
	DistributionUniform = "uniform"
	DistributionZipfian = "zipfian"
)

// Proportions weight the operations of the run phase. They need not sum to 1.
type Proportions struct {
	Read       float64 `json:"read" mapstructure:"read"`
	Update     float64 `json:"update" mapstructure:"update"`
	Insert     float64 `json:"insert" mapstructure:"insert"`
	Scan       float64 `json:"scan" mapstructure:"scan"`
	Delete     float64 `json:"delete" mapstructure:"delete"`
	InsertTTL  float64 `json:"insert-ttl" mapstructure:"insert-ttl"`
	VerifyTTL  float64 `json:"verify-ttl" mapstructure:"verify-ttl"`
	ReadMeta   float64 `json:"read-meta" mapstructure:"read-meta"`
	UpdateMeta float64 `json:"update-meta" mapstructure:"update-meta"`
	DeleteMeta float64 `json:"delete-meta" mapstructure:"delete-meta"`
}

// Total returns the sum of all weights.
func (p Proportions) Total() float64 {
	return p.Read + p.Update + p.Insert + p.Scan + p.Delete +
		p.InsertTTL + p.VerifyTTL + p.ReadMeta + p.UpdateMeta + p.DeleteMeta
}

func (p Proportions) negative() bool {
	for _, w := range []float64{p.Read, p.Update, p.Insert, p.Scan, p.Delete,
		p.InsertTTL, p.VerifyTTL, p.ReadMeta, p.UpdateMeta, p.DeleteMeta} {
		if w < 0 {
			return true
		}
	}
	return false
}

// Options defines the workload shape.
type Options struct {
	Table          string `json:"table" mapstructure:"table"`
	RecordCount    int64  `json:"record-count" mapstructure:"record-count"`
	OperationCount int64  `json:"operation-count" mapstructure:"operation-count"`
	Threads        int    `json:"threads" mapstructure:"threads"`
	FieldCount     int    `json:"field-count" mapstructure:"field-count"`
	FieldLength    int    `json:"field-length" mapstructure:"field-length"`
	ReadAllFields  bool   `json:"read-all-fields" mapstructure:"read-all-fields"`
	KeyPrefix      string `json:"key-prefix" mapstructure:"key-prefix"`
	OrderedInserts bool   `json:"ordered-inserts" mapstructure:"ordered-inserts"`
	Distribution   string `json:"distribution" mapstructure:"distribution"`
	MaxScanLength  int    `json:"max-scan-length" mapstructure:"max-scan-length"`
	// TTL is the lifetime in seconds of documents written by insert-ttl.
	TTL int64 `json:"ttl" mapstructure:"ttl"`
	// LoadTTL stamps every document of the load phase with TTL.
	LoadTTL bool `json:"load-ttl" mapstructure:"load-ttl"`
	// MetaCardinality is how many distinct values each metadata field takes.
	MetaCardinality int   `json:"meta-cardinality" mapstructure:"meta-cardinality"`
	Seed            int64 `json:"seed" mapstructure:"seed"`

	Proportions Proportions `json:"proportion" mapstructure:"proportion"`

	// Report outputs. Empty paths are skipped.
	ReportJSON  string `json:"report-json" mapstructure:"report-json"`
	ReportCSV   string `json:"report-csv" mapstructure:"report-csv"`
	MetricsPath string `json:"metrics-path" mapstructure:"metrics-path"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Table:           "usertable",
		RecordCount:     1000,
		OperationCount:  1000,
		Threads:         1,
		FieldCount:      10,
		FieldLength:     100,
		ReadAllFields:   true,
		KeyPrefix:       "user",
		Distribution:    DistributionUniform,
		MaxScanLength:   1000,
		TTL:             3600,
		MetaCardinality: 10,
		Proportions: Proportions{
			Read:   0.95,
			Update: 0.05,
		},
	}
}

// Complete completes the options.
func (o *Options) Complete() error {
	if o.Threads < 1 {
		o.Threads = 1
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	invalid := func(format string, args ...interface{}) {
		errs = append(errs, errors.ErrInvalidConfig.WithMessagef(format, args...))
	}

	if o.Table == "" {
		invalid("workload.table must not be empty")
	}
	if o.RecordCount < 0 || o.OperationCount < 0 {
		invalid("workload.record-count and workload.operation-count must not be negative")
	}
	if o.FieldCount < 1 || o.FieldLength < 1 {
		invalid("workload.field-count and workload.field-length must be positive")
	}
	if o.MaxScanLength < 1 {
		invalid("workload.max-scan-length must be positive, got %d", o.MaxScanLength)
	}
	if o.TTL < 0 {
		invalid("workload.ttl must not be negative, got %d", o.TTL)
	}
	if o.MetaCardinality < 1 {
		invalid("workload.meta-cardinality must be positive, got %d", o.MetaCardinality)
	}
	switch o.Distribution {
	case DistributionUniform, DistributionZipfian:
	default:
		invalid("workload.distribution must be %s or %s, got %q", DistributionUniform, DistributionZipfian, o.Distribution)
	}
	if o.Proportions.negative() {
		invalid("workload.proportion.* must not be negative")
	} else if o.Proportions.Total() == 0 {
		invalid("at least one workload.proportion.* must be positive")
	}
	return errs
}

// AddFlags adds flags for workload options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "workload."
	fs.StringVar(&o.Table, p+"table", o.Table, "Collection the workload writes to")
	fs.Int64Var(&o.RecordCount, p+"record-count", o.RecordCount, "Documents inserted by the load phase")
	fs.Int64Var(&o.OperationCount, p+"operation-count", o.OperationCount, "Operations performed by the run phase")
	fs.IntVarP(&o.Threads, p+"threads", "t", o.Threads, "Concurrent workers")
	fs.IntVar(&o.FieldCount, p+"field-count", o.FieldCount, "Data fields per document")
	fs.IntVar(&o.FieldLength, p+"field-length", o.FieldLength, "Bytes per data field")
	fs.BoolVar(&o.ReadAllFields, p+"read-all-fields", o.ReadAllFields, "Read every field instead of one random field")
	fs.StringVar(&o.KeyPrefix, p+"key-prefix", o.KeyPrefix, "Prefix of generated document keys")
	fs.BoolVar(&o.OrderedInserts, p+"ordered-inserts", o.OrderedInserts, "Use sequential keys instead of hashed ones")
	fs.StringVar(&o.Distribution, p+"distribution", o.Distribution, "Request key distribution (uniform|zipfian)")
	fs.IntVar(&o.MaxScanLength, p+"max-scan-length", o.MaxScanLength, "Maximum documents returned by one scan")
	fs.Int64Var(&o.TTL, p+"ttl", o.TTL, "Lifetime in seconds of TTL-stamped documents")
	fs.BoolVar(&o.LoadTTL, p+"load-ttl", o.LoadTTL, "Stamp documents of the load phase with the TTL")
	fs.IntVar(&o.MetaCardinality, p+"meta-cardinality", o.MetaCardinality, "Distinct values per metadata field")
	fs.Int64Var(&o.Seed, p+"seed", o.Seed, "Random seed. 0 picks one from the clock.")

	fs.Float64Var(&o.Proportions.Read, p+"proportion.read", o.Proportions.Read, "Weight of read operations")
	fs.Float64Var(&o.Proportions.Update, p+"proportion.update", o.Proportions.Update, "Weight of update operations")
	fs.Float64Var(&o.Proportions.Insert, p+"proportion.insert", o.Proportions.Insert, "Weight of insert operations")
	fs.Float64Var(&o.Proportions.Scan, p+"proportion.scan", o.Proportions.Scan, "Weight of scan operations")
	fs.Float64Var(&o.Proportions.Delete, p+"proportion.delete", o.Proportions.Delete, "Weight of delete operations")
	fs.Float64Var(&o.Proportions.InsertTTL, p+"proportion.insert-ttl", o.Proportions.InsertTTL, "Weight of TTL insert operations")
	fs.Float64Var(&o.Proportions.VerifyTTL, p+"proportion.verify-ttl", o.Proportions.VerifyTTL, "Weight of TTL verification operations")
	fs.Float64Var(&o.Proportions.ReadMeta, p+"proportion.read-meta", o.Proportions.ReadMeta, "Weight of metadata reads")
	fs.Float64Var(&o.Proportions.UpdateMeta, p+"proportion.update-meta", o.Proportions.UpdateMeta, "Weight of metadata updates")
	fs.Float64Var(&o.Proportions.DeleteMeta, p+"proportion.delete-meta", o.Proportions.DeleteMeta, "Weight of metadata deletes")

	fs.StringVar(&o.ReportJSON, p+"report-json", o.ReportJSON, "Write the report as JSON to this path")
	fs.StringVar(&o.ReportCSV, p+"report-csv", o.ReportCSV, "Write the report as CSV to this path")
	fs.StringVar(&o.MetricsPath, p+"metrics-path", o.MetricsPath, "Write latency histograms in Prometheus text format to this path")
}
