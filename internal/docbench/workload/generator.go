package workload

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"strings"

	"github.com/kart-io/docbench/internal/docstore"
	opts "github.com/kart-io/docbench/pkg/options/workload"
)

// Op names one workload operation.
type Op string

// Operations, in report order.
const (
	OpRead       Op = "read"
	OpUpdate     Op = "update"
	OpInsert     Op = "insert"
	OpScan       Op = "scan"
	OpDelete     Op = "delete"
	OpInsertTTL  Op = "insert-ttl"
	OpVerifyTTL  Op = "verify-ttl"
	OpReadMeta   Op = "read-meta"
	OpUpdateMeta Op = "update-meta"
	OpDeleteMeta Op = "delete-meta"
	OpCleanup    Op = "cleanup"
)

// AllOps lists every operation in report order.
var AllOps = []Op{
	OpRead, OpUpdate, OpInsert, OpScan, OpDelete,
	OpInsertTTL, OpVerifyTTL, OpReadMeta, OpUpdateMeta, OpDeleteMeta, OpCleanup,
}

// Label is the report heading of an operation, e.g. READ-META.
func (o Op) Label() string {
	return strings.ToUpper(string(o))
}

type weighted struct {
	op  Op
	cum float64
}

// chooser picks operations in proportion to their weights.
type chooser struct {
	ops   []weighted
	total float64
}

func newChooser(p opts.Proportions) *chooser {
	c := &chooser{}
	for _, w := range []struct {
		op Op
		w  float64
	}{
		{OpRead, p.Read},
		{OpUpdate, p.Update},
		{OpInsert, p.Insert},
		{OpScan, p.Scan},
		{OpDelete, p.Delete},
		{OpInsertTTL, p.InsertTTL},
		{OpVerifyTTL, p.VerifyTTL},
		{OpReadMeta, p.ReadMeta},
		{OpUpdateMeta, p.UpdateMeta},
		{OpDeleteMeta, p.DeleteMeta},
	} {
		if w.w <= 0 {
			continue
		}
		c.total += w.w
		c.ops = append(c.ops, weighted{op: w.op, cum: c.total})
	}
	return c
}

func (c *chooser) next(r *rand.Rand) Op {
	x := r.Float64() * c.total
	for _, w := range c.ops {
		if x < w.cum {
			return w.op
		}
	}
	return c.ops[len(c.ops)-1].op
}

// HashKey is FNV-1a over the eight little-endian bytes of n, made
// non-negative. Hashed keys spread sequential inserts across the key space.
func HashKey(n int64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(n))
	h := fnv.New64a()
	_, _ = h.Write(b[:])
	v := int64(h.Sum64())
	if v < 0 {
		v = -v
	}
	return uint64(v)
}

// Generator produces keys, values and operations for one worker. It is not
// safe for concurrent use.
type Generator struct {
	o      *opts.Options
	r      *rand.Rand
	choose *chooser

	zipf      *rand.Zipf
	zipfUpper int64
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(o *opts.Options, seed int64) *Generator {
	return &Generator{
		o:      o,
		r:      rand.New(rand.NewSource(seed)),
		choose: newChooser(o.Proportions),
	}
}

// Key builds the document key of record n.
func (g *Generator) Key(n int64) string {
	if g.o.OrderedInserts {
		return g.o.KeyPrefix + strconv.FormatInt(n, 10)
	}
	return g.o.KeyPrefix + strconv.FormatUint(HashKey(n), 10)
}

// NextOp picks the next run-phase operation.
func (g *Generator) NextOp() Op {
	return g.choose.next(g.r)
}

// KeyNum picks an existing record number in [0, upper).
func (g *Generator) KeyNum(upper int64) int64 {
	if upper <= 1 {
		return 0
	}
	if g.o.Distribution == opts.DistributionZipfian {
		return g.zipfNum(upper)
	}
	return g.r.Int63n(upper)
}

// zipfNum draws from a Zipf distribution with exponent 1.1 and scatters the
// popular ranks over the key space. The distribution is rebuilt when the key
// space grows.
func (g *Generator) zipfNum(upper int64) int64 {
	if g.zipf == nil || g.zipfUpper != upper {
		g.zipf = rand.NewZipf(g.r, 1.1, 1, uint64(upper-1))
		g.zipfUpper = upper
	}
	return int64(HashKey(int64(g.zipf.Uint64())) % uint64(upper))
}

// MetaValue is the value metadata field f holds on record n.
func (g *Generator) MetaValue(f docstore.MetaField, n int64) string {
	return fmt.Sprintf("%s-%d", strings.ToLower(f.String()), n%int64(g.o.MetaCardinality))
}

// RandomMetaQuery picks a metadata field and one of its values.
func (g *Generator) RandomMetaQuery() (int, string) {
	fields := docstore.MetaFields()
	f := fields[g.r.Intn(len(fields))]
	return int(f), g.MetaValue(f, g.r.Int63n(int64(g.o.MetaCardinality)))
}

// MetaUpdate picks the value an update-meta operation writes. Only the Data
// field is rewritten, leaving the TTL field alone.
func (g *Generator) MetaUpdate() (string, string) {
	f := docstore.MetaData
	return f.String(), g.MetaValue(f, g.r.Int63n(int64(g.o.MetaCardinality)))
}

// FieldName is the name of data field i.
func FieldName(i int) string {
	return "field" + strconv.Itoa(i)
}

// Values builds a full record for key number n: every data field filled with
// random bytes plus every metadata field.
func (g *Generator) Values(n int64) map[string][]byte {
	out := make(map[string][]byte, g.o.FieldCount+len(docstore.MetaFields()))
	for i := 0; i < g.o.FieldCount; i++ {
		out[FieldName(i)] = g.bytes()
	}
	for _, f := range docstore.MetaFields() {
		out[f.String()] = []byte(g.MetaValue(f, n))
	}
	return out
}

// UpdateValues builds the fields written by one update: all data fields when
// reading all fields, else one.
func (g *Generator) UpdateValues() map[string][]byte {
	if g.o.ReadAllFields {
		out := make(map[string][]byte, g.o.FieldCount)
		for i := 0; i < g.o.FieldCount; i++ {
			out[FieldName(i)] = g.bytes()
		}
		return out
	}
	return map[string][]byte{FieldName(g.r.Intn(g.o.FieldCount)): g.bytes()}
}

// ReadFields is the projection of a read or scan; nil means every field.
func (g *Generator) ReadFields() []string {
	if g.o.ReadAllFields {
		return nil
	}
	return []string{FieldName(g.r.Intn(g.o.FieldCount))}
}

// ScanLength picks a scan length in [1, max-scan-length].
func (g *Generator) ScanLength() int {
	return 1 + g.r.Intn(g.o.MaxScanLength)
}

// bytes returns FieldLength printable random bytes.
func (g *Generator) bytes() []byte {
	b := make([]byte, g.o.FieldLength)
	for i := range b {
		b[i] = byte(' ' + g.r.Intn(95))
	}
	return b
}
