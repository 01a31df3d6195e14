// Package memstore is an in-process docstore.Store. It backs the unit tests
// and the "memory" backend of the benchmark, where it measures the harness
// itself without a network hop.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/pkg/cache"
	"github.com/kart-io/docbench/pkg/utils/json"
)

// DefaultProfileSize is how many operation-profile entries are retained.
const DefaultProfileSize = 1024

// ErrDuplicateKey is returned when inserting an identifier that already exists.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("store is closed")

type table = cache.Store[string, docstore.Document]

// Store keeps each collection in an indexed MemoryCache. Every Store method
// is one atomic cache call per document set, matching the per-operation
// atomicity of a real document database.
type Store struct {
	mu    sync.RWMutex
	colls map[string]table

	profileMu   sync.Mutex
	profile     []string
	profileSize int
	profiling   bool

	faultMu sync.RWMutex
	faults  map[string]error

	closed atomic.Bool
	syncs  atomic.Int64
}

// Option configures a Store.
type Option func(*Store)

// WithProfileSize bounds the retained operation profile.
func WithProfileSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.profileSize = n
		}
	}
}

// WithProfiling toggles operation profiling. It is on by default.
func WithProfiling(enabled bool) Option {
	return func(s *Store) {
		s.profiling = enabled
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		colls:       make(map[string]table),
		profileSize: DefaultProfileSize,
		profiling:   true,
		faults:      make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connector returns a docstore.Connector handing out s, reopened if a
// previous handle closed it.
func Connector(s *Store) docstore.Connector {
	return func(context.Context) (docstore.Store, error) {
		s.Reopen()
		return s, nil
	}
}

// Fail makes every subsequent op on coll return err. A nil err clears it.
// op is a Store method name such as "DeleteExpired"; coll "*" matches any.
func (s *Store) Fail(op, coll string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	k := op + "/" + coll
	if err == nil {
		delete(s.faults, k)
		return
	}
	s.faults[k] = err
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	return s.closed.Load()
}

// Syncs returns how many times Sync was called.
func (s *Store) Syncs() int64 {
	return s.syncs.Load()
}

// Len returns the physical number of documents in coll, expired ones included.
func (s *Store) Len(coll string) int {
	t := s.lookup(coll)
	if t == nil {
		return 0
	}
	return t.Len()
}

func (s *Store) check(op, coll string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	s.faultMu.RLock()
	defer s.faultMu.RUnlock()
	if err, ok := s.faults[op+"/"+coll]; ok {
		return err
	}
	if err, ok := s.faults[op+"/*"]; ok {
		return err
	}
	return nil
}

func (s *Store) lookup(coll string) table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.colls[coll]
}

func (s *Store) collection(coll string) table {
	if t := s.lookup(coll); t != nil {
		return t
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.colls[coll]; ok {
		return t
	}
	t := cache.NewMemoryCache[string, docstore.Document]()
	for _, f := range docstore.MetaFields() {
		name := f.String()
		t.AddIndex(name, func(d docstore.Document) any {
			return string(d.Fields[name])
		})
	}
	s.colls[coll] = t
	return t
}

type profileEntry struct {
	Op string `json:"op"`
	NS string `json:"ns"`
	ID string `json:"id,omitempty"`
	N  int64  `json:"n"`
}

func (s *Store) record(op, coll, id string, n int64) {
	if !s.profiling {
		return
	}
	b, err := json.Marshal(profileEntry{Op: op, NS: coll, ID: id, N: n})
	if err != nil {
		return
	}
	s.profileMu.Lock()
	defer s.profileMu.Unlock()
	s.profile = append(s.profile, string(b))
	if over := len(s.profile) - s.profileSize; over > 0 {
		s.profile = append(s.profile[:0], s.profile[over:]...)
	}
}

// Defaults implements docstore.Store.
func (s *Store) Defaults() docstore.Defaults {
	return docstore.Defaults{ReadPreference: "primary", WriteConcern: "w=1"}
}

// Collections implements docstore.Store.
func (s *Store) Collections(context.Context) ([]string, error) {
	if err := s.check("Collections", "*"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.colls))
	for name := range s.colls {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Get implements docstore.Store.
func (s *Store) Get(_ context.Context, coll, id string, fields []string) (docstore.Document, bool, error) {
	if err := s.check("Get", coll); err != nil {
		return docstore.Document{}, false, err
	}
	s.record("query", coll, id, 1)
	t := s.lookup(coll)
	if t == nil {
		return docstore.Document{}, false, nil
	}
	d, ok := t.Get(id)
	if !ok {
		return docstore.Document{}, false, nil
	}
	return project(d, fields), true, nil
}

// Scan implements docstore.Store.
func (s *Store) Scan(_ context.Context, coll, start string, limit int, fields []string, now int64) ([]docstore.Document, error) {
	if err := s.check("Scan", coll); err != nil {
		return nil, err
	}
	t := s.lookup(coll)
	if t == nil || limit <= 0 {
		s.record("query", coll, start, 0)
		return nil, nil
	}
	docs := t.Filter(func(d docstore.Document) bool {
		return d.ID >= start && !docstore.IsExpired(d, now)
	})
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if len(docs) > limit {
		docs = docs[:limit]
	}
	for i := range docs {
		docs[i] = project(docs[i], fields)
	}
	s.record("query", coll, start, int64(len(docs)))
	return docs, nil
}

// Insert implements docstore.Store.
func (s *Store) Insert(_ context.Context, coll string, doc docstore.Document) error {
	if err := s.check("Insert", coll); err != nil {
		return err
	}
	if !s.collection(coll).SetNX(doc.ID, doc.Clone()) {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateKey, coll, doc.ID)
	}
	s.record("insert", coll, doc.ID, 1)
	return nil
}

// InsertMany implements docstore.Store. Insertion is unordered: duplicates
// are reported but do not prevent the remaining documents from landing.
func (s *Store) InsertMany(_ context.Context, coll string, docs []docstore.Document) error {
	if err := s.check("InsertMany", coll); err != nil {
		return err
	}
	t := s.collection(coll)
	var dups []string
	for _, d := range docs {
		if !t.SetNX(d.ID, d.Clone()) {
			dups = append(dups, d.ID)
		}
	}
	s.record("insert", coll, "", int64(len(docs)-len(dups)))
	if len(dups) > 0 {
		return fmt.Errorf("%w: %s/{%s}", ErrDuplicateKey, coll, strings.Join(dups, ","))
	}
	return nil
}

// Replace implements docstore.Store.
func (s *Store) Replace(_ context.Context, coll string, doc docstore.Document) error {
	if err := s.check("Replace", coll); err != nil {
		return err
	}
	s.collection(coll).Set(doc.ID, doc.Clone())
	s.record("update", coll, doc.ID, 1)
	return nil
}

// UpsertMany implements docstore.Store. Fields of an existing document that
// are not named in the upsert survive.
func (s *Store) UpsertMany(_ context.Context, coll string, docs []docstore.Document) error {
	if err := s.check("UpsertMany", coll); err != nil {
		return err
	}
	t := s.collection(coll)
	for _, d := range docs {
		id := d.ID
		in := d.Clone()
		mergeIn := func(cur docstore.Document) docstore.Document { return merge(cur, in) }
		if !t.UpdateKey(id, mergeIn) && !t.SetNX(id, in) {
			t.UpdateKey(id, mergeIn)
		}
	}
	s.record("update", coll, "", int64(len(docs)))
	return nil
}

// Update implements docstore.Store.
func (s *Store) Update(_ context.Context, coll, id string, values map[string][]byte) (int64, error) {
	if err := s.check("Update", coll); err != nil {
		return 0, err
	}
	t := s.lookup(coll)
	if t == nil {
		s.record("update", coll, id, 0)
		return 0, nil
	}
	var n int64
	if t.UpdateKey(id, func(d docstore.Document) docstore.Document { return setFields(d, values) }) {
		n = 1
	}
	s.record("update", coll, id, n)
	return n, nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(_ context.Context, coll, id string) (int64, error) {
	if err := s.check("Delete", coll); err != nil {
		return 0, err
	}
	var n int64
	if t := s.lookup(coll); t != nil && t.Del(id) {
		n = 1
	}
	s.record("remove", coll, id, n)
	return n, nil
}

// DeleteExpired implements docstore.Store.
func (s *Store) DeleteExpired(_ context.Context, coll string, now int64) (int64, error) {
	if err := s.check("DeleteExpired", coll); err != nil {
		return 0, err
	}
	t := s.lookup(coll)
	if t == nil {
		return 0, nil
	}
	n := int64(t.DelFunc(func(d docstore.Document) bool {
		return docstore.IsExpired(d, now)
	}))
	s.record("remove", coll, "", n)
	return n, nil
}

// FindMeta implements docstore.Store.
func (s *Store) FindMeta(_ context.Context, coll string, q docstore.MetaQuery) ([]docstore.Document, error) {
	if err := s.check("FindMeta", coll); err != nil {
		return nil, err
	}
	docs, err := s.match(coll, q)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	s.record("query", coll, q.KeyPattern, int64(len(docs)))
	return docs, nil
}

// UpdateMeta implements docstore.Store.
func (s *Store) UpdateMeta(_ context.Context, coll string, q docstore.MetaQuery, field, value string) (int64, error) {
	if err := s.check("UpdateMeta", coll); err != nil {
		return 0, err
	}
	pred, err := metaPredicate(q)
	if err != nil {
		return 0, err
	}
	t := s.lookup(coll)
	if t == nil {
		return 0, nil
	}
	n := t.Update(pred, func(d docstore.Document) docstore.Document {
		return setFields(d, map[string][]byte{field: []byte(value)})
	})
	s.record("update", coll, q.KeyPattern, int64(n))
	return int64(n), nil
}

// DeleteMeta implements docstore.Store.
func (s *Store) DeleteMeta(_ context.Context, coll string, q docstore.MetaQuery) (int64, error) {
	if err := s.check("DeleteMeta", coll); err != nil {
		return 0, err
	}
	pred, err := metaPredicate(q)
	if err != nil {
		return 0, err
	}
	t := s.lookup(coll)
	if t == nil {
		return 0, nil
	}
	n := int64(t.DelFunc(pred))
	s.record("remove", coll, q.KeyPattern, n)
	return n, nil
}

// RecentProfile implements docstore.Store.
func (s *Store) RecentProfile(_ context.Context, n int) ([]string, error) {
	if err := s.check("RecentProfile", "*"); err != nil {
		return nil, err
	}
	s.profileMu.Lock()
	defer s.profileMu.Unlock()
	if n > len(s.profile) {
		n = len(s.profile)
	}
	if n <= 0 {
		return []string{}, nil
	}
	out := make([]string, 0, n)
	for i := len(s.profile) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.profile[i])
	}
	return out, nil
}

// Sync implements docstore.Store.
func (s *Store) Sync(context.Context) error {
	if err := s.check("Sync", "*"); err != nil {
		return err
	}
	s.syncs.Add(1)
	return nil
}

// Close implements docstore.Store.
func (s *Store) Close(context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return nil
}

// Reopen clears the closed flag so the same data can be served again.
func (s *Store) Reopen() {
	s.closed.Store(false)
}

func (s *Store) match(coll string, q docstore.MetaQuery) ([]docstore.Document, error) {
	pred, err := metaPredicate(q)
	if err != nil {
		return nil, err
	}
	t := s.lookup(coll)
	if t == nil {
		return nil, nil
	}
	docs, err := t.Find(q.Field.String(), q.Condition)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, d := range docs {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func metaPredicate(q docstore.MetaQuery) (func(docstore.Document) bool, error) {
	var re *regexp.Regexp
	if q.KeyPattern != "" {
		var err error
		if re, err = regexp.Compile(q.KeyPattern); err != nil {
			return nil, err
		}
	}
	name := q.Field.String()
	return func(d docstore.Document) bool {
		v, ok := d.Fields[name]
		if !ok || string(v) != q.Condition {
			return false
		}
		return re == nil || re.MatchString(d.ID)
	}, nil
}

func project(d docstore.Document, fields []string) docstore.Document {
	out := docstore.Document{ID: d.ID, Fields: d.Project(fields)}
	if d.Expiry != nil {
		e := *d.Expiry
		out.Expiry = &e
	}
	return out
}

func setFields(d docstore.Document, values map[string][]byte) docstore.Document {
	out := d.Clone()
	for k, v := range values {
		out.Fields[k] = v
	}
	return out
}

func merge(cur, in docstore.Document) docstore.Document {
	out := setFields(cur, in.Fields)
	if in.Expiry != nil {
		e := *in.Expiry
		out.Expiry = &e
	}
	return out
}
