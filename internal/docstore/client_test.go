package docstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/internal/docstore/memstore"
	pkgerrors "github.com/kart-io/docbench/pkg/errors"
)

const table = "usertable"

type ClientSuite struct {
	suite.Suite

	ctx    context.Context
	mgr    *docstore.Manager
	store  *memstore.Store
	clock  *docstore.ManualClock
	client *docstore.Client
}

func (s *ClientSuite) SetupTest() {
	s.ctx = context.Background()
	s.mgr = docstore.NewManager()
	s.store = memstore.New()
	s.clock = docstore.NewManualClock(0)
	s.client = s.newClient(docstore.Config{})
	s.Require().NoError(s.client.Init(s.ctx))
}

func (s *ClientSuite) TearDownTest() {
	s.NoError(s.client.Cleanup(s.ctx))
}

func (s *ClientSuite) newClient(cfg docstore.Config) *docstore.Client {
	cfg.Connect = memstore.Connector(s.store)
	cfg.Clock = s.clock
	cfg.SweepInterval = time.Hour
	return docstore.NewClient(s.mgr, cfg)
}

func (s *ClientSuite) insert(key string, values map[string][]byte) {
	out, err := s.client.Insert(s.ctx, table, key, values)
	s.Require().NoError(err)
	s.Require().Equal(docstore.Flushed, out)
}

func values(kv ...string) map[string][]byte {
	m := make(map[string][]byte, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = []byte(kv[i+1])
	}
	return m
}

func (s *ClientSuite) isCode(err error, want *pkgerrors.Errno) {
	s.T().Helper()
	s.Truef(pkgerrors.IsCode(err, want.Code), "want code %d, got %v", want.Code, err)
}

func (s *ClientSuite) TestNotInitialized() {
	c := s.newClient(docstore.Config{})
	_, err := c.Read(s.ctx, table, "k", nil)
	s.isCode(err, docstore.ErrNotInitialized)
	_, err = c.Insert(s.ctx, table, "k", nil)
	s.isCode(err, docstore.ErrNotInitialized)
	s.NoError(c.Cleanup(s.ctx))
}

func (s *ClientSuite) TestReadRoundTrip() {
	s.insert("user1", values("field0", "a", "field1", "b"))

	got, err := s.client.Read(s.ctx, table, "user1", nil)
	s.Require().NoError(err)
	s.Equal(values("field0", "a", "field1", "b"), got)

	got, err = s.client.Read(s.ctx, table, "user1", []string{"field1"})
	s.Require().NoError(err)
	s.Equal(values("field1", "b"), got)

	_, err = s.client.Read(s.ctx, table, "missing", nil)
	s.isCode(err, docstore.ErrNotFound)
}

// Scenario: a TTL document disappears from reads once expired, whether or
// not the sweeper has run.
func (s *ClientSuite) TestTTLExpiryWithoutSweep() {
	out, err := s.client.InsertTTL(s.ctx, table, "user1", values("field0", "a"), 1)
	s.Require().NoError(err)
	s.Equal(docstore.Flushed, out)

	got, err := s.client.Read(s.ctx, table, "user1", nil)
	s.Require().NoError(err)
	s.Equal(values("field0", "a"), got)
	s.NoError(s.client.VerifyTTL(s.ctx, table, "user1"))

	s.clock.Set(2)
	_, err = s.client.Read(s.ctx, table, "user1", nil)
	s.isCode(err, docstore.ErrNotFound)
	_, err = s.client.Read(s.ctx, table, "user1", []string{"field0"})
	// A projection does not bypass expiry.
	s.isCode(err, docstore.ErrNotFound)
	s.isCode(s.client.VerifyTTL(s.ctx, table, "user1"), docstore.ErrNotFound)

	s.Equal(1, s.store.Len(table), "still physically present")
	n, err := s.client.CleanupExpired(s.ctx, table)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
	s.Zero(s.store.Len(table))
}

func (s *ClientSuite) TestInsertTTLRejectsNegative() {
	_, err := s.client.InsertTTL(s.ctx, table, "k", nil, -1)
	s.isCode(err, docstore.ErrInvalidTTL)
	s.Zero(s.store.Len(table))
}

func (s *ClientSuite) TestInsertTTLOverridesUserTTLField() {
	_, err := s.client.InsertTTL(s.ctx, table, "k", values("TTL", "forever", "field0", "a"), 5)
	s.Require().NoError(err)

	d, ok, err := s.store.Get(s.ctx, table, "k", nil)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.NotContains(d.Fields, "TTL")
	s.Equal(int64(5), d.Expiry.TTL)
}

// Scenario: with batching, the k-th insert writes the batch.
func (s *ClientSuite) TestBatchedInsert() {
	s.NoError(s.client.Cleanup(s.ctx))
	s.client = s.newClient(docstore.Config{BatchSize: 3})
	s.Require().NoError(s.client.Init(s.ctx))

	for i, key := range []string{"k1", "k2"} {
		out, err := s.client.Insert(s.ctx, table, key, values("f", "v"))
		s.Require().NoError(err)
		s.Equal(docstore.Buffered, out, "insert %d", i)
		s.Zero(s.store.Len(table))
	}
	out, err := s.client.Insert(s.ctx, table, "k3", values("f", "v"))
	s.Require().NoError(err)
	s.Equal(docstore.Flushed, out)
	s.Equal(3, s.store.Len(table))

	_, _ = s.client.Insert(s.ctx, table, "k4", values("f", "v"))
	s.Equal(1, s.client.Pending())
}

func (s *ClientSuite) TestCleanupDropsResidualBatch() {
	s.NoError(s.client.Cleanup(s.ctx))
	s.client = s.newClient(docstore.Config{BatchSize: 10})
	s.Require().NoError(s.client.Init(s.ctx))

	_, _ = s.client.Insert(s.ctx, table, "k1", nil)
	s.Require().NoError(s.client.Cleanup(s.ctx))
	s.Zero(s.store.Len(table))

	s.Require().NoError(s.client.Init(s.ctx))
}

func (s *ClientSuite) TestScan() {
	for _, k := range []string{"user3", "user1", "user5", "user2", "user4"} {
		s.insert(k, values("field0", k))
	}
	_, err := s.client.InsertTTL(s.ctx, table, "user25", values("field0", "ttl"), 1)
	s.Require().NoError(err)

	got, err := s.client.Scan(s.ctx, table, "user2", 3, nil)
	s.Require().NoError(err)
	s.Equal([]map[string][]byte{
		values("field0", "user2"),
		values("field0", "ttl"),
		values("field0", "user3"),
	}, got)

	s.clock.Set(1)
	got, err = s.client.Scan(s.ctx, table, "user2", 3, []string{"field0"})
	s.Require().NoError(err)
	s.Equal([]map[string][]byte{
		values("field0", "user2"),
		values("field0", "user3"),
		values("field0", "user4"),
	}, got)

	_, err = s.client.Scan(s.ctx, table, "zzz", 3, nil)
	s.isCode(err, docstore.ErrScanEmpty)
	s.False(errors.Is(err, docstore.ErrNotFound))

	_, err = s.client.Scan(s.ctx, table, "user1", 0, nil)
	s.isCode(err, docstore.ErrScanEmpty)
}

func (s *ClientSuite) TestUpdateDelete() {
	s.insert("user1", values("field0", "a", "field1", "b"))

	s.Require().NoError(s.client.Update(s.ctx, table, "user1", values("field1", "c")))
	got, err := s.client.Read(s.ctx, table, "user1", nil)
	s.Require().NoError(err)
	s.Equal(values("field0", "a", "field1", "c"), got)

	s.isCode(s.client.Update(s.ctx, table, "missing", values("f", "v")), docstore.ErrNotFound)

	s.Require().NoError(s.client.Delete(s.ctx, table, "user1"))
	s.isCode(s.client.Delete(s.ctx, table, "user1"), docstore.ErrNotFound)
}

func (s *ClientSuite) TestStoreErrorsAreWrapped() {
	boom := errors.New("socket closed")
	s.store.Fail("Get", table, boom)
	defer s.store.Fail("Get", table, nil)

	_, err := s.client.Read(s.ctx, table, "k", nil)
	s.isCode(err, docstore.ErrStore)
	s.ErrorIs(err, boom)
}

func (s *ClientSuite) TestMetaOperations() {
	s.insert("user1", values("PUR", "ads", "USR", "alice"))
	s.insert("user2", values("PUR", "ads", "USR", "bob"))
	s.insert("other1", values("PUR", "ads"))
	s.insert("user3", values("PUR", "stats"))

	got, err := s.client.ReadMeta(s.ctx, table, int(docstore.MetaPurpose), "ads", "")
	s.Require().NoError(err)
	s.Len(got, 3)

	got, err = s.client.ReadMeta(s.ctx, table, int(docstore.MetaPurpose), "ads", "^user")
	s.Require().NoError(err)
	s.Equal([]map[string][]byte{
		values("PUR", "ads", "USR", "alice"),
		values("PUR", "ads", "USR", "bob"),
	}, got)

	n, err := s.client.UpdateMeta(s.ctx, table, int(docstore.MetaUser), "bob", "", "DEC", "deny")
	s.Require().NoError(err)
	s.Equal(int64(1), n)
	d, err := s.client.Read(s.ctx, table, "user2", []string{"DEC"})
	s.Require().NoError(err)
	s.Equal(values("DEC", "deny"), d)

	n, err = s.client.DeleteMeta(s.ctx, table, int(docstore.MetaPurpose), "ads", "^user")
	s.Require().NoError(err)
	s.Equal(int64(2), n)
	s.Equal(2, s.store.Len(table))

	_, err = s.client.ReadMeta(s.ctx, table, 10, "x", "")
	s.isCode(err, docstore.ErrInvalidMetaField)
	_, err = s.client.UpdateMeta(s.ctx, table, -1, "x", "", "f", "v")
	s.isCode(err, docstore.ErrInvalidMetaField)
	_, err = s.client.DeleteMeta(s.ctx, table, 99, "x", "")
	s.isCode(err, docstore.ErrInvalidMetaField)
}

func (s *ClientSuite) TestReadMetaSkipsExpired() {
	_, err := s.client.InsertTTL(s.ctx, table, "user1", values("PUR", "ads"), 1)
	s.Require().NoError(err)
	s.insert("user2", values("PUR", "ads"))

	s.clock.Set(5)
	got, err := s.client.ReadMeta(s.ctx, table, int(docstore.MetaPurpose), "ads", "")
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *ClientSuite) TestReadLogFromProfile() {
	s.insert("user1", values("f", "v"))
	_ = s.client.Delete(s.ctx, table, "user1")

	got, err := s.client.ReadLog(s.ctx, table, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Contains(got[0], `"op":"insert"`)
	s.Contains(got[1], `"op":"remove"`)
}

func (s *ClientSuite) TestReadLogFromAuditFile() {
	path := filepath.Join(s.T().TempDir(), "audit.log")
	s.Require().NoError(os.WriteFile(path, []byte("e1\ne2\ne3\n"), 0o600))

	s.NoError(s.client.Cleanup(s.ctx))
	s.client = s.newClient(docstore.Config{AuditLogPath: path})
	s.Require().NoError(s.client.Init(s.ctx))

	got, err := s.client.ReadLog(s.ctx, table, 2)
	s.Require().NoError(err)
	s.Equal([]string{"e2", "e3"}, got)
	s.Equal(int64(1), s.store.Syncs())
}

func (s *ClientSuite) TestReadLogMissingFileFallsBack() {
	s.NoError(s.client.Cleanup(s.ctx))
	s.client = s.newClient(docstore.Config{AuditLogPath: filepath.Join(s.T().TempDir(), "none.log")})
	s.Require().NoError(s.client.Init(s.ctx))

	got, err := s.client.ReadLog(s.ctx, table, 5)
	s.Require().NoError(err)
	s.NotNil(got)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func TestReadLogEmptyProfileIsSuccess(t *testing.T) {
	ctx := context.Background()
	store := memstore.New(memstore.WithProfiling(false))
	c := docstore.NewClient(docstore.NewManager(), docstore.Config{Connect: memstore.Connector(store)})
	require.NoError(t, c.Init(ctx))
	defer func() { _ = c.Cleanup(ctx) }()

	got, err := c.ReadLog(ctx, table, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// Scenario: two workers share one connection; it closes on the last cleanup
// and the sweeper stops within its timeout.
func TestWorkersShareConnection(t *testing.T) {
	ctx := context.Background()
	mgr := docstore.NewManager()
	store := memstore.New()
	cfg := docstore.Config{
		Connect:       memstore.Connector(store),
		SweepInterval: time.Hour,
		StopTimeout:   time.Second,
	}

	w1 := docstore.NewClient(mgr, cfg)
	w2 := docstore.NewClient(mgr, cfg)
	require.NoError(t, w1.Init(ctx))
	require.NoError(t, w2.Init(ctx))
	assert.Same(t, w1.Handle(), w2.Handle())
	sweeper := w1.Handle().Sweeper()

	require.NoError(t, w1.Cleanup(ctx))
	assert.False(t, store.Closed())
	assert.Equal(t, docstore.SweeperRunning, sweeper.State())

	_, err := w2.Insert(ctx, table, "k", nil)
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, w2.Cleanup(ctx))
	assert.True(t, store.Closed())
	assert.Equal(t, docstore.SweeperStopped, sweeper.State())
	assert.Less(t, time.Since(start), cfg.StopTimeout)
	assert.Zero(t, mgr.Refs())
}
