package redisstore_test

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"testing"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/internal/docstore/redisstore"
	redisopts "github.com/kart-io/docbench/pkg/options/redis"
)

// addrEnv names a reachable Redis as host:port; the suite is skipped without it.
const addrEnv = "DOCBENCH_TEST_REDIS_ADDR"

type StoreSuite struct {
	suite.Suite

	ctx   context.Context
	store docstore.Store
	raw   *goredis.Client
	coll  string
}

func TestStoreSuite(t *testing.T) {
	if os.Getenv(addrEnv) == "" {
		t.Skipf("%s not set", addrEnv)
	}
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupSuite() {
	s.ctx = context.Background()
	opts := redisopts.NewOptions()
	host, port, ok := cut(os.Getenv(addrEnv))
	s.Require().True(ok, "want host:port")
	opts.Host = host
	opts.Port = port
	opts.ScanPage = 2

	store, err := redisstore.Connector(opts)(s.ctx)
	s.Require().NoError(err)
	s.store = store
	s.raw = goredis.NewClient(&goredis.Options{Addr: opts.Addr()})
}

func cut(addr string) (string, int, bool) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, false
	}
	p, err := strconv.Atoi(port)
	return host, p, err == nil
}

func (s *StoreSuite) TearDownSuite() {
	s.NoError(s.raw.Close())
	s.NoError(s.store.Close(s.ctx))
}

func (s *StoreSuite) SetupTest() {
	s.coll = "docbench_test_" + ulid.Make().String()
}

func (s *StoreSuite) seed(n int) {
	docs := make([]docstore.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, docstore.NewDocument(fmt.Sprintf("user%02d", i), map[string][]byte{
			"field0": []byte(fmt.Sprintf("v%d", i)),
			"USR":    []byte("alice"),
		}))
	}
	s.Require().NoError(s.store.InsertMany(s.ctx, s.coll, docs))
}

func (s *StoreSuite) TestInsertDuplicate() {
	doc := docstore.NewDocument("k1", map[string][]byte{"a": []byte("1")})
	s.Require().NoError(s.store.Insert(s.ctx, s.coll, doc))
	s.ErrorIs(s.store.Insert(s.ctx, s.coll, doc), redisstore.ErrDuplicateKey)

	got, ok, err := s.store.Get(s.ctx, s.coll, "k1", []string{"a"})
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal([]byte("1"), got.Fields["a"])
}

func (s *StoreSuite) TestScanPagesPastExpired() {
	s.seed(5)
	s.Require().NoError(s.store.Replace(s.ctx, s.coll,
		docstore.Stamp(docstore.NewDocument("user01", nil), 10, 100)))

	docs, err := s.store.Scan(s.ctx, s.coll, "user00", 3, nil, 200)
	s.Require().NoError(err)
	s.Require().Len(docs, 3)
	s.Equal([]string{"user00", "user02", "user03"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})

	n, err := s.store.DeleteExpired(s.ctx, s.coll, 200)
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *StoreSuite) TestMeta() {
	s.seed(3)
	q := docstore.MetaQuery{Field: docstore.MetaUser, Condition: "alice", KeyPattern: "^user0[01]"}

	docs, err := s.store.FindMeta(s.ctx, s.coll, q)
	s.Require().NoError(err)
	s.Len(docs, 2)

	n, err := s.store.UpdateMeta(s.ctx, s.coll, q, "USR", "bob")
	s.Require().NoError(err)
	s.EqualValues(2, n)

	n, err = s.store.DeleteMeta(s.ctx, s.coll, docstore.MetaQuery{Field: docstore.MetaUser, Condition: "alice"})
	s.Require().NoError(err)
	s.EqualValues(1, n)
}

func (s *StoreSuite) TestUpdateDoesNotRecreateDeleted() {
	s.seed(1)
	n, err := s.store.Delete(s.ctx, s.coll, "user00")
	s.Require().NoError(err)
	s.Require().EqualValues(1, n)

	n, err = s.store.Update(s.ctx, s.coll, "user00", map[string][]byte{"field0": []byte("x")})
	s.Require().NoError(err)
	s.EqualValues(0, n)

	exists, err := s.raw.Exists(s.ctx, s.coll+":doc:user00").Result()
	s.Require().NoError(err)
	s.Zero(exists)
}

func (s *StoreSuite) TestUpdateMetaSkipsSweptDocuments() {
	s.seed(2)
	q := docstore.MetaQuery{Field: docstore.MetaUser, Condition: "alice"}
	n, err := s.store.UpdateMeta(s.ctx, s.coll, q, "Data", "y")
	s.Require().NoError(err)
	s.EqualValues(2, n)

	got, ok, err := s.store.Get(s.ctx, s.coll, "user01", nil)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal([]byte("y"), got.Fields["Data"])
}

func (s *StoreSuite) TestHashWithoutIDIsAbsent() {
	s.Require().NoError(s.raw.HSet(s.ctx, s.coll+":doc:orphan", "field0", "v").Err())
	s.Require().NoError(s.raw.ZAdd(s.ctx, s.coll+":ids", goredis.Z{Member: "orphan"}).Err())

	_, ok, err := s.store.Get(s.ctx, s.coll, "orphan", nil)
	s.Require().NoError(err)
	s.False(ok)

	docs, err := s.store.Scan(s.ctx, s.coll, "", 10, nil, 0)
	s.Require().NoError(err)
	s.Empty(docs)
}
