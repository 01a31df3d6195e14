// Package redisstore is the Redis docstore.Store. Each collection is a set of
// hashes plus two sorted sets that give it ordered range scans and an expiry
// index.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/docbench/internal/docstore"
	"github.com/kart-io/docbench/pkg/component/redis"
	pkgerrors "github.com/kart-io/docbench/pkg/errors"
	redisopts "github.com/kart-io/docbench/pkg/options/redis"
	"github.com/kart-io/docbench/pkg/utils/json"
)

// ErrDuplicateKey is returned when inserting an identifier that already exists.
var ErrDuplicateKey = errors.New("duplicate key")

// Store runs every docstore operation against one Redis database.
type Store struct {
	client *redis.Client
	rdb    *goredis.Client
	page   int64
}

var _ docstore.Store = (*Store)(nil)

// New wraps a connected client.
func New(c *redis.Client) *Store {
	page := int64(c.Options().ScanPage)
	if page < 1 {
		page = 100
	}
	return &Store{client: c, rdb: c.Client(), page: page}
}

// Connector connects with opts each time the shared handle is created.
// Invalid options are reported as docstore.ErrConfig.
func Connector(opts *redisopts.Options) docstore.Connector {
	return func(ctx context.Context) (docstore.Store, error) {
		c, err := redis.New(ctx, opts)
		if err != nil {
			if pkgerrors.GetCategory(pkgerrors.GetCode(err)) == pkgerrors.CategoryConfig {
				return nil, docstore.ErrConfig.WithCause(err).WithMessage(err.Error())
			}
			return nil, err
		}
		logger.Debugw("Connected to redis", "addr", opts.Addr(), "database", opts.Database)
		return New(c), nil
	}
}

func (s *Store) Defaults() docstore.Defaults {
	return docstore.Defaults{
		ReadPreference: "primary",
		WriteConcern:   fmt.Sprintf("db=%d", s.client.Options().Database),
	}
}

func (s *Store) Collections(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, collectionsKey).Result()
}

func (s *Store) Get(ctx context.Context, coll, id string, fields []string) (docstore.Document, bool, error) {
	if len(fields) == 0 {
		h, err := s.rdb.HGetAll(ctx, docKey(coll, id)).Result()
		if err != nil {
			return docstore.Document{}, false, err
		}
		d, ok := decodeAll(id, h)
		return d, ok, nil
	}

	names := withReserved(fields)
	vals, err := s.rdb.HMGet(ctx, docKey(coll, id), names...).Result()
	if err != nil {
		return docstore.Document{}, false, err
	}
	d, ok := decodeFields(id, names, vals)
	return d, ok, nil
}

// Scan pages through the identifier index from start and skips expired
// documents until limit live ones are collected or the index is exhausted.
func (s *Store) Scan(ctx context.Context, coll, start string, limit int, fields []string, now int64) ([]docstore.Document, error) {
	out := make([]docstore.Document, 0, limit)
	if limit <= 0 {
		return out, nil
	}

	var offset int64
	for len(out) < limit {
		ids, err := s.rdb.ZRangeByLex(ctx, idsKey(coll), &goredis.ZRangeBy{
			Min:    "[" + start,
			Max:    "+",
			Offset: offset,
			Count:  s.page,
		}).Result()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			break
		}
		offset += int64(len(ids))

		docs, err := s.fetch(ctx, coll, ids, fields)
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			if docstore.IsExpired(d, now) {
				continue
			}
			out = append(out, d)
			if len(out) == limit {
				break
			}
		}
		if int64(len(ids)) < s.page {
			break
		}
	}
	return out, nil
}

// fetch loads ids in one pipeline, preserving order and dropping identifiers
// whose hash is gone.
func (s *Store) fetch(ctx context.Context, coll string, ids []string, fields []string) ([]docstore.Document, error) {
	names := withReserved(fields)
	cmds := make([]goredis.Cmder, len(ids))
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, id := range ids {
			if len(fields) == 0 {
				cmds[i] = p.HGetAll(ctx, docKey(coll, id))
			} else {
				cmds[i] = p.HMGet(ctx, docKey(coll, id), names...)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]docstore.Document, 0, len(ids))
	for i, id := range ids {
		switch c := cmds[i].(type) {
		case *goredis.MapStringStringCmd:
			if d, ok := decodeAll(id, c.Val()); ok {
				out = append(out, d)
			}
		case *goredis.SliceCmd:
			if d, ok := decodeFields(id, names, c.Val()); ok {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// write queues the commands that store doc and index it. replace drops any
// previous fields first.
func write(ctx context.Context, p goredis.Pipeliner, coll string, doc docstore.Document, replace bool) {
	key := docKey(coll, doc.ID)
	if replace {
		p.Del(ctx, key)
	}
	p.HSet(ctx, key, encodeHash(doc))
	p.ZAdd(ctx, idsKey(coll), goredis.Z{Member: doc.ID})
	if doc.Expiry != nil {
		p.ZAdd(ctx, expKey(coll), goredis.Z{Score: float64(doc.Expiry.ExpiresAt), Member: doc.ID})
	} else if replace {
		p.ZRem(ctx, expKey(coll), doc.ID)
	}
	p.SAdd(ctx, collectionsKey, coll)
}

func (s *Store) Insert(ctx context.Context, coll string, doc docstore.Document) error {
	added, err := s.rdb.ZAddNX(ctx, idsKey(coll), goredis.Z{Member: doc.ID}).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return fmt.Errorf("insert %s/%s: %w", coll, doc.ID, ErrDuplicateKey)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		write(ctx, p, coll, doc, false)
		return nil
	})
	return err
}

// InsertMany claims every identifier, writes the ones that were free and
// reports the duplicates afterwards.
func (s *Store) InsertMany(ctx context.Context, coll string, docs []docstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	claims := make([]*goredis.IntCmd, len(docs))
	if _, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, d := range docs {
			claims[i] = p.ZAddNX(ctx, idsKey(coll), goredis.Z{Member: d.ID})
		}
		return nil
	}); err != nil {
		return err
	}

	dups := 0
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, d := range docs {
			if claims[i].Val() == 0 {
				dups++
				continue
			}
			write(ctx, p, coll, d, false)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if dups > 0 {
		return fmt.Errorf("insert %d of %d documents into %s: %w", dups, len(docs), coll, ErrDuplicateKey)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, coll string, doc docstore.Document) error {
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		write(ctx, p, coll, doc, true)
		return nil
	})
	return err
}

func (s *Store) UpsertMany(ctx context.Context, coll string, docs []docstore.Document) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, d := range docs {
			write(ctx, p, coll, d, false)
		}
		return nil
	})
	return err
}

// updateScript sets fields on a document hash only while the hash still has
// its identifier, so a concurrent delete or sweep cannot be undone by a
// partial write. It returns 1 when the document existed.
var updateScript = goredis.NewScript(`
if redis.call('HEXISTS', KEYS[1], '_id') == 0 then
	return 0
end
if #ARGV > 0 then
	redis.call('HSET', KEYS[1], unpack(ARGV))
end
return 1
`)

// updateArgs flattens values into field/value script arguments.
func updateArgs(values map[string][]byte) []interface{} {
	args := make([]interface{}, 0, 2*len(values))
	for k, v := range values {
		args = append(args, k, v)
	}
	return args
}

func (s *Store) Update(ctx context.Context, coll, id string, values map[string][]byte) (int64, error) {
	return updateScript.Run(ctx, s.rdb, []string{docKey(coll, id)}, updateArgs(values)...).Int64()
}

func (s *Store) Delete(ctx context.Context, coll, id string) (int64, error) {
	return s.remove(ctx, coll, []string{id})
}

// remove deletes ids and their index entries and reports how many hashes
// existed.
func (s *Store) remove(ctx context.Context, coll string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	dels := make([]*goredis.IntCmd, len(ids))
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			dels[i] = p.Del(ctx, docKey(coll, id))
			members[i] = id
		}
		p.ZRem(ctx, idsKey(coll), members...)
		p.ZRem(ctx, expKey(coll), members...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	var n int64
	for _, c := range dels {
		n += c.Val()
	}
	return n, nil
}

func (s *Store) DeleteExpired(ctx context.Context, coll string, now int64) (int64, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, expKey(coll), &goredis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	return s.remove(ctx, coll, ids)
}

// matchMeta walks the identifier index and returns, in order, the ids whose
// metadata field equals the condition.
func (s *Store) matchMeta(ctx context.Context, coll string, q docstore.MetaQuery) ([]string, error) {
	var re *regexp.Regexp
	if q.KeyPattern != "" {
		var err error
		if re, err = regexp.Compile(q.KeyPattern); err != nil {
			return nil, err
		}
	}
	field := q.Field.String()

	var matched []string
	for offset := int64(0); ; offset += s.page {
		ids, err := s.rdb.ZRange(ctx, idsKey(coll), offset, offset+s.page-1).Result()
		if err != nil {
			return nil, err
		}
		cands := make([]string, 0, len(ids))
		for _, id := range ids {
			if re == nil || re.MatchString(id) {
				cands = append(cands, id)
			}
		}

		vals := make([]*goredis.StringCmd, len(cands))
		if len(cands) > 0 {
			if _, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
				for i, id := range cands {
					vals[i] = p.HGet(ctx, docKey(coll, id), field)
				}
				return nil
			}); err != nil && !errors.Is(err, goredis.Nil) {
				return nil, err
			}
		}
		for i, id := range cands {
			if v, err := vals[i].Result(); err == nil && v == q.Condition {
				matched = append(matched, id)
			}
		}

		if int64(len(ids)) < s.page {
			return matched, nil
		}
	}
}

func (s *Store) FindMeta(ctx context.Context, coll string, q docstore.MetaQuery) ([]docstore.Document, error) {
	ids, err := s.matchMeta(ctx, coll, q)
	if err != nil || len(ids) == 0 {
		return []docstore.Document{}, err
	}
	return s.fetch(ctx, coll, ids, nil)
}

func (s *Store) UpdateMeta(ctx context.Context, coll string, q docstore.MetaQuery, field, value string) (int64, error) {
	ids, err := s.matchMeta(ctx, coll, q)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	if err := updateScript.Load(ctx, s.rdb).Err(); err != nil {
		return 0, err
	}
	cmds := make([]*goredis.Cmd, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = updateScript.EvalSha(ctx, p, []string{docKey(coll, id)}, field, value)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	var n int64
	for _, c := range cmds {
		if v, err := c.Int64(); err == nil {
			n += v
		}
	}
	return n, nil
}

func (s *Store) DeleteMeta(ctx context.Context, coll string, q docstore.MetaQuery) (int64, error) {
	ids, err := s.matchMeta(ctx, coll, q)
	if err != nil {
		return 0, err
	}
	return s.remove(ctx, coll, ids)
}

type slowlogEntry struct {
	ID         int64    `json:"id"`
	Time       int64    `json:"ts"`
	Micros     int64    `json:"micros"`
	Args       []string `json:"args"`
	ClientAddr string   `json:"client,omitempty"`
}

// RecentProfile reads the server slow log, newest first, one JSON object per
// entry.
func (s *Store) RecentProfile(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	logs, err := s.rdb.SlowLogGet(ctx, int64(n)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		b, err := json.Marshal(slowlogEntry{
			ID:         l.ID,
			Time:       l.Time.Unix(),
			Micros:     l.Duration.Microseconds(),
			Args:       l.Args,
			ClientAddr: l.ClientAddr,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}

// Sync only checks reachability; clients cannot force a durable flush
// without blocking the server.
func (s *Store) Sync(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close(_ context.Context) error {
	return s.client.Close()
}
