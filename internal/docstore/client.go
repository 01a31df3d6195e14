package docstore

import (
	"context"
	"os"

	"github.com/kart-io/logger"

	"github.com/kart-io/docbench/pkg/errors"
)

// Client is one worker's view of the shared store: the CRUD, metadata, TTL
// and log operations the benchmark harness drives. Each worker owns its own
// Client; the underlying connection is shared through the Manager.
//
// A Client is not safe for concurrent use.
type Client struct {
	mgr *Manager
	cfg Config

	handle  *Handle
	batcher *Batcher
}

// NewClient creates an uninitialized client. A nil manager selects Default.
func NewClient(mgr *Manager, cfg Config) *Client {
	if mgr == nil {
		mgr = Default
	}
	return &Client{mgr: mgr, cfg: cfg}
}

// Init acquires the shared handle and prepares this worker's batch.
func (c *Client) Init(ctx context.Context) error {
	if c.handle != nil {
		return nil
	}
	h, err := c.mgr.Acquire(ctx, c.cfg)
	if err != nil {
		return err
	}
	c.handle = h
	hc := h.Config()
	c.batcher = NewBatcher(h.Store(), hc.BatchSize, hc.Upsert)
	return nil
}

// Cleanup drops any residual batch and releases the shared handle.
// Residual documents are lost; the loss is logged, not returned.
func (c *Client) Cleanup(ctx context.Context) error {
	if c.handle == nil {
		return nil
	}
	if lost := c.batcher.Discard(); lost > 0 {
		logger.Warnw("Discarding unflushed batched documents",
			"count", lost,
			"batchSize", c.batcher.Size(),
		)
	}
	c.handle = nil
	c.batcher = nil
	c.mgr.Release(ctx)
	return nil
}

// Handle returns the acquired handle, or nil before Init.
func (c *Client) Handle() *Handle {
	return c.handle
}

// Pending returns the number of documents waiting in this worker's batch.
func (c *Client) Pending() int {
	if c.batcher == nil {
		return 0
	}
	return c.batcher.Pending()
}

func (c *Client) ready() error {
	if c.handle == nil {
		return ErrNotInitialized
	}
	return nil
}

func (c *Client) now() int64 {
	return c.handle.Clock().Now()
}

// storeErr logs a backend failure with its operation context and maps it to ErrStore.
func storeErr(op, table, key string, err error) error {
	logger.Errorw("Store operation failed",
		"op", op,
		"table", table,
		"key", key,
		"error", err,
	)
	if errors.IsCode(err, ErrStore.Code) {
		return err
	}
	return ErrStore.WithCause(err).WithMessagef("%s %s/%s", op, table, key)
}

// Insert writes a document through the worker's batch.
func (c *Client) Insert(ctx context.Context, table, key string, values map[string][]byte) (Outcome, error) {
	if err := c.ready(); err != nil {
		return Flushed, err
	}
	out, err := c.batcher.Add(ctx, table, NewDocument(key, values))
	if err != nil {
		return out, storeErr("insert", table, key, err)
	}
	return out, nil
}

// InsertTTL writes a document stamped to expire ttl seconds from now.
func (c *Client) InsertTTL(ctx context.Context, table, key string, values map[string][]byte, ttl int64) (Outcome, error) {
	if err := c.ready(); err != nil {
		return Flushed, err
	}
	if ttl < 0 {
		return Flushed, ErrInvalidTTL.WithMessagef("ttl %d for key %s", ttl, key)
	}
	doc := Stamp(NewDocument(key, values), ttl, c.now())
	out, err := c.batcher.Add(ctx, table, doc)
	if err != nil {
		return out, storeErr("insert-ttl", table, key, err)
	}
	return out, nil
}

// Read fetches one document's fields. A nil fields slice returns every field.
// Absent and logically-expired documents are ErrNotFound.
func (c *Client) Read(ctx context.Context, table, key string, fields []string) (map[string][]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	doc, ok, err := c.handle.Store().Get(ctx, table, key, fields)
	if err != nil {
		return nil, storeErr("read", table, key, err)
	}
	if !ok || IsExpired(doc, c.now()) {
		return nil, ErrNotFound.WithMessagef("read %s/%s", table, key)
	}
	return doc.Project(fields), nil
}

// Scan returns up to count live documents with key >= startKey, ascending.
// Finding nothing is ErrScanEmpty, not ErrNotFound.
func (c *Client) Scan(ctx context.Context, table, startKey string, count int, fields []string) ([]map[string][]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	docs, err := c.handle.Store().Scan(ctx, table, startKey, count, fields, c.now())
	if err != nil {
		return nil, storeErr("scan", table, startKey, err)
	}
	if len(docs) == 0 {
		logger.Warnw("Nothing found in scan", "table", table, "startKey", startKey)
		return nil, ErrScanEmpty.WithMessagef("scan %s from %s", table, startKey)
	}
	out := make([]map[string][]byte, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Project(fields))
	}
	return out, nil
}

// Update sets values on the document with the given key.
func (c *Client) Update(ctx context.Context, table, key string, values map[string][]byte) error {
	if err := c.ready(); err != nil {
		return err
	}
	matched, err := c.handle.Store().Update(ctx, table, key, values)
	if err != nil {
		return storeErr("update", table, key, err)
	}
	if matched == 0 {
		logger.Debugw("Nothing updated", "table", table, "key", key)
		return ErrNotFound.WithMessagef("update %s/%s", table, key)
	}
	return nil
}

// Delete removes the document with the given key.
func (c *Client) Delete(ctx context.Context, table, key string) error {
	if err := c.ready(); err != nil {
		return err
	}
	deleted, err := c.handle.Store().Delete(ctx, table, key)
	if err != nil {
		return storeErr("delete", table, key, err)
	}
	if deleted == 0 {
		logger.Debugw("Nothing deleted", "table", table, "key", key)
		return ErrNotFound.WithMessagef("delete %s/%s", table, key)
	}
	return nil
}

func metaQuery(fieldIndex int, condition, keyPattern string) (MetaQuery, error) {
	f, err := MetaFieldAt(fieldIndex)
	if err != nil {
		return MetaQuery{}, err
	}
	return MetaQuery{Field: f, Condition: condition, KeyPattern: keyPattern}, nil
}

// ReadMeta returns every live document whose metadata field equals condition,
// optionally narrowed to keys matching keyPattern.
func (c *Client) ReadMeta(ctx context.Context, table string, fieldIndex int, condition, keyPattern string) ([]map[string][]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	q, err := metaQuery(fieldIndex, condition, keyPattern)
	if err != nil {
		return nil, err
	}
	docs, err := c.handle.Store().FindMeta(ctx, table, q)
	if err != nil {
		return nil, storeErr("read-meta", table, keyPattern, err)
	}
	now := c.now()
	out := make([]map[string][]byte, 0, len(docs))
	for _, d := range docs {
		if IsExpired(d, now) {
			continue
		}
		out = append(out, d.Project(nil))
	}
	return out, nil
}

// UpdateMeta sets newField=newValue on every matching document and returns
// how many matched.
func (c *Client) UpdateMeta(ctx context.Context, table string, fieldIndex int, condition, keyPattern, newField, newValue string) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	q, err := metaQuery(fieldIndex, condition, keyPattern)
	if err != nil {
		return 0, err
	}
	n, err := c.handle.Store().UpdateMeta(ctx, table, q, newField, newValue)
	if err != nil {
		return 0, storeErr("update-meta", table, keyPattern, err)
	}
	return n, nil
}

// DeleteMeta removes every matching document and returns how many were removed.
func (c *Client) DeleteMeta(ctx context.Context, table string, fieldIndex int, condition, keyPattern string) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	q, err := metaQuery(fieldIndex, condition, keyPattern)
	if err != nil {
		return 0, err
	}
	n, err := c.handle.Store().DeleteMeta(ctx, table, q)
	if err != nil {
		return 0, storeErr("delete-meta", table, keyPattern, err)
	}
	return n, nil
}

// VerifyTTL returns nil if the document exists and has not expired.
func (c *Client) VerifyTTL(ctx context.Context, table, key string) error {
	if err := c.ready(); err != nil {
		return err
	}
	doc, ok, err := c.handle.Store().Get(ctx, table, key, nil)
	if err != nil {
		return storeErr("verify-ttl", table, key, err)
	}
	if !ok || IsExpired(doc, c.now()) {
		return ErrNotFound.WithMessagef("verify ttl %s/%s", table, key)
	}
	return nil
}

// CleanupExpired physically removes the expired documents of one table now.
func (c *Client) CleanupExpired(ctx context.Context, table string) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	n, err := c.handle.Store().DeleteExpired(ctx, table, c.now())
	if err != nil {
		return 0, storeErr("cleanup-expired", table, "", err)
	}
	if n > 0 {
		logger.Infow("Deleted expired documents", "collection", table, "count", n)
	}
	return n, nil
}

// ReadLog returns up to count recent log entries in chronological order.
// The configured audit log file is tailed when readable; otherwise the
// store's operation profile is used. Reaching either source is success, even
// with zero entries.
func (c *Client) ReadLog(ctx context.Context, table string, count int) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	logger.Infow("Reading log entries", "table", table, "count", count)

	if path := c.handle.Config().AuditLogPath; path != "" {
		if lines, ok := c.tailAuditLog(ctx, path, count); ok {
			return lines, nil
		}
	}

	entries, err := c.handle.Store().RecentProfile(ctx, count)
	if err != nil {
		return nil, storeErr("read-log", table, "", err)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if len(entries) == 0 {
		logger.Infow("No profile entries found; enable profiling on the store to collect them")
	} else {
		logger.Infow("Read profile entries", "count", len(entries))
	}
	return entries, nil
}

func (c *Client) tailAuditLog(ctx context.Context, path string, count int) ([]string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		logger.Infow("Audit log file not found or not readable", "path", path)
		return nil, false
	}

	if err := c.handle.Store().Sync(ctx); err != nil {
		logger.Infow("Store sync skipped", "error", err)
	}

	lines, err := Tail(path, count)
	if err != nil {
		logger.Infow("Audit log file not readable", "path", path, "error", err)
		return nil, false
	}
	logger.Infow("Read audit log entries", "path", path, "count", len(lines))
	for _, line := range lines {
		logger.Debugw("Audit log entry", "entry", line)
	}
	return lines, true
}
