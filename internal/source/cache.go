package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "drill:version"
	bumpChannel     = "drill.bump"
)

// Cache wraps Redis based caching with versioning controls. A nil Cache (or
// one without a client) degrades to calling the loader directly, so the drill
// endpoints keep working when Redis is down.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	if c == nil || c.client == nil {
		return strings.Join(parts, ":"), nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	joined := strings.Join(parts, ":")
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest interface{}, loader func(context.Context) (interface{}, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if err != redis.Nil {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the cache by incrementing the global version and publishing an event.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to version bump notifications so multiple
// API replicas converge on the same cache generation.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = bumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg.Payload != "" {
					if ver, err := strconv.ParseInt(msg.Payload, 10, 64); err == nil {
						_ = c.client.Set(ctx, cacheVersionKey, ver, 0).Err()
						continue
					}
				}
				_ = c.client.Incr(ctx, cacheVersionKey).Err()
			}
		}
	}()
	return nil
}

// CachedSource decorates a DataSource with the versioned cache. Concurrent
// requests for the same key share one upstream call via singleflight, which
// matters when several drill panels open against an empty cache at once.
type CachedSource struct {
	inner DataSource
	cache *Cache
	group singleflight.Group
}

// NewCachedSource wraps inner with read-through caching.
func NewCachedSource(inner DataSource, cache *Cache) *CachedSource {
	return &CachedSource{inner: inner, cache: cache}
}

// Bump invalidates every cached drill payload.
func (s *CachedSource) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *CachedSource) fetch(ctx context.Context, dest interface{}, keyParts []string, loader func(context.Context) (interface{}, error)) error {
	key, err := s.cache.BuildKey(ctx, keyParts...)
	if err != nil {
		return err
	}
	// The closure must return the payload, not write into dest: every caller
	// collapsed onto this flight gets the shared value and decodes its own copy.
	raw, err, _ := s.group.Do(key, func() (interface{}, error) {
		var payload json.RawMessage
		if err := s.cache.FetchJSON(ctx, key, &payload, loader); err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.(json.RawMessage), dest)
}

func pageToken(page, pageSize int) string {
	return fmt.Sprintf("%d:%d", page, ClampPageSize(pageSize))
}

func boolToken(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (s *CachedSource) BankTransactions(ctx context.Context, q TransactionQuery) (*TransactionPage, error) {
	var page TransactionPage
	err := s.fetch(ctx, &page,
		[]string{"drill", "cash", "tx", q.FromDate, q.ToDate, q.AccountID, pageToken(q.Page, q.PageSize)},
		func(ctx context.Context) (interface{}, error) { return s.inner.BankTransactions(ctx, q) },
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *CachedSource) BankStatements(ctx context.Context, q TransactionQuery) (*TransactionPage, error) {
	var page TransactionPage
	err := s.fetch(ctx, &page,
		[]string{"drill", "cash", "stmt", q.FromDate, q.ToDate, q.AccountID, pageToken(q.Page, q.PageSize)},
		func(ctx context.Context) (interface{}, error) { return s.inner.BankStatements(ctx, q) },
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *CachedSource) BankAccounts(ctx context.Context) ([]BankAccount, error) {
	var accounts []BankAccount
	err := s.fetch(ctx, &accounts,
		[]string{"drill", "bank_accounts"},
		func(ctx context.Context) (interface{}, error) { return s.inner.BankAccounts(ctx) },
	)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *CachedSource) Invoices(ctx context.Context, q InvoiceQuery) (*InvoicePage, error) {
	var page InvoicePage
	err := s.fetch(ctx, &page,
		[]string{"drill", "inv", string(q.Kind), q.Status, boolToken(q.OverdueOnly), q.FromDate, q.ToDate, pageToken(q.Page, q.PageSize)},
		func(ctx context.Context) (interface{}, error) { return s.inner.Invoices(ctx, q) },
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// InvoiceDetail is served straight from the inner source. Details are opened
// one at a time and the not-found case must not be memoised.
func (s *CachedSource) InvoiceDetail(ctx context.Context, invoiceID string) (*InvoiceDetail, error) {
	return s.inner.InvoiceDetail(ctx, invoiceID)
}

func (s *CachedSource) ProfitAndLoss(ctx context.Context, q PnLQuery) (*CategoryPage, error) {
	var page CategoryPage
	err := s.fetch(ctx, &page,
		[]string{"drill", "pnl", q.FromDate, q.ToDate},
		func(ctx context.Context) (interface{}, error) { return s.inner.ProfitAndLoss(ctx, q) },
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *CachedSource) AccountJournals(ctx context.Context, q JournalQuery) (*JournalPage, error) {
	var page JournalPage
	err := s.fetch(ctx, &page,
		[]string{"drill", "journals", q.AccountID, q.FromDate, q.ToDate, pageToken(q.Page, q.PageSize)},
		func(ctx context.Context) (interface{}, error) { return s.inner.AccountJournals(ctx, q) },
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

var _ DataSource = (*CachedSource)(nil)
