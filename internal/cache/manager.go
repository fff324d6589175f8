package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/extractio/extractio/internal/logger"
)

// StatusNotModified is reported when a resolve was served from the store.
const StatusNotModified = http.StatusNotModified

var (
	ErrFetchFailed     = errors.New("cache: fetch failed")
	ErrInvalidResource = errors.New("cache: invalid resource")
)

// Resource names one cached document and how long it stays fresh.
type Resource struct {
	Key string
	TTL time.Duration
	// Identity is the subject the caller expects the cached value to belong
	// to. A stored entry with a different identity is stale regardless of
	// its age. Empty matches any entry.
	Identity string
}

// Payload is what a Fetcher got from the remote API.
type Payload struct {
	Status int
	Data   json.RawMessage
}

// Fetcher retrieves the authoritative value for one resource.
type Fetcher func(ctx context.Context) (Payload, error)

// Result is the outcome of Resolve.
type Result struct {
	Value     json.RawMessage
	Status    int
	FromCache bool
}

// FetchError reports a fetch that failed or answered outside 2xx.
// It matches ErrFetchFailed with errors.Is.
type FetchError struct {
	Key    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cache: fetch %s failed: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("cache: fetch %s failed: status %d", e.Key, e.Status)
}

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

func (e *FetchError) Unwrap() error { return e.Err }

// Manager decides per resource whether to serve the stored entry, extend it,
// or replace it with a fresh fetch. It is safe for concurrent use; concurrent
// resolves of the same key and identity share a single fetch and write, and
// resolves of the same key with different identities run one after another.
type Manager struct {
	kv         KV
	now        func() time.Time
	touchOnHit bool
	flight     singleflight.Group
	locks      keyLocks
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithTouchOnHit makes a cache hit record the time of the hit instead of
// pushing stored_at one TTL into the future.
func WithTouchOnHit() Option {
	return func(m *Manager) { m.touchOnHit = true }
}

func NewManager(kv KV, opts ...Option) *Manager {
	m := &Manager{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve returns the value for res, fetching it with fetch when the stored
// entry is absent, stale, malformed or belongs to another identity.
//
// Once started, the fetch and the following write run to completion even if
// ctx is cancelled.
func (m *Manager) Resolve(ctx context.Context, res Resource, fetch Fetcher) (Result, error) {
	if res.Key == "" || res.TTL < time.Second || fetch == nil {
		return Result{}, fmt.Errorf("%w: key %q ttl %s", ErrInvalidResource, res.Key, res.TTL)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	detached := context.WithoutCancel(ctx)
	v, err, shared := m.flight.Do(res.Key+"\x00"+res.Identity, func() (any, error) {
		unlock := m.locks.lock(res.Key)
		defer unlock()
		return m.resolve(detached, res, fetch)
	})
	if err != nil {
		return Result{}, err
	}
	r := v.(Result)
	if shared {
		r.Value = append(json.RawMessage(nil), r.Value...)
	}
	return r, nil
}

func (m *Manager) resolve(ctx context.Context, res Resource, fetch Fetcher) (Result, error) {
	now := m.now()
	raw, err := m.kv.Get(res.Key)
	if errors.Is(err, ErrNotFound) {
		return m.fill(ctx, res, fetch, now, nil)
	}
	if err != nil {
		logger.Warnf("cache %s: read failed, refetching: %v", res.Key, err)
		return m.refill(ctx, res, fetch, now)
	}

	entry, err := decodeEntry(res.Key, raw)
	if err != nil {
		logger.Warnf("cache %s: %v, evicting", res.Key, err)
		if err := m.kv.Remove(res.Key); err != nil {
			logger.Errorf("cache %s: evict malformed entry: %v", res.Key, err)
		}
		return m.fill(ctx, res, fetch, now, nil)
	}

	if entry.Fresh(now, res.TTL, res.Identity) {
		logger.Debugf("cache %s: hit", res.Key)
		return m.revalidate(entry, res, now), nil
	}
	return m.fill(ctx, res, fetch, now, &entry)
}

// refill fetches res after the stored entry could not be read. The entry is
// read again before writing so stored_at never moves backwards; if it still
// cannot be read the fetched value is returned without being stored.
func (m *Manager) refill(ctx context.Context, res Resource, fetch Fetcher, now time.Time) (Result, error) {
	p, err := m.fetch(ctx, res, fetch)
	if err != nil {
		return Result{}, err
	}
	var prior *Entry
	raw, err := m.kv.Get(res.Key)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		logger.Warnf("cache %s: read failed again, not storing fetched value: %v", res.Key, err)
		return Result{Value: p.Data, Status: p.Status}, nil
	default:
		if e, err := decodeEntry(res.Key, raw); err == nil {
			prior = &e
		}
	}
	m.store(res, p, now, prior)
	return Result{Value: p.Data, Status: p.Status}, nil
}

// revalidate serves a fresh entry and extends its stored_at.
func (m *Manager) revalidate(entry Entry, res Resource, now time.Time) Result {
	storedAt := now.Unix()
	if !m.touchOnHit {
		storedAt += int64(res.TTL / time.Second)
	}
	entry.StoredAt = max(entry.StoredAt, storedAt)
	if err := m.write(entry); err != nil {
		logger.Warnf("cache %s: extend stored_at: %v", res.Key, err)
	}
	return Result{Value: entry.Value, Status: StatusNotModified, FromCache: true}
}

// fill fetches res and stores the result. A non-nil prior entry is evicted
// only after the fetch succeeded, so a failing fetch leaves it in place.
func (m *Manager) fill(ctx context.Context, res Resource, fetch Fetcher, now time.Time, prior *Entry) (Result, error) {
	p, err := m.fetch(ctx, res, fetch)
	if err != nil {
		return Result{}, err
	}
	if prior != nil {
		if err := m.kv.Remove(res.Key); err != nil {
			logger.Warnf("cache %s: evict stale entry: %v", res.Key, err)
		}
	}
	m.store(res, p, now, prior)
	return Result{Value: p.Data, Status: p.Status}, nil
}

func (m *Manager) fetch(ctx context.Context, res Resource, fetch Fetcher) (Payload, error) {
	logger.Debugf("cache %s: fetching", res.Key)
	p, err := fetch(ctx)
	if err != nil {
		logger.Errorf("cache %s: fetch: %v", res.Key, err)
		return Payload{}, &FetchError{Key: res.Key, Status: p.Status, Err: err}
	}
	if p.Status < 200 || p.Status >= 300 {
		logger.Errorf("cache %s: fetch returned status %d", res.Key, p.Status)
		return Payload{}, &FetchError{Key: res.Key, Status: p.Status}
	}
	if len(p.Data) == 0 {
		p.Data = json.RawMessage("null")
	}
	if !json.Valid(p.Data) {
		logger.Errorf("cache %s: fetch returned invalid JSON", res.Key)
		return Payload{}, &FetchError{Key: res.Key, Status: p.Status, Err: errors.New("invalid JSON payload")}
	}
	return p, nil
}

// store writes the fetched payload. stored_at never drops below prior's.
func (m *Manager) store(res Resource, p Payload, now time.Time, prior *Entry) {
	entry := Entry{Key: res.Key, Value: p.Data, StoredAt: now.Unix(), Identity: res.Identity}
	if prior != nil {
		entry.StoredAt = max(entry.StoredAt, prior.StoredAt)
	}
	if err := m.write(entry); err != nil {
		logger.Errorf("cache %s: store fetched value: %v", res.Key, err)
	}
}

func (m *Manager) write(e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return m.kv.Set(e.Key, b)
}

// Evict removes the stored entry for key.
func (m *Manager) Evict(key string) error {
	return m.kv.Remove(key)
}
