// Package extractio binds every Extractio resource kind to its cache key,
// TTL and fetcher.
package extractio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/extractio/extractio/internal/api"
	"github.com/extractio/extractio/internal/cache"
	"github.com/extractio/extractio/internal/config"
	"github.com/extractio/extractio/internal/logger"
	"github.com/extractio/extractio/internal/media"
	"github.com/extractio/extractio/internal/web"
)

const (
	KeySession = "session"
	KeyTrend   = "trend"
)

// Per-media keys already carry the identifier, so the Identity check in the
// cache only catches entries written under the key by something else (an
// older build, a hand-edited store).
func MediaKey(loc media.Locator) string { return "media:" + loc.Identifier }
func RelatedKey(loc media.Locator) string { return "related_content:" + loc.Identifier }
func PreviewKey(loc media.Locator) string { return "preview:" + loc.Identifier }

var ErrMalformedResponse = errors.New("extractio: malformed response")

// Meta tells the caller where a value came from.
type Meta struct {
	Status    int
	FromCache bool
}

type Service struct {
	manager   *cache.Manager
	client    *api.Client
	previewer *web.Previewer
	ttl       config.TTL
	now       func() time.Time
	sourceURL func(media.Locator) string
}

func NewService(manager *cache.Manager, client *api.Client, previewer *web.Previewer, ttl config.TTL) *Service {
	return &Service{
		manager:   manager,
		client:    client,
		previewer: previewer,
		ttl:       ttl,
		now:       time.Now,
		sourceURL: media.Locator.SourceURL,
	}
}

// Session returns the API session, renewing it when the cached token has
// expired.
func (s *Service) Session(ctx context.Context) (api.Session, Meta, error) {
	res := cache.Resource{Key: KeySession, TTL: s.ttl.Session}
	return resolveAs(ctx, s, res, s.client.SessionFetcher(), func(data json.RawMessage) (api.Session, error) {
		sess, err := api.DecodeSession(data)
		if err != nil {
			return sess, err
		}
		if sess.Expires != 0 && sess.Expires <= s.now().Unix() {
			return sess, errors.New("session expired")
		}
		return sess, nil
	})
}

func (s *Service) Trend(ctx context.Context) ([]api.Media, Meta, error) {
	res := cache.Resource{Key: KeyTrend, TTL: s.ttl.Trend}
	return authorized(ctx, s, func(token string) ([]api.Media, Meta, error) {
		return resolveAs(ctx, s, res, s.client.TrendFetcher(token), api.DecodeMediaList)
	})
}

// Media looks up one media item. The cached entry is tied to the locator's
// identifier.
func (s *Service) Media(ctx context.Context, loc media.Locator) (api.MediaResult, Meta, error) {
	res := cache.Resource{Key: MediaKey(loc), TTL: s.ttl.Media, Identity: loc.Identifier}
	return authorized(ctx, s, func(token string) (api.MediaResult, Meta, error) {
		return resolveAs(ctx, s, res, s.client.MediaFetcher(token, loc), api.DecodeMedia)
	})
}

func (s *Service) Related(ctx context.Context, loc media.Locator) ([]api.Media, Meta, error) {
	res := cache.Resource{Key: RelatedKey(loc), TTL: s.ttl.RelatedContent, Identity: loc.Identifier}
	return authorized(ctx, s, func(token string) ([]api.Media, Meta, error) {
		return resolveAs(ctx, s, res, s.client.RelatedFetcher(token, loc), api.DecodeMediaList)
	})
}

// Preview scrapes the OpenGraph card of the media source page.
func (s *Service) Preview(ctx context.Context, loc media.Locator) (web.Preview, Meta, error) {
	res := cache.Resource{Key: PreviewKey(loc), TTL: s.ttl.Preview, Identity: loc.Identifier}
	fetch := func(ctx context.Context) (cache.Payload, error) {
		pv, err := s.previewer.Preview(ctx, s.sourceURL(loc))
		if err != nil {
			return cache.Payload{}, err
		}
		b, err := json.Marshal(pv)
		if err != nil {
			return cache.Payload{}, err
		}
		return cache.Payload{Status: http.StatusOK, Data: b}, nil
	}
	return resolveAs(ctx, s, res, fetch, func(data json.RawMessage) (web.Preview, error) {
		var pv web.Preview
		err := json.Unmarshal(data, &pv)
		return pv, err
	})
}

// authorized runs call with the session token. When the API rejects the
// token, the session is evicted and call is retried once with a new one.
func authorized[T any](ctx context.Context, s *Service, call func(token string) (T, Meta, error)) (T, Meta, error) {
	var zero T
	sess, _, err := s.Session(ctx)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("session: %w", err)
	}
	v, meta, err := call(sess.Token)
	var fe *cache.FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusUnauthorized {
		return v, meta, err
	}

	logger.Warnf("session token rejected by api, renewing")
	if err := s.manager.Evict(KeySession); err != nil {
		logger.Errorf("evict session: %v", err)
	}
	sess, _, err = s.Session(ctx)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("session: %w", err)
	}
	return call(sess.Token)
}

// resolveAs resolves res and decodes the value. A cached value that no
// longer decodes is evicted and fetched once more.
func resolveAs[T any](ctx context.Context, s *Service, res cache.Resource, fetch cache.Fetcher, decode func(json.RawMessage) (T, error)) (T, Meta, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		r, err := s.manager.Resolve(ctx, res, fetch)
		if err != nil {
			return zero, Meta{}, err
		}
		v, err := decode(r.Value)
		if err == nil {
			return v, Meta{Status: r.Status, FromCache: r.FromCache}, nil
		}

		logger.Warnf("%s: %v, evicting", res.Key, err)
		if err := s.manager.Evict(res.Key); err != nil {
			logger.Errorf("evict %s: %v", res.Key, err)
		}
		if !r.FromCache || attempt > 0 {
			return zero, Meta{}, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, res.Key, err)
		}
	}
}
