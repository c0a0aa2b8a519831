// Package delivery hands catalog documents to users: either as a redirect to the
// publisher's URL or as a proxied download cached in memory.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/minerva/core/logger"
	"github.com/m3rciful/minerva/core/netutil"
	"github.com/m3rciful/minerva/internal/catalog"
)

const (
	DefaultCacheTTL = time.Hour
	DefaultMaxBytes = 20 << 20
)

var (
	// ErrNotDocument is returned for topics whose URL is a web page, not a file.
	ErrNotDocument = errors.New("delivery: topic has no downloadable document")
	// ErrTooLarge is returned when a document exceeds the configured size limit.
	ErrTooLarge = errors.New("delivery: document too large")
)

// Document is a downloaded catalog file.
type Document struct {
	Topic       catalog.Key
	Filename    string
	ContentType string
	Data        []byte
	FetchedAt   time.Time
}

// Options configure a Service. Zero values select the defaults.
type Options struct {
	CacheTTL time.Duration
	MaxBytes int64
	Client   *http.Client
}

// Service resolves and fetches catalog documents. It is safe for concurrent use.
type Service struct {
	reg    *catalog.Registry
	client *http.Client
	max    int64
	cache  *cache.Cache
	group  singleflight.Group
}

// New returns a Service over reg.
func New(reg *catalog.Registry, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Client == nil {
		opts.Client = netutil.NewClient(netutil.ClientOptions{})
	}
	return &Service{
		reg:    reg,
		client: opts.Client,
		max:    opts.MaxBytes,
		cache:  cache.New(opts.CacheTTL, 2*opts.CacheTTL),
	}
}

// RedirectURL returns the public URL of the topic's catalog.
func (s *Service) RedirectURL(key catalog.Key) (string, error) {
	entry, err := s.reg.Lookup(key)
	if err != nil {
		return "", err
	}
	return entry.URL, nil
}

// Fetch returns the topic's document, downloading it at most once per cache period
// no matter how many callers ask concurrently.
func (s *Service) Fetch(ctx context.Context, key catalog.Key) (Document, error) {
	topic, err := s.reg.Get(key)
	if err != nil {
		return Document{}, err
	}
	if !topic.IsDocument() {
		return Document{}, fmt.Errorf("%w: %q", ErrNotDocument, key)
	}

	if v, ok := s.cache.Get(string(key)); ok {
		logger.Debug(ctx, "delivery", "delivery.fetch",
			slog.String("topic", string(key)),
			slog.String("cache", "hit"),
		)
		return v.(Document), nil
	}

	v, err, _ := s.group.Do(string(key), func() (any, error) {
		if v, ok := s.cache.Get(string(key)); ok {
			return v, nil
		}
		// shared by all waiting callers
		doc, err := s.download(context.WithoutCancel(ctx), topic)
		if err != nil {
			return nil, err
		}
		s.cache.Set(string(key), doc, cache.DefaultExpiration)
		return doc, nil
	})
	if err != nil {
		return Document{}, err
	}
	return v.(Document), nil
}

// Forget drops a cached document so the next Fetch downloads it again.
func (s *Service) Forget(key catalog.Key) {
	s.cache.Delete(string(key))
}

func (s *Service) download(ctx context.Context, topic catalog.Topic) (Document, error) {
	start := time.Now()
	doc, err := s.get(ctx, topic)
	attrs := []slog.Attr{
		slog.String("topic", string(topic.Key)),
		slog.String("cache", "miss"),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.Warn(ctx, "delivery", "delivery.fetch", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.String("err_code", netutil.ClassifyError(err)),
		)...)
		return Document{}, err
	}
	logger.Info(ctx, "delivery", "delivery.fetch", append(attrs,
		slog.String("status", "ok"),
		slog.Int("bytes", len(doc.Data)),
	)...)
	return doc, nil
}

func (s *Service) get(ctx context.Context, topic catalog.Topic) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, topic.URL, nil)
	if err != nil {
		return Document{}, fmt.Errorf("delivery: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("delivery: fetch %q: %w", topic.Key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("delivery: fetch %q: %w", topic.Key, &netutil.StatusError{Code: resp.StatusCode, URL: topic.URL})
	}
	if resp.ContentLength > s.max {
		return Document{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.max+1))
	if err != nil {
		return Document{}, fmt.Errorf("delivery: read %q: %w", topic.Key, err)
	}
	if int64(len(data)) > s.max {
		return Document{}, fmt.Errorf("%w: over %d bytes", ErrTooLarge, s.max)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") {
		ct = "application/pdf"
	}
	return Document{
		Topic:       topic.Key,
		Filename:    filename(topic),
		ContentType: ct,
		Data:        data,
		FetchedAt:   time.Now(),
	}, nil
}

func filename(topic catalog.Topic) string {
	name := path.Base(strings.SplitN(topic.URL, "?", 2)[0])
	if name == "" || name == "." || name == "/" {
		return string(topic.Key) + ".pdf"
	}
	return name
}
