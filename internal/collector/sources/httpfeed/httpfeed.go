// Package httpfeed polls bookmakers that publish their board as a JSON line
// feed over HTTP.
package httpfeed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Vodeneev/propline/internal/collector"
	"github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/models"
)

const (
	Kind             = "httpfeed"
	maxPayloadBytes  = 32 << 20
	mirrorResolveTTL = 30 * time.Minute
)

func init() {
	collector.Register(Kind, New)
}

type Source struct {
	name      string
	feedURL   string
	mirrorURL string
	userAgent string
	headers   map[string]string
	timeout   time.Duration
	defaults  collector.FeedDefaults
	client    *http.Client

	mu         sync.Mutex
	base       string
	resolvedAt time.Time
}

func New(src config.SourceConfig, col config.CollectorConfig) (collector.Source, error) {
	if src.URL == "" {
		return nil, fmt.Errorf("%s: url is required", Kind)
	}
	return &Source{
		name:      src.Name,
		feedURL:   src.URL,
		mirrorURL: src.MirrorURL,
		userAgent: col.UserAgent,
		headers:   src.Headers,
		timeout:   src.Timeout,
		defaults:  collector.FeedDefaults{Sport: src.Sport, League: src.League},
		client:    &http.Client{Timeout: src.Timeout},
	}, nil
}

func (s *Source) Name() string { return s.name }

func (s *Source) Fetch(ctx context.Context) ([]byte, error) {
	target, err := s.target(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.invalidateMirror()
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &collector.StatusError{Code: resp.StatusCode, URL: target}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxPayloadBytes {
		return nil, collector.Malformed("payload exceeds %d bytes", maxPayloadBytes)
	}
	return body, nil
}

func (s *Source) Parse(payload []byte) (*models.RawBatch, error) {
	return collector.DecodeFeed(payload, s.defaults)
}

// target is the feed URL, moved onto the mirror's current host when the
// source is configured with a mirror.
func (s *Source) target(ctx context.Context) (string, error) {
	if s.mirrorURL == "" {
		return s.feedURL, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base == "" || time.Since(s.resolvedAt) > mirrorResolveTTL {
		base, err := resolveMirror(ctx, s.client, s.mirrorURL, s.userAgent, s.timeout)
		if err != nil {
			if s.base == "" {
				return "", fmt.Errorf("resolve mirror: %w", err)
			}
			slog.Warn("Mirror resolution failed, keeping previous host", "source", s.name, "base", s.base, "error", err)
		} else {
			s.base = base
			s.resolvedAt = time.Now()
		}
	}
	return rebase(s.feedURL, s.base)
}

func (s *Source) invalidateMirror() {
	if s.mirrorURL == "" {
		return
	}
	s.mu.Lock()
	s.resolvedAt = time.Time{}
	s.mu.Unlock()
}
