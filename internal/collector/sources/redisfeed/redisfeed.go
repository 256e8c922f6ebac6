// Package redisfeed consumes bookmakers that push their lines to a Redis
// stream, one JSON line record per stream entry.
package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Vodeneev/propline/internal/collector"
	"github.com/Vodeneev/propline/internal/pkg/config"
	"github.com/Vodeneev/propline/internal/pkg/models"
)

const (
	Kind      = "redisfeed"
	readCount = 5000

	fieldLine         = "line"
	fieldDefaultOdds  = "default_odds"
	fieldDefaultImPrb = "default_im_prb"
)

func init() {
	collector.Register(Kind, New)
}

type streamReader interface {
	XRead(ctx context.Context, a *redis.XReadArgs) *redis.XStreamSliceCmd
	Close() error
}

// Source reads new stream entries since the last successfully parsed one.
type Source struct {
	name     string
	stream   string
	defaults collector.FeedDefaults
	client   streamReader

	mu     sync.Mutex
	lastID string
}

// envelope carries the stream position from Fetch to Parse so the position
// only advances once a batch parsed.
type envelope struct {
	LastID string `json:"last_id"`
	collector.FeedDocument
}

func New(src config.SourceConfig, _ config.CollectorConfig) (collector.Source, error) {
	if src.Stream == "" {
		return nil, fmt.Errorf("%s: stream is required", Kind)
	}
	opts, err := redis.ParseURL(src.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", Kind, err)
	}
	if src.Timeout > 0 {
		opts.ReadTimeout = src.Timeout
	}
	return newSource(src, redis.NewClient(opts)), nil
}

func newSource(src config.SourceConfig, client streamReader) *Source {
	return &Source{
		name:     src.Name,
		stream:   src.Stream,
		defaults: collector.FeedDefaults{Sport: src.Sport, League: src.League},
		client:   client,
		lastID:   "0-0",
	}
}

func (s *Source) Name() string { return s.name }

func (s *Source) Fetch(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	from := s.lastID
	s.mu.Unlock()

	streams, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.stream, from},
		Count:   readCount,
		Block:   -1, // no BLOCK argument: return immediately
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xread %s: %w", s.stream, err)
	}

	env := envelope{LastID: from, FeedDocument: collector.FeedDocument{Lines: []collector.FeedLine{}}}
	skipped := 0
	for _, st := range streams {
		for _, msg := range st.Messages {
			env.LastID = msg.ID
			if err := decodeMessage(msg, &env.FeedDocument); err != nil {
				skipped++
				slog.Debug("Skipping stream entry", "source", s.name, "id", msg.ID, "error", err)
			}
		}
	}
	if skipped > 0 {
		slog.Warn("Skipped undecodable stream entries", "source", s.name, "stream", s.stream, "skipped", skipped)
	}
	return json.Marshal(env)
}

func (s *Source) Parse(payload []byte) (*models.RawBatch, error) {
	var env struct {
		LastID string `json:"last_id"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, collector.Malformed("decode envelope: %v", err)
	}
	batch, err := collector.DecodeFeed(payload, s.defaults)
	if err != nil {
		return nil, err
	}
	if env.LastID != "" {
		s.mu.Lock()
		s.lastID = env.LastID
		s.mu.Unlock()
	}
	return batch, nil
}

// LastID returns the position of the last parsed entry.
func (s *Source) LastID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

func (s *Source) Close() error {
	return s.client.Close()
}

func decodeMessage(msg redis.XMessage, doc *collector.FeedDocument) error {
	raw, ok := msg.Values[fieldLine].(string)
	if !ok {
		return fmt.Errorf("missing %q field", fieldLine)
	}
	var fl collector.FeedLine
	if err := json.Unmarshal([]byte(raw), &fl); err != nil {
		return fmt.Errorf("decode line: %w", err)
	}
	doc.Lines = append(doc.Lines, fl)

	if v, ok := floatField(msg.Values, fieldDefaultOdds); ok {
		doc.DefaultOdds = &v
	}
	if v, ok := floatField(msg.Values, fieldDefaultImPrb); ok {
		doc.DefaultImPrb = &v
	}
	return nil
}

func floatField(values map[string]interface{}, key string) (float64, bool) {
	s, ok := values[key].(string)
	if !ok || s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
