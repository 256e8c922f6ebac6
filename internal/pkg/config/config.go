package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Health    HealthConfig    `yaml:"health"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Registry  RegistryConfig  `yaml:"registry"`
	Collector CollectorConfig `yaml:"collector"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Lines     LinesConfig     `yaml:"lines"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // optional JSON log file, empty = stdout only
}

type HealthConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	CORSOrigins       []string      `yaml:"cors_origins"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`    // TTL of the published evaluated-lines key
	Stream   string        `yaml:"stream"` // stream receiving ranked lines, empty = no XADD
}

type RegistryConfig struct {
	SeedFile      string `yaml:"seed_file"`      // YAML seed of canonical entities
	FlushSchedule string `yaml:"flush_schedule"` // cron spec for persisting changes and the unidentified report
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// GroupConfig is a set of sources polled together. Groups are staggered
// evenly across the collection interval.
type GroupConfig struct {
	Name    string   `yaml:"name"`
	Sources []string `yaml:"sources"`
}

type SourceConfig struct {
	Name      string            `yaml:"name"` // bookmaker name stamped on every line
	Kind      string            `yaml:"kind"` // adapter: httpfeed, redisfeed
	URL       string            `yaml:"url"`
	MirrorURL string            `yaml:"mirror_url"` // resolved to the live URL before fetching
	Stream    string            `yaml:"stream"`     // redisfeed stream key
	Timeout   time.Duration     `yaml:"timeout"`
	Headers   map[string]string `yaml:"headers"`
	Sport     string            `yaml:"sport"`  // default sport for lines that omit it
	League    string            `yaml:"league"` // default league for lines that omit it
}

type CollectorConfig struct {
	Interval     time.Duration  `yaml:"interval"`
	RoundTimeout time.Duration  `yaml:"round_timeout"` // soft deadline per round
	Retry        RetryConfig    `yaml:"retry"`
	Groups       []GroupConfig  `yaml:"groups"`
	Sources      []SourceConfig `yaml:"sources"`
	UserAgent    string         `yaml:"user_agent"`
}

type ScheduleConfig struct {
	URL      string        `yaml:"url"`
	Interval string        `yaml:"interval"` // cron spec, e.g. "@every 10m"
	Timeout  time.Duration `yaml:"timeout"`
	// Lookback skips feed entries that started longer ago: finished games.
	Lookback time.Duration `yaml:"lookback"`
}

type LinesConfig struct {
	MaxHistory int           `yaml:"max_history"` // per (bookmaker, label), 0 = unbounded
	Retention  time.Duration `yaml:"retention"`   // aggregates whose game started earlier are pruned
}

type EvaluatorConfig struct {
	Schedule    string             `yaml:"schedule"`    // cron spec of the batch pass
	SharpBooks  map[string]float64 `yaml:"sharp_books"` // sharp bookmaker -> reliability weight
	MinEV       float64            `yaml:"min_ev"`
	KeepTop     int                `yaml:"keep_top"`
	Complements map[string]string  `yaml:"complements"` // extra label pairs, e.g. "Higher": "Lower"
}

type TelegramConfig struct {
	BotToken   string        `yaml:"bot_token"`
	ChatID     int64         `yaml:"chat_id"`
	AlertMinEV float64       `yaml:"alert_min_ev"`
	Cooldown   time.Duration `yaml:"cooldown"`
}

// Enabled reports whether Telegram alerts are configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != 0
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Health.Port == 0 {
		c.Health.Port = 8080
	}
	if c.Health.ReadHeaderTimeout <= 0 {
		c.Health.ReadHeaderTimeout = 5 * time.Second
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 10 * time.Minute
	}
	if c.Registry.FlushSchedule == "" {
		c.Registry.FlushSchedule = "@every 1m"
	}

	col := &c.Collector
	if col.Interval <= 0 {
		col.Interval = 2 * time.Minute
	}
	if col.RoundTimeout <= 0 {
		col.RoundTimeout = 60 * time.Second
	}
	if col.Retry.MaxAttempts <= 0 {
		col.Retry.MaxAttempts = 3
	}
	if col.Retry.InitialDelay <= 0 {
		col.Retry.InitialDelay = time.Second
	}
	if col.Retry.MaxDelay <= 0 {
		col.Retry.MaxDelay = 30 * time.Second
	}
	if col.Retry.Multiplier < 1 {
		col.Retry.Multiplier = 2
	}
	if col.UserAgent == "" {
		col.UserAgent = "propline/1.0"
	}
	for i := range col.Sources {
		s := &col.Sources[i]
		s.Name = strings.ToLower(strings.TrimSpace(s.Name))
		s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
		if s.Timeout <= 0 {
			s.Timeout = 30 * time.Second
		}
	}
	if len(col.Groups) == 0 && len(col.Sources) > 0 {
		all := GroupConfig{Name: "default"}
		for _, s := range col.Sources {
			all.Sources = append(all.Sources, s.Name)
		}
		col.Groups = []GroupConfig{all}
	}

	if c.Schedule.Interval == "" {
		c.Schedule.Interval = "@every 10m"
	}
	if c.Schedule.Timeout <= 0 {
		c.Schedule.Timeout = 20 * time.Second
	}
	if c.Schedule.Lookback <= 0 {
		c.Schedule.Lookback = 6 * time.Hour
	}

	if c.Lines.Retention <= 0 {
		c.Lines.Retention = 12 * time.Hour
	}

	ev := &c.Evaluator
	if ev.Schedule == "" {
		ev.Schedule = "@every 30s"
	}
	if len(ev.SharpBooks) == 0 {
		ev.SharpBooks = map[string]float64{"pinnacle": 1.0, "circa": 0.8, "betcris": 0.6}
	}
	normalized := make(map[string]float64, len(ev.SharpBooks))
	for name, w := range ev.SharpBooks {
		if w <= 0 {
			w = 1.0
		}
		normalized[strings.ToLower(strings.TrimSpace(name))] = w
	}
	ev.SharpBooks = normalized
	if ev.KeepTop <= 0 {
		ev.KeepTop = 500
	}

	if c.Telegram.Cooldown <= 0 {
		c.Telegram.Cooldown = 60 * time.Minute
	}
}

// Validate checks cross-references between groups and sources.
func (c *Config) Validate() error {
	known := make(map[string]bool, len(c.Collector.Sources))
	for _, s := range c.Collector.Sources {
		if s.Name == "" {
			return fmt.Errorf("collector.sources: source without name")
		}
		if s.Kind == "" {
			return fmt.Errorf("collector.sources[%s]: kind is required", s.Name)
		}
		if known[s.Name] {
			return fmt.Errorf("collector.sources[%s]: duplicate source", s.Name)
		}
		known[s.Name] = true
	}

	grouped := make(map[string]string)
	for _, g := range c.Collector.Groups {
		for _, name := range g.Sources {
			n := strings.ToLower(strings.TrimSpace(name))
			if !known[n] {
				return fmt.Errorf("collector.groups[%s]: unknown source %q", g.Name, name)
			}
			if other, ok := grouped[n]; ok {
				return fmt.Errorf("collector.groups: source %q is in both %q and %q", name, other, g.Name)
			}
			grouped[n] = g.Name
		}
	}
	return nil
}

// SourceByName returns the source configuration with the given name.
func (c *CollectorConfig) SourceByName(name string) (SourceConfig, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, s := range c.Sources {
		if s.Name == n {
			return s, true
		}
	}
	return SourceConfig{}, false
}
