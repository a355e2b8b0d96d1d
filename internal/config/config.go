package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/smartscale/internal/delivery"
	"github.com/roach88/smartscale/internal/fsm"
	"github.com/roach88/smartscale/internal/link"
	"github.com/roach88/smartscale/internal/serializer"
	"github.com/roach88/smartscale/internal/store"
)

// Environment variables overriding file values.
const (
	EnvMAC           = "SMARTSCALE_MAC"
	EnvGatewayURL    = "SMARTSCALE_GATEWAY_URL"
	EnvArchiveBucket = "SMARTSCALE_ARCHIVE_BUCKET"
)

// Storage backends.
const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

// Config is the complete configuration.
type Config struct {
	MAC        string           `yaml:"mac"`
	GatewayURL string           `yaml:"gateway_url"`
	Timezone   string           `yaml:"timezone"`
	Storage    StorageConfig    `yaml:"storage"`
	Link       LinkConfig       `yaml:"link"`
	Input      InputConfig      `yaml:"input"`
	Serializer SerializerConfig `yaml:"serializer"`
	Archive    ArchiveConfig    `yaml:"archive"`
}

// StorageConfig selects where line files live.
type StorageConfig struct {
	Backend    string `yaml:"backend"`
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
	Backlog    string `yaml:"backlog"`
	BacklogAux string `yaml:"backlog_aux"`
	DailyCSV   string `yaml:"daily_csv"`
}

// LinkConfig tunes the serial link.
type LinkConfig struct {
	SendDelay time.Duration  `yaml:"send_delay"`
	Timeouts  TimeoutsConfig `yaml:"timeouts"`
}

// TimeoutsConfig holds the link read deadlines.
type TimeoutsConfig struct {
	Ping    time.Duration `yaml:"ping"`
	WiFi    time.Duration `yaml:"wifi"`
	Save    time.Duration `yaml:"save"`
	Upload  time.Duration `yaml:"upload"`
	Barcode time.Duration `yaml:"barcode"`
	Product time.Duration `yaml:"product"`
}

// InputConfig tunes event intake on the scale.
type InputConfig struct {
	// Debounce is the window for inputs without their own entry in
	// Windows. Keys of Windows are event names such as "CommitMeal".
	Debounce       time.Duration            `yaml:"debounce"`
	Windows        map[string]time.Duration `yaml:"windows"`
	QueueSize      int                      `yaml:"queue_size"`
	SampleInterval time.Duration            `yaml:"sample_interval"`
	PollInterval   time.Duration            `yaml:"poll_interval"`
}

// SerializerConfig bounds outgoing documents.
type SerializerConfig struct {
	Capacity int `yaml:"capacity"`
}

// ArchiveConfig enables the S3 copy of delivered documents when Bucket is
// set.
type ArchiveConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	t := link.DefaultTimeouts()
	return Config{
		Timezone: "UTC",
		Storage: StorageConfig{
			Backend:    BackendDir,
			Dir:        "data",
			SQLitePath: "smartscale.db",
			Backlog:    delivery.DefaultBacklogFile,
			BacklogAux: delivery.DefaultAuxFile,
			DailyCSV:   "daily.csv",
		},
		Link: LinkConfig{
			SendDelay: link.DefaultSendDelay,
			Timeouts: TimeoutsConfig{
				Ping:    t.Ping,
				WiFi:    t.WiFi,
				Save:    t.Save,
				Upload:  t.Upload,
				Barcode: t.Barcode,
				Product: t.Product,
			},
		},
		Input: InputConfig{
			Debounce:       fsm.DefaultDebounce,
			QueueSize:      fsm.DefaultQueueSize,
			SampleInterval: fsm.DefaultSampleInterval,
			PollInterval:   fsm.DefaultPollInterval,
		},
		Serializer: SerializerConfig{Capacity: serializer.DefaultCapacity},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads credentials from a .env file into the environment. A
// missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no .env file", "path", path)
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// decode merges YAML over cfg, rejecting unknown fields.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvMAC); ok && v != "" {
		c.MAC = v
	}
	if v, ok := lookup(EnvGatewayURL); ok && v != "" {
		c.GatewayURL = v
	}
	if v, ok := lookup(EnvArchiveBucket); ok && v != "" {
		c.Archive.Bucket = v
	}
}

// Validate checks the configuration for values no component accepts.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendDir:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the dir backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("storage.backend %q: must be %q or %q", c.Storage.Backend, BackendDir, BackendSQLite)
	}
	if c.Storage.Backlog == "" || c.Storage.BacklogAux == "" || c.Storage.DailyCSV == "" {
		return fmt.Errorf("storage file names must not be empty")
	}
	if c.Storage.Backlog == c.Storage.BacklogAux {
		return fmt.Errorf("storage.backlog and storage.backlog_aux must differ")
	}

	t := c.Link.Timeouts
	for name, d := range map[string]time.Duration{
		"ping": t.Ping, "wifi": t.WiFi, "save": t.Save,
		"upload": t.Upload, "barcode": t.Barcode, "product": t.Product,
	} {
		if d <= 0 {
			return fmt.Errorf("link.timeouts.%s must be positive, got %s", name, d)
		}
	}
	if c.Link.SendDelay < 0 {
		return fmt.Errorf("link.send_delay must not be negative")
	}

	if c.Input.Debounce < 0 {
		return fmt.Errorf("input.debounce must not be negative")
	}
	if _, err := c.DebounceWindows(); err != nil {
		return err
	}
	if c.Input.QueueSize <= 0 {
		return fmt.Errorf("input.queue_size must be positive, got %d", c.Input.QueueSize)
	}
	if c.Input.SampleInterval <= 0 || c.Input.PollInterval <= 0 {
		return fmt.Errorf("input intervals must be positive")
	}
	if c.Serializer.Capacity <= 0 {
		return fmt.Errorf("serializer.capacity must be positive, got %d", c.Serializer.Capacity)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// LinkTimeouts returns the link deadlines.
func (c Config) LinkTimeouts() link.Timeouts {
	t := c.Link.Timeouts
	return link.Timeouts{
		Ping:    t.Ping,
		WiFi:    t.WiFi,
		Save:    t.Save,
		Upload:  t.Upload,
		Barcode: t.Barcode,
		Product: t.Product,
	}
}

// DebounceWindows returns the per-input debounce windows keyed by event.
func (c Config) DebounceWindows() (map[fsm.EventKind]time.Duration, error) {
	if len(c.Input.Windows) == 0 {
		return nil, nil
	}
	out := make(map[fsm.EventKind]time.Duration, len(c.Input.Windows))
	for name, d := range c.Input.Windows {
		kind, err := fsm.ParseEventKind(name)
		if err != nil {
			return nil, fmt.Errorf("input.windows: %w", err)
		}
		if d < 0 {
			return nil, fmt.Errorf("input.windows.%s must not be negative", name)
		}
		out[kind] = d
	}
	return out, nil
}

// Location returns the time zone meal timestamps are written in.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	return loc, nil
}

// OpenStore opens the configured storage backend. The returned close
// function releases it.
func (c Config) OpenStore() (store.LineStore, func() error, error) {
	switch c.Storage.Backend {
	case BackendSQLite:
		s, err := store.Open(c.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		s, err := store.OpenDir(c.Storage.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	}
}

// S3 returns the archive settings, or nil when no bucket is configured.
func (c Config) S3() *delivery.S3Config {
	if c.Archive.Bucket == "" {
		return nil
	}
	return &delivery.S3Config{
		Bucket:    c.Archive.Bucket,
		Region:    c.Archive.Region,
		Endpoint:  c.Archive.Endpoint,
		PathStyle: c.Archive.PathStyle,
	}
}
