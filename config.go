package fixeltrack

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hupe1980/fixeltrack/codec"
	"github.com/hupe1980/fixeltrack/directions"
)

// Config is the file form of the pipeline options.
//
//	[mapping]
//	workers = 8
//	step_size = 0.5
//	memory_limit = 8589934592
//	progress_interval = "10s"
//	directions = 1281
//
//	[codec]
//	compression = "zstd"
//
//	[logging]
//	level = "info"
//	format = "json"
type Config struct {
	Mapping MappingConfig
	Codec   CodecConfig
	Logging LogConfig
}

// MappingConfig configures index construction and streamline mapping.
type MappingConfig struct {
	Workers          int      `toml:"workers"`
	StepSize         float32  `toml:"step_size"`
	MemoryLimit      int64    `toml:"memory_limit"`
	ProgressInterval duration `toml:"progress_interval"`
	Directions       int      `toml:"directions"`
}

// CodecConfig configures contribution serialization.
type CodecConfig struct {
	Compression string `toml:"compression"`
}

// LogConfig configures the pipeline logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// LoadConfig reads a TOML configuration file.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no TOML configuration file provided")
	}
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadConfig(f)
}

// ReadConfig decodes a TOML configuration. Unknown keys are rejected.
func ReadConfig(r io.Reader) (*Config, error) {
	var c Config
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return &c, nil
}

// Options converts the configuration into pipeline options. Zero values keep
// the defaults.
func (c *Config) Options() ([]Option, error) {
	var opts []Option

	m := c.Mapping
	if m.Workers < 0 {
		return nil, fmt.Errorf("mapping.workers must not be negative, got %d", m.Workers)
	}
	if m.Workers > 0 {
		opts = append(opts, WithWorkers(m.Workers))
	}
	if m.StepSize < 0 {
		return nil, fmt.Errorf("mapping.step_size must not be negative, got %v", m.StepSize)
	}
	if m.StepSize > 0 {
		opts = append(opts, WithStepSize(m.StepSize))
	}
	if m.MemoryLimit < 0 {
		return nil, fmt.Errorf("mapping.memory_limit must not be negative, got %d", m.MemoryLimit)
	}
	if m.MemoryLimit > 0 {
		opts = append(opts, WithMemoryLimit(m.MemoryLimit))
	}
	if m.ProgressInterval.Duration > 0 {
		opts = append(opts, WithProgressInterval(m.ProgressInterval.Duration))
	}
	if m.Directions < 0 {
		return nil, fmt.Errorf("mapping.directions must not be negative, got %d", m.Directions)
	}
	if m.Directions > 0 {
		opts = append(opts, WithDirections(directions.Fibonacci(m.Directions)))
	}

	if c.Codec.Compression != "" {
		comp, err := codec.ParseCompression(c.Codec.Compression)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCompression(comp))
	}

	logger, err := c.Logging.logger()
	if err != nil {
		return nil, err
	}
	if logger != nil {
		opts = append(opts, WithLogger(logger))
	}
	return opts, nil
}

func (l LogConfig) logger() (*Logger, error) {
	if l.Level == "" && l.Format == "" {
		return nil, nil
	}
	var level slog.Level
	if l.Level != "" {
		if err := level.UnmarshalText([]byte(l.Level)); err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
	}
	switch strings.ToLower(l.Format) {
	case "", "text":
		return NewTextLogger(nil, level), nil
	case "json":
		return NewJSONLogger(nil, level), nil
	case "none":
		return NoopLogger(), nil
	default:
		return nil, fmt.Errorf("logging.format: unknown format %q", l.Format)
	}
}
