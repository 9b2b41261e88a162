package fiber

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the scheduler's tunable parameters. A zero field stands for
// its default: Validate (called by NewScheduler and LoadConfig) fills it in.
type Config struct {
	// Slice is the virtual-time quantum each fiber receives before the
	// preemption driver requests a handoff. Spec §4.4 default: 20ms.
	Slice time.Duration `yaml:"slice"`

	// StackSize is the declared per-fiber stack size, in bytes. Spec §3
	// recommends >= 64KiB. fiberspace does not allocate this buffer
	// itself (goroutine stacks grow on demand) but reports it for parity
	// with a native implementation's resource accounting.
	StackSize int `yaml:"stackSize"`
}

const (
	defaultSlice     = 20 * time.Millisecond
	defaultStackSize = 64 * 1024
)

// rawConfig mirrors Config with Slice as a string, since yaml.v3 has no
// built-in text-to-time.Duration conversion (unlike its time.Time support).
type rawConfig struct {
	Slice     string `yaml:"slice"`
	StackSize int    `yaml:"stackSize"`
}

// UnmarshalYAML parses Slice with time.ParseDuration so config files write
// "20ms" rather than a raw nanosecond integer.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw rawConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}
	c.StackSize = raw.StackSize
	if raw.Slice == "" {
		return nil
	}
	d, err := time.ParseDuration(raw.Slice)
	if err != nil {
		return fmt.Errorf("fiber: parse slice duration %q: %w", raw.Slice, err)
	}
	c.Slice = d
	return nil
}

// DefaultConfig returns the spec's default tunables.
func DefaultConfig() Config {
	return Config{
		Slice:     defaultSlice,
		StackSize: defaultStackSize,
	}
}

// Validate fills in defaults for any zero or negative field rather than
// failing, since a partially-specified config
// file (e.g. only "slice:" set) is the common case.
func (c *Config) Validate() {
	if c.Slice <= 0 {
		c.Slice = defaultSlice
	}
	if c.StackSize <= 0 {
		c.StackSize = defaultStackSize
	}
}

// LoadConfig reads a YAML config file (grounded on vango's
// cmd/vango/internal/config, which loads project config the same way). A
// missing file is not an error: DefaultConfig is returned instead, since
// fiberctl subcommands should run with no config file present.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("fiber: read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("fiber: parse config %q: %w", path, err)
	}
	cfg.Validate()
	return cfg, nil
}
