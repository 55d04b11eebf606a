package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/swtk/swt/internal/layout"
)

// Config is the top-level configuration document.
type Config struct {
	Font            string      `yaml:"font"`
	BorderPx        int         `yaml:"borderPx"`
	PingIntervalSec int         `yaml:"pingIntervalSec"`
	WindowSize      Size        `yaml:"windowSize"`
	Schemes         Schemes     `yaml:"schemes"`
	Keys            []KeyConfig `yaml:"keys"`
	Telemetry       Telemetry   `yaml:"telemetry"`
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Schemes holds the normal and selected color schemes.
type Schemes struct {
	Normal   SchemeConfig `yaml:"normal"`
	Selected SchemeConfig `yaml:"selected"`
}

// SchemeConfig is a scheme as written in the file, colors in #rrggbb form.
type SchemeConfig struct {
	Border string `yaml:"border"`
	Bg     string `yaml:"bg"`
	Fg     string `yaml:"fg"`
}

// Telemetry toggles the in-process counters.
type Telemetry struct {
	Enabled bool `yaml:"enabled"`
}

// KeyConfig binds a modifier+key chord to an action.
type KeyConfig struct {
	Key    string `yaml:"key"`
	Action string `yaml:"action"`
	Arg    string `yaml:"arg"`
}

// UnmarshalYAML accepts either a mapping or the compact "chord action [arg]" form.
func (k *KeyConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		fields := strings.Fields(value.Value)
		if len(fields) < 2 || len(fields) > 3 {
			return fmt.Errorf("line %d: key binding %q must be \"<chord> <action> [arg]\"", value.Line, value.Value)
		}
		k.Key, k.Action = fields[0], fields[1]
		if len(fields) == 3 {
			k.Arg = fields[2]
		}
		return nil
	}
	type rawKey KeyConfig
	var raw rawKey
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*k = KeyConfig(raw)
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Font:            "-*-terminus-medium-r-*-*-14-*-*-*-*-*-*-*",
		BorderPx:        2,
		PingIntervalSec: 300,
		WindowSize:      Size{Width: 640, Height: 480},
		Schemes: Schemes{
			Normal:   SchemeConfig{Border: "#444444", Bg: "#222222", Fg: "#bbbbbb"},
			Selected: SchemeConfig{Border: "#005577", Bg: "#005577", Fg: "#eeeeee"},
		},
		Keys: DefaultKeys(),
	}
}

// DefaultKeys returns the built-in key bindings.
func DefaultKeys() []KeyConfig {
	return []KeyConfig{
		{Key: "ctrl+q", Action: "quit"},
		{Key: "ctrl+c", Action: "closewindow"},
		{Key: "ctrl+j", Action: "select", Arg: "+1"},
		{Key: "ctrl+k", Action: "select", Arg: "-1"},
		{Key: "button4", Action: "select", Arg: "-1"},
		{Key: "button5", Action: "select", Arg: "+1"},
	}
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Keys = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Keys == nil {
		c.Keys = DefaultKeys()
	}
}

// PingInterval returns the liveness interval.
func (c *Config) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSec) * time.Second
}

// Validate performs basic sanity checks.
func (c *Config) Validate() error {
	var errs []error
	if c.BorderPx < 0 {
		errs = append(errs, fmt.Errorf("borderPx cannot be negative"))
	}
	if c.PingIntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("pingIntervalSec must be positive"))
	}
	if c.WindowSize.Width <= 0 || c.WindowSize.Height <= 0 {
		errs = append(errs, fmt.Errorf("windowSize must be positive, got %dx%d", c.WindowSize.Width, c.WindowSize.Height))
	}
	if _, err := c.LayoutSchemes(); err != nil {
		errs = append(errs, err)
	}
	for i, k := range c.Keys {
		if k.Key == "" {
			errs = append(errs, fmt.Errorf("keys[%d]: key cannot be empty", i))
		}
		if k.Action == "" {
			errs = append(errs, fmt.Errorf("keys[%d]: action cannot be empty", i))
		}
	}
	return errors.Join(errs...)
}

// LayoutSchemes parses the configured colors.
func (c *Config) LayoutSchemes() (layout.Schemes, error) {
	normal, err := c.Schemes.Normal.parse("schemes.normal")
	if err != nil {
		return layout.Schemes{}, err
	}
	selected, err := c.Schemes.Selected.parse("schemes.selected")
	if err != nil {
		return layout.Schemes{}, err
	}
	return layout.Schemes{Normal: normal, Selected: selected}, nil
}

func (s SchemeConfig) parse(path string) (layout.Scheme, error) {
	border, err := parseColor(path+".border", s.Border)
	if err != nil {
		return layout.Scheme{}, err
	}
	bg, err := parseColor(path+".bg", s.Bg)
	if err != nil {
		return layout.Scheme{}, err
	}
	fg, err := parseColor(path+".fg", s.Fg)
	if err != nil {
		return layout.Scheme{}, err
	}
	return layout.Scheme{Border: border, Bg: bg, Fg: fg}, nil
}

func parseColor(path, value string) (layout.Color, error) {
	c, err := colorful.Hex(value)
	if err != nil {
		return layout.Color{}, fmt.Errorf("%s: invalid color %q: %w", path, value, err)
	}
	r, g, b := c.RGB255()
	return layout.Color{R: r, G: g, B: b}, nil
}
