// Package config handles udis.toml decoder and output settings.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"udis/internal/mpy"
	"udis/internal/qstr"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Config represents a udis.toml file.
type Config struct {
	Decoder Decoder `toml:"decoder"`
	Output  Output  `toml:"output"`
}

// Decoder configures the .mpy reader.
type Decoder struct {
	WindowPolicy string `toml:"window_policy"`
	MaxDepth     int    `toml:"max_depth"`
	MaxCodeSize  int    `toml:"max_code_size"`
	MaxCount     int    `toml:"max_count"`
	MaxWindow    int    `toml:"max_window"`
}

// Output configures dump output.
type Output struct {
	Format       string `toml:"format"`
	Instructions bool   `toml:"instructions"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Decoder: Decoder{
			WindowPolicy: qstr.PolicyPromote.String(),
			MaxDepth:     mpy.DefaultMaxDepth,
			MaxCodeSize:  mpy.DefaultMaxCodeSize,
			MaxCount:     mpy.DefaultMaxCount,
			MaxWindow:    mpy.DefaultMaxWindow,
		},
		Output: Output{
			Format: FormatJSON,
		},
	}
}

// Load parses a TOML file over the defaults. Keys absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML text over the defaults. name is used in errors only.
func Parse(data []byte, name string) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("config: parse error in %s: %w", name, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), name)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", name, err)
	}
	return c, nil
}

// Validate checks enumerated values and limits.
func (c *Config) Validate() error {
	if _, err := qstr.ParsePolicy(c.Decoder.WindowPolicy); err != nil {
		return err
	}
	switch c.Output.Format {
	case FormatJSON, FormatCBOR:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Output.Format, FormatJSON, FormatCBOR)
	}
	if c.Decoder.MaxDepth < 0 || c.Decoder.MaxCodeSize < 0 || c.Decoder.MaxCount < 0 || c.Decoder.MaxWindow < 0 {
		return fmt.Errorf("decoder limits must not be negative")
	}
	return nil
}

// DecodeOptions converts the decoder section into reader options.
func (c *Config) DecodeOptions() (mpy.Options, error) {
	policy, err := qstr.ParsePolicy(c.Decoder.WindowPolicy)
	if err != nil {
		return mpy.Options{}, err
	}
	return mpy.Options{
		WindowPolicy: policy,
		MaxDepth:     c.Decoder.MaxDepth,
		MaxCodeSize:  c.Decoder.MaxCodeSize,
		MaxCount:     c.Decoder.MaxCount,
		MaxWindow:    c.Decoder.MaxWindow,
	}, nil
}
