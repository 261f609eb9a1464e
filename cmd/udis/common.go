package main

import (
	"flag"

	"udis/internal/config"
)

// commonFlags are accepted by every subcommand that decodes a file.
type commonFlags struct {
	in           *string
	configPath   *string
	windowPolicy *string
	verbose      *bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		in:           fs.String("in", "", "input .mpy file"),
		configPath:   fs.String("config", "", "path to udis.toml"),
		windowPolicy: fs.String("window-policy", "", "qstr window policy: promote or remove"),
		verbose:      fs.Bool("verbose", false, "debug logging"),
	}
}

// loadConfig reads --config (or the defaults) and applies flag overrides.
func (c *commonFlags) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *c.configPath != "" {
		var err error
		if cfg, err = config.Load(*c.configPath); err != nil {
			return nil, err
		}
	}
	if *c.windowPolicy != "" {
		cfg.Decoder.WindowPolicy = *c.windowPolicy
	}
	return cfg, cfg.Validate()
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
