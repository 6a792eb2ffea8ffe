package config

import (
	"errors"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional configuration file to
// produce a Config. Flags override file settings.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := &Config{
		Workers:    0,
		ConfigFile: configPath,
		Tracing:    TracingConfig{SampleRate: 1.0, Protocol: "grpc"},
	}

	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := cfgViper.Unmarshal(cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = configPath
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFlagOverrides copies explicitly-set flags over file settings.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "input":
			var inputs []string
			inputs, err = flags.GetStringSlice("input")
			if err == nil {
				cfg.Input = append(cfg.Input, inputs...)
			}
		case "idents":
			cfg.Idents.Path = f.Value.String()
		case "workers":
			cfg.Workers, err = flags.GetInt("workers")
		case "rate":
			cfg.Rate, err = flags.GetFloat64("rate")
		case "threshold":
			var thresholds []string
			thresholds, err = flags.GetStringSlice("threshold")
			if err == nil {
				cfg.Thresholds = append(cfg.Thresholds, thresholds...)
			}
		case "json-output":
			cfg.JSONOutput, err = flags.GetBool("json-output")
		case "export-json":
			cfg.ExportJSON = f.Value.String()
		case "export-yaml":
			cfg.ExportYAML = f.Value.String()
		case "verbose":
			cfg.Verbose, err = flags.GetBool("verbose")
		}
	})
	return err
}
