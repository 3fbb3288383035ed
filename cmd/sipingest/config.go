package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"braces.dev/errtrace"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tmnsur/jsip-sub002/internal/errorutil"
	"github.com/tmnsur/jsip-sub002/internal/log"
	"github.com/tmnsur/jsip-sub002/sip"
)

const (
	engineNet  = "net"
	engineGnet = "gnet"
)

type config struct {
	Listen  string        `mapstructure:"listen" yaml:"listen"`
	Engine  string        `mapstructure:"engine" yaml:"engine"`
	Workers int           `mapstructure:"workers" yaml:"workers"`
	Metrics metricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     logConfig     `mapstructure:"log" yaml:"log"`
	Ingest  ingestConfig  `mapstructure:"ingest" yaml:"ingest"`
	Gnet    gnetConfig    `mapstructure:"gnet" yaml:"gnet"`
}

type metricsConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
	Path   string `mapstructure:"path" yaml:"path"`
}

type logConfig struct {
	// Format is one of console, dev, json or none.
	Format string `mapstructure:"format" yaml:"format"`
	Level  string `mapstructure:"level" yaml:"level"`
}

type ingestConfig struct {
	MaxMessageSize    int           `mapstructure:"max_message_size" yaml:"max_message_size"`
	StarvationTimeout time.Duration `mapstructure:"starvation_timeout" yaml:"starvation_timeout"`
	MutexTimeout      time.Duration `mapstructure:"mutex_timeout" yaml:"mutex_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MalformedHeaders  string        `mapstructure:"malformed_headers" yaml:"malformed_headers"`
}

type gnetConfig struct {
	Multicore    bool `mapstructure:"multicore" yaml:"multicore"`
	NumEventLoop int  `mapstructure:"num_event_loop" yaml:"num_event_loop"`
	ReusePort    bool `mapstructure:"reuse_port" yaml:"reuse_port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:5060")
	v.SetDefault("engine", engineNet)
	v.SetDefault("workers", 0)

	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.format", "console")
	v.SetDefault("log.level", "info")

	v.SetDefault("ingest.max_message_size", 64<<10)
	v.SetDefault("ingest.starvation_timeout", "8s")
	v.SetDefault("ingest.mutex_timeout", "30s")
	v.SetDefault("ingest.idle_timeout", "0s")
	v.SetDefault("ingest.malformed_headers", sip.KeepRaw.String())

	v.SetDefault("gnet.multicore", true)
	v.SetDefault("gnet.num_event_loop", 0)
	v.SetDefault("gnet.reuse_port", false)
}

// flagKeys maps config keys to the command line flags overriding them.
var flagKeys = map[string]string{
	"listen":                   "listen",
	"engine":                   "engine",
	"workers":                  "workers",
	"metrics.listen":           "metrics-listen",
	"log.format":               "log-format",
	"log.level":                "log-level",
	"ingest.max_message_size":  "max-message-size",
	"ingest.malformed_headers": "malformed-headers",
}

// app holds the global flags shared by all commands.
type app struct {
	configFile string
	overrides  []string
}

// loadConfig merges defaults, the config file, inline overrides, environment and flags,
// in the order of increasing priority.
func (a *app) loadConfig(cmd *cobra.Command) (*config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIPINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errtrace.Wrap(fmt.Errorf("read config file %s: %w", a.configFile, err))
		}
	}
	for _, s := range a.overrides {
		var m map[string]any
		if err := yaml.Unmarshal([]byte(s), &m); err != nil {
			return nil, errtrace.Wrap(fmt.Errorf("decode override %q: %w", s, err))
		}
		if err := v.MergeConfigMap(m); err != nil {
			return nil, errtrace.Wrap(fmt.Errorf("merge override %q: %w", s, err))
		}
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, errtrace.Wrap(err)
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("unmarshal config: %w", err))
	}
	if err := cfg.validate(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errtrace.Wrap(err)
		}
	}
	return nil
}

func (cfg *config) validate() error {
	var errs []error
	switch cfg.Engine {
	case engineNet, engineGnet:
	default:
		errs = append(errs, errorutil.Errorf("unknown engine %q", cfg.Engine))
	}
	if _, err := newLogger(cfg.Log); err != nil {
		errs = append(errs, err)
	}
	if _, err := cfg.Ingest.policy(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Ingest.MaxMessageSize < 0 {
		errs = append(errs, errorutil.Errorf("negative max message size %d", cfg.Ingest.MaxMessageSize))
	}
	return errtrace.Wrap(errorutil.JoinPrefix("invalid config", errs...))
}

func (c ingestConfig) policy() (sip.MalformedHeaderPolicy, error) {
	var p sip.MalformedHeaderPolicy
	return p, errtrace.Wrap(p.UnmarshalText([]byte(c.MalformedHeaders)))
}

func (c ingestConfig) connOptions() *sip.ConnOptions {
	p, _ := c.policy()
	return &sip.ConnOptions{
		MaxMessageSize:        c.MaxMessageSize,
		StarvationTimeout:     c.StarvationTimeout,
		MutexTimeout:          c.MutexTimeout,
		IdleTimeout:           c.IdleTimeout,
		MalformedHeaderPolicy: p,
	}
}

func newLogger(cfg logConfig) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, errtrace.Wrap(errorutil.NewInvalidArgumentError(err))
	}

	switch cfg.Format {
	case "console":
		return log.Def(os.Stderr, lvl), nil
	case "dev":
		return log.Dev(os.Stderr, lvl), nil
	case "json":
		return log.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
	case "none":
		return log.Noop, nil
	default:
		return nil, errtrace.Wrap(errorutil.NewInvalidArgumentError("unknown log format %q", cfg.Format))
	}
}

func addIngestFlags(fs *pflag.FlagSet) {
	fs.Int("max-message-size", 0, "maximum size of a single message in bytes, 0 means unbounded")
	fs.String("malformed-headers", "", "handling of malformed headers: keep-raw or drop-message")
}

func addServeFlags(fs *pflag.FlagSet) {
	fs.String("listen", "", "TCP address to listen on")
	fs.String("engine", "", "connection engine: net or gnet")
	fs.Int("workers", 0, "dispatch pool size, 0 means 4 per CPU")
	fs.String("metrics-listen", "", "address of the Prometheus endpoint, empty disables it")
	addIngestFlags(fs)
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return errtrace.Wrap(err)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return errtrace.Wrap(err)
			}
			return errtrace.Wrap(enc.Close())
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}
