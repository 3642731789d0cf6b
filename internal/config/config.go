// Package config loads the unique window application configuration.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/RuiFG/streaming/streaming-unique/element"
	"github.com/RuiFG/streaming/streaming-unique/log"
	"github.com/RuiFG/streaming/streaming-unique/window"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	EnvPrefix   = "UNIQUE_WINDOW"
	DefaultName = "unique-window"
)

type Config struct {
	Name    string
	Window  Window  `mapstructure:"-"`
	Log     Log     `mapstructure:"log"`
	Metrics Metrics `mapstructure:"metrics"`
	Source  Source  `mapstructure:"source"`
}

// Window carries the window options: unique.key, window.time and start.time.
type Window struct {
	Key       string
	Time      time.Duration
	Start     time.Duration
	EmitEmpty bool
	Policy    window.Policy
	Schema    element.Schema
}

type Log struct {
	Level      string `mapstructure:"level"`
	Encoding   string `mapstructure:"encoding"`
	LevelStyle string `mapstructure:"level_style"`
	TimeLayout string `mapstructure:"time_layout"`
	Caller     bool   `mapstructure:"caller"`
	Stacktrace bool   `mapstructure:"stacktrace"`
}

type Metrics struct {
	Listen   string        `mapstructure:"listen"`
	Prefix   string        `mapstructure:"prefix"`
	Interval time.Duration `mapstructure:"interval"`
}

type Source struct {
	Type  string `mapstructure:"type"`
	File  File   `mapstructure:"file"`
	Mock  Mock   `mapstructure:"mock"`
	Kafka Kafka  `mapstructure:"kafka"`
}

// File reads path once, or keeps following it when Follow is set.
type File struct {
	Path   string `mapstructure:"path"`
	Follow bool   `mapstructure:"follow"`
	Poll   bool   `mapstructure:"poll"`
}

type Mock struct {
	Interval time.Duration `mapstructure:"interval"`
	Number   int           `mapstructure:"number"`
	Keys     []string      `mapstructure:"keys"`
	Seed     int64         `mapstructure:"seed"`
}

type Kafka struct {
	Addresses []string `mapstructure:"addresses"`
	Topics    []string `mapstructure:"topics"`
	Group     string   `mapstructure:"group"`
	Version   string   `mapstructure:"version"`
}

// New returns a viper instance with the defaults and env overrides set,
// UNIQUE_WINDOW_WINDOW_WINDOW_TIME overrides window.window.time.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("name", DefaultName)
	v.SetDefault("window.start.time", 0)
	v.SetDefault("window.emit.empty", true)
	v.SetDefault("window.policy", "first")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("metrics.prefix", "unique_window")
	v.SetDefault("metrics.interval", time.Second)
	v.SetDefault("source.type", "mock")
	v.SetDefault("source.file.path", "-")
	v.SetDefault("source.mock.interval", 100*time.Millisecond)
	v.SetDefault("source.mock.number", 10)
	v.SetDefault("source.mock.keys", []string{"IBM", "WSO2", "ORCL"})
	return v
}

// Load reads the yaml file at path, or unique-window.yml in . and ./config/
// when path is empty.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultName)
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config/")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WithMessage(err, "can't read config")
	}
	return Parse(v)
}

func Parse(v *viper.Viper) (*Config, error) {
	c := &Config{Name: v.GetString("name")}
	if err := v.Unmarshal(c); err != nil {
		return nil, invalid("can't unmarshal config: %v", err)
	}
	var err error
	if c.Window, err = parseWindow(v); err != nil {
		return nil, err
	}
	if err = c.Source.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseWindow(v *viper.Viper) (w Window, err error) {
	if w.Key = strings.TrimSpace(v.GetString("window.unique.key")); w.Key == "" {
		return w, invalid("unique.key is required")
	}
	if w.Time, err = ParsePeriod(v.Get("window.window.time")); err != nil {
		return w, err
	}
	startMillis, err := cast.ToInt64E(v.Get("window.start.time"))
	if err != nil {
		return w, invalid("start.time %v is not a number of milliseconds", v.Get("window.start.time"))
	}
	if startMillis < 0 {
		return w, invalid("start.time can't be negative, got %d", startMillis)
	}
	w.Start = time.Duration(startMillis) * time.Millisecond
	if w.EmitEmpty, err = cast.ToBoolE(v.Get("window.emit.empty")); err != nil {
		return w, invalid("emit.empty: %v", err)
	}
	if w.Policy, err = window.ParsePolicy(v.GetString("window.policy")); err != nil {
		return w, err
	}
	if declared := v.GetStringMapString("window.schema"); len(declared) > 0 {
		w.Schema = make(element.Schema, len(declared))
		for name, typeName := range declared {
			if w.Schema[name], err = element.ParseAttributeType(strings.ToLower(typeName)); err != nil {
				return w, invalid("schema attribute %s: %v", name, err)
			}
		}
	}
	return w, nil
}

var periodUnits = map[string]time.Duration{
	"ms": time.Millisecond, "millisec": time.Millisecond, "millisecond": time.Millisecond, "milliseconds": time.Millisecond,
	"s": time.Second, "sec": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"day": 24 * time.Hour, "days": 24 * time.Hour,
	"week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// ParsePeriod reads window.time. Numbers are milliseconds, strings are either
// Go durations ("500ms") or a count and a unit ("1 sec", "5 min").
func ParsePeriod(value any) (time.Duration, error) {
	if value == nil {
		return 0, invalid("window.time is required")
	}
	var period time.Duration
	switch v := value.(type) {
	case time.Duration:
		period = v
	case string:
		text := strings.TrimSpace(v)
		if millis, err := strconv.ParseInt(text, 10, 64); err == nil {
			period = time.Duration(millis) * time.Millisecond
		} else if d, err := time.ParseDuration(text); err == nil {
			period = d
		} else {
			fields := strings.Fields(strings.ToLower(text))
			if len(fields) != 2 {
				return 0, invalid("malformed window.time %q", v)
			}
			count, err := strconv.ParseInt(fields[0], 10, 64)
			unit, ok := periodUnits[fields[1]]
			if err != nil || !ok {
				return 0, invalid("malformed window.time %q", v)
			}
			period = time.Duration(count) * unit
		}
	default:
		millis, err := cast.ToInt64E(value)
		if err != nil {
			return 0, invalid("malformed window.time %v", value)
		}
		period = time.Duration(millis) * time.Millisecond
	}
	if period <= 0 {
		return 0, invalid("window.time must be positive, got %s", period)
	}
	return period, nil
}

func (s Source) validate() error {
	switch s.Type {
	case "mock":
		if len(s.Mock.Keys) == 0 {
			return invalid("source.mock.keys can't be empty")
		}
	case "file":
		if s.File.Follow && (s.File.Path == "" || s.File.Path == "-") {
			return invalid("source.file.follow needs a file path, stdin can't be followed")
		}
	case "kafka":
		if len(s.Kafka.Addresses) == 0 || len(s.Kafka.Topics) == 0 || s.Kafka.Group == "" {
			return invalid("source.kafka needs addresses, topics and group")
		}
	default:
		return invalid("unknown source type %q", s.Type)
	}
	return nil
}

// Options builds the logger options from the log section.
func (l Log) Options() (*log.Options, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return nil, invalid("log.level: %v", err)
	}
	options := log.DefaultOptions().WithLevel(level).WithStacktrace(l.Stacktrace)
	if l.TimeLayout != "" {
		options.WithTimeLayout(l.TimeLayout)
	}
	if l.Caller {
		options.WithCallerEncoder(log.ShortCallerEncoder)
	}
	switch strings.ToLower(l.LevelStyle) {
	case "", "bracket":
	case "capital":
		options.WithLevelEncoder(log.CapitalLevelEncoder)
	default:
		return nil, invalid("unknown log.level_style %q", l.LevelStyle)
	}
	switch strings.ToLower(l.Encoding) {
	case "", "console":
		options.WithOutputEncoder(log.ConsoleOutputEncoder)
	case "json":
		options.WithOutputEncoder(log.JsonOutputEncoder)
	default:
		return nil, invalid("unknown log.encoding %q", l.Encoding)
	}
	return options, nil
}

func invalid(format string, args ...any) error {
	return errors.WithMessagef(window.ErrInvalidConfiguration, format, args...)
}
