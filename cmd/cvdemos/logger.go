package main

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var logger = newLogger(logrus.InfoLevel, DefaultLogConfig())

var allLogLevels = ""

func init() {
	needSeparator := false
	for _, logLevel := range logrus.AllLevels {
		if needSeparator {
			allLogLevels += "|"
		} else {
			needSeparator = true
		}

		allLogLevels += strings.ToUpper(logLevel.String())
	}
}

const defaultLogConfigFile = "logging.yaml"

// LogConfig is the optional logging configuration file.
//
//	level: debug
//	timestampFormat: "15:04:05.000"
//	fullTimestamp: true
//	disableColors: false
//	output: stderr
type LogConfig struct {
	Level           string `yaml:"level"`
	TimestampFormat string `yaml:"timestampFormat"`
	FullTimestamp   bool   `yaml:"fullTimestamp"`
	DisableColors   bool   `yaml:"disableColors"`
	Output          string `yaml:"output"`
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:           "",
		TimestampFormat: "15:04:05.000",
		FullTimestamp:   true,
		DisableColors:   false,
		Output:          "stderr",
	}
}

// LoadLogConfig reads the configuration at path on top of the defaults.
// A missing file is not an error.
func LoadLogConfig(path string) (LogConfig, error) {
	cfg := DefaultLogConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "failed to read logging configuration '%s'", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultLogConfig(), errors.Wrapf(err, "failed to parse logging configuration '%s'", path)
	}

	if _, err := cfg.writer(); err != nil {
		return DefaultLogConfig(), errors.Wrapf(err, "invalid logging configuration '%s'", path)
	}

	return cfg, nil
}

func (cfg LogConfig) writer() (io.Writer, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return nil, errors.Errorf("unknown log output '%s'", cfg.Output)
	}
}

func newLogger(lvl logrus.Level, cfg LogConfig) *logrus.Logger {
	out, err := cfg.writer()
	if err != nil {
		out = os.Stderr
	}

	return &logrus.Logger{
		Out:   out,
		Level: lvl,
		Hooks: make(logrus.LevelHooks),

		Formatter: &logrus.TextFormatter{
			DisableColors: cfg.DisableColors,

			DisableLevelTruncation: true,
			PadLevelText:           true,
			DisableSorting:         false,

			FullTimestamp:   cfg.FullTimestamp,
			TimestampFormat: cfg.TimestampFormat,
		},
	}
}

func initLogger(lvl logrus.Level, cfg LogConfig) {
	logger = newLogger(lvl, cfg)
}
