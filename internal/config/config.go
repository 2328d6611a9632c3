package config

import (
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const configFileName = "tcpsock"

// Config holds the runtime options for the tool server and console.
type Config struct {
	ReadChunkSize int           `yaml:"readChunkSize,omitempty"`
	DialTimeout   time.Duration `yaml:"dialTimeout,omitempty"`
	SendWait      time.Duration `yaml:"sendWait,omitempty"`
	LogPath       string        `yaml:"logPath,omitempty"`
	HistoryFile   string        `yaml:"historyFile,omitempty"`
	Debug         bool          `yaml:"debug,omitempty"`
}

// GetConfig reads the configuration file and returns a Config struct.
// A missing or empty file yields the defaults.
func GetConfig() (*Config, error) {
	configFilePath := filepath.Join(xdg.ConfigHome, configFileName+".yaml")
	defaults := DefaultConfig()

	b, err := os.ReadFile(configFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &defaults, nil
		}

		return nil, err
	}

	if len(b) == 0 {
		return &defaults, nil
	}

	var cfg Config

	err = yaml.Unmarshal(b, &cfg)
	if err != nil {
		return nil, err
	}

	return &Config{
		ReadChunkSize: zeroOr(cfg.ReadChunkSize, defaults.ReadChunkSize),
		DialTimeout:   zeroOr(cfg.DialTimeout, defaults.DialTimeout),
		SendWait:      zeroOr(cfg.SendWait, defaults.SendWait),
		LogPath:       zeroOr(cfg.LogPath, defaults.LogPath),
		HistoryFile:   zeroOr(cfg.HistoryFile, defaults.HistoryFile),
		Debug:         cfg.Debug,
	}, nil
}

// zeroOr returns def if v is the zero value for its type.
func zeroOr[T any](v, def T) T {
	if reflect.ValueOf(v).IsZero() {
		return def
	}

	return v
}
