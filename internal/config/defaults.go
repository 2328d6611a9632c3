package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	readChunkSize = 4096
	dialTimeout   = 10 * time.Second
	sendWait      = 100 * time.Millisecond
)

var (
	logPath     = filepath.Join(xdg.StateHome, configFileName, configFileName+".log")
	historyFile = filepath.Join(xdg.StateHome, configFileName, "history")
)

func DefaultConfig() Config {
	return Config{
		ReadChunkSize: readChunkSize,
		DialTimeout:   dialTimeout,
		SendWait:      sendWait,
		LogPath:       logPath,
		HistoryFile:   historyFile,
	}
}
