// ABOUTME: Environment configuration for the streamplay CLI
// ABOUTME: Loads an optional .env file and STREAMPLAY_* variables as flag defaults
package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds settings that command line flags may override
type Config struct {
	AudioBufferMs  int
	DecodeBufferMs int
	BitrateKbps    int
	Volume         int
	LogFile        string
	HistoryFile    string
}

// Load reads .env files (if present) into the environment, then builds a
// Config from STREAMPLAY_* variables. Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		AudioBufferMs:  envInt("STREAMPLAY_AUDIO_BUFFER_MS", 1500),
		DecodeBufferMs: envInt("STREAMPLAY_DECODE_BUFFER_MS", 700),
		BitrateKbps:    envInt("STREAMPLAY_BITRATE_KBPS", 0),
		Volume:         envInt("STREAMPLAY_VOLUME", 100),
		LogFile:        envStr("STREAMPLAY_LOG_FILE", "streamplay.log"),
		HistoryFile:    envStr("STREAMPLAY_HISTORY_FILE", ""),
	}, nil
}

func envStr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Config: ignoring %s=%q: %v", key, v, err)
		return fallback
	}
	return n
}
