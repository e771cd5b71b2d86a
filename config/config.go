/*
Package config implements the type to pass the arguments to the coordinator
and implements a function to load the parameters from a configuration file.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultName       = "auditchain"
	defaultListenAddr = ":8123"
	defaultMaxPool    = 64
	defaultDifficulty = 3
	defaultTimeout    = 30
	maxDifficulty     = 64
)

// Config defines a type to describe the configuration.
type Config struct {
	Name       string
	ListenAddr string
	// MaxPool bounds the number of concurrent client sessions.
	MaxPool    int
	LogLevel   int
	Difficulty int
	Timeout    time.Duration
	// SnapshotPath is empty when the store is kept in memory only.
	SnapshotPath string
	// Participants maps a name to its password. An empty map accepts any name.
	Participants map[string]string
}

// New creates a new variable of type Config for test
func New(name, listenAddr string, maxPool, logLevel, difficulty int, timeout time.Duration,
	snapshotPath string, participants map[string]string) *Config {
	return &Config{
		Name:         name,
		ListenAddr:   listenAddr,
		MaxPool:      maxPool,
		LogLevel:     logLevel,
		Difficulty:   difficulty,
		Timeout:      timeout,
		SnapshotPath: snapshotPath,
		Participants: participants,
	}
}

// LoadConfig loads configuration files by package viper.
func LoadConfig(configPrefix, configName string) (*Config, error) {
	viperConfig := viper.New()

	// for environment variables
	viperConfig.SetEnvPrefix(configPrefix)
	viperConfig.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viperConfig.SetEnvKeyReplacer(replacer)
	viperConfig.SetConfigName(configName)
	viperConfig.AddConfigPath("./")

	viperConfig.SetDefault("name", defaultName)
	viperConfig.SetDefault("listen_addr", defaultListenAddr)
	viperConfig.SetDefault("max_pool", defaultMaxPool)
	viperConfig.SetDefault("log_level", 3) // hclog.Info
	viperConfig.SetDefault("difficulty", defaultDifficulty)
	viperConfig.SetDefault("timeout", defaultTimeout)

	err := viperConfig.ReadInConfig()
	if err != nil {
		return nil, err
	}

	conf := &Config{
		Name:         viperConfig.GetString("name"),
		ListenAddr:   viperConfig.GetString("listen_addr"),
		MaxPool:      viperConfig.GetInt("max_pool"),
		LogLevel:     viperConfig.GetInt("log_level"),
		Difficulty:   viperConfig.GetInt("difficulty"),
		Timeout:      time.Duration(viperConfig.GetInt("timeout")) * time.Second,
		SnapshotPath: viperConfig.GetString("snapshot_path"),
		Participants: viperConfig.GetStringMapString("participants"),
	}
	if conf.Difficulty < 0 || conf.Difficulty > maxDifficulty {
		return nil, fmt.Errorf("difficulty %d is out of range [0, %d]", conf.Difficulty, maxDifficulty)
	}
	if conf.MaxPool < 0 {
		return nil, fmt.Errorf("max_pool %d must not be negative", conf.MaxPool)
	}
	return conf, nil
}
