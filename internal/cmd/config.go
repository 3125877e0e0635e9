package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"trivia-party/internal/audio"
	"trivia-party/internal/models"
)

// Config is the optional YAML file layered on top of environment
// variables. Games created without explicit settings inherit the
// game.defaults timers.
type Config struct {
	Game struct {
		Defaults struct {
			RoundPlayTimerSec  int `yaml:"round_play_timer_sec"`
			GameStartTimerSec  int `yaml:"game_start_timer_sec"`
			RoundStartTimerSec int `yaml:"round_start_timer_sec"`
			RoundEndTimerSec   int `yaml:"round_end_timer_sec"`
			GameEndTimerSec    int `yaml:"game_end_timer_sec"`
		} `yaml:"defaults"`
	} `yaml:"game"`
	Audio struct {
		SweepIntervalSec int `yaml:"sweep_interval_sec"`
		StuckAfterSec    int `yaml:"stuck_after_sec"`
		MaxAttempts      int `yaml:"max_attempts"`
	} `yaml:"audio"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	var config Config
	config.Game.Defaults.RoundPlayTimerSec = 30

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

func (c *Config) defaultGameSettings() models.GameSettings {
	return models.GameSettings{
		RoundPlayTimerSec:  c.Game.Defaults.RoundPlayTimerSec,
		GameStartTimerSec:  c.Game.Defaults.GameStartTimerSec,
		RoundStartTimerSec: c.Game.Defaults.RoundStartTimerSec,
		RoundEndTimerSec:   c.Game.Defaults.RoundEndTimerSec,
		GameEndTimerSec:    c.Game.Defaults.GameEndTimerSec,
	}
}

func (c *Config) sweeperConfig() audio.SweeperConfig {
	cfg := audio.DefaultSweeperConfig()
	if c.Audio.SweepIntervalSec > 0 {
		cfg.Interval = time.Duration(c.Audio.SweepIntervalSec) * time.Second
	}
	if c.Audio.StuckAfterSec > 0 {
		cfg.StuckAfter = time.Duration(c.Audio.StuckAfterSec) * time.Second
	}
	if c.Audio.MaxAttempts > 0 {
		cfg.MaxAttempts = c.Audio.MaxAttempts
	}
	return cfg
}
