package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	// Backend is the HTTP song service. It is used when no postgres url is set.
	Backend struct {
		Hostname string `yaml:"hostname"`
		Port     int    `yaml:"port"`
		HTTPS    bool   `yaml:"https"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"backend"`
	Quiz Quiz `yaml:"quiz"`
}

type Quiz struct {
	DefaultRounds    int     `yaml:"default_rounds"`
	MinRounds        int     `yaml:"min_rounds"`
	MaxRounds        int     `yaml:"max_rounds"`
	DefaultTimeLimit string  `yaml:"default_time_limit"`
	MinTimeLimit     string  `yaml:"min_time_limit"`
	MaxTimeLimit     string  `yaml:"max_time_limit"`
	PointsPerRound   int     `yaml:"points_per_round"`
	MatchThreshold   int     `yaml:"match_threshold"`
	ScoreboardSize   int     `yaml:"scoreboard_size"`
	PollInterval     string  `yaml:"poll_interval"`
	AudioCacheTTL    string  `yaml:"audio_cache_ttl"`
	BotName          string  `yaml:"bot_name"`
	AnswerRate       float64 `yaml:"answer_rate"`
	AnswerBurst      int     `yaml:"answer_burst"`
}

// Load reads YAML config from path and fills in quiz defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	q := &c.Quiz
	if q.DefaultRounds == 0 {
		q.DefaultRounds = 5
	}
	if q.MinRounds == 0 {
		q.MinRounds = 1
	}
	if q.MaxRounds == 0 {
		q.MaxRounds = 100
	}
	if q.DefaultTimeLimit == "" {
		q.DefaultTimeLimit = "30s"
	}
	if q.MinTimeLimit == "" {
		q.MinTimeLimit = "5s"
	}
	if q.MaxTimeLimit == "" {
		q.MaxTimeLimit = "60s"
	}
	if q.PointsPerRound == 0 {
		q.PointsPerRound = 3
	}
	if q.MatchThreshold == 0 {
		q.MatchThreshold = 85
	}
	if q.ScoreboardSize == 0 {
		q.ScoreboardSize = 5
	}
	if q.BotName == "" {
		q.BotName = "HardBrain"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Backend.Hostname == "" {
		c.Backend.Hostname = "localhost"
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 8000
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
