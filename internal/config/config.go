package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration. Values come from the yaml file,
// with environment variables taking precedence.
type Config struct {
	Server struct {
		Port        int `yaml:"port"`
		MetricsPort int `yaml:"metrics_port"`
	} `yaml:"server"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Model struct {
		CheckpointPath string `yaml:"checkpoint_path"`
	} `yaml:"model"`
	Storage struct {
		ImagesDir string `yaml:"images_dir"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"storage"`
	Auth struct {
		Enabled    bool   `yaml:"enabled"`
		Secret     string `yaml:"secret"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"auth"`
	OpenAIKey string `yaml:"openai_key"`
	LogLevel  string `yaml:"log_level"`
}

// Load reads the configuration. A missing file is not an error; defaults
// and environment variables still apply.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// run on defaults
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8000
	cfg.Server.MetricsPort = 9090
	cfg.Database.Path = "partscope.db"
	cfg.Model.CheckpointPath = "model.json"
	cfg.Storage.ImagesDir = "inventory/images"
	cfg.Storage.StaticDir = ""
	cfg.Auth.TTLMinutes = 60
	cfg.LogLevel = "info"
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MODEL_CHECKPOINT"); v != "" {
		cfg.Model.CheckpointPath = v
	}
	if v := os.Getenv("IMAGES_DIR"); v != "" {
		cfg.Storage.ImagesDir = v
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.Storage.StaticDir = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.Enabled = true
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// NewLogger builds the application logger.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}
