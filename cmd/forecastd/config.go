package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration, loaded from YAML with environment
// variables filling anything the file leaves blank.
type Config struct {
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Supabase struct {
		URL    string `yaml:"url"`
		APIKey string `yaml:"api_key"`
		Table  string `yaml:"table"`
		Bucket string `yaml:"bucket"`
	} `yaml:"supabase"`
	Auth struct {
		RequireSession bool `yaml:"require_session"`
	} `yaml:"auth"`
	Storage struct {
		Driver string `yaml:"driver"`
		MinIO  struct {
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
			Bucket    string `yaml:"bucket"`
			UseSSL    bool   `yaml:"use_ssl"`
		} `yaml:"minio"`
	} `yaml:"storage"`
	Charts struct {
		Theme      string        `yaml:"theme"`
		AssetsHost string        `yaml:"assets_host"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
	} `yaml:"charts"`
	Realtime struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"realtime"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads the YAML file when given and applies env fallbacks and
// defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	cfg.Server.Addr = ":8080"
	cfg.Server.BasePath = "/forecast"
	cfg.Storage.Driver = "supabase"
	cfg.Auth.RequireSession = true
	cfg.Charts.CacheTTL = 5 * time.Minute
	cfg.Realtime.Enabled = true
	cfg.Logging.Level = "info"

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg.Supabase.URL, "SUPABASE_URL")
	applyEnv(&cfg.Supabase.APIKey, "SUPABASE_API_KEY")
	applyEnv(&cfg.Supabase.Table, "SUPABASE_TABLE")
	applyEnv(&cfg.Supabase.Bucket, "SUPABASE_BUCKET")
	applyEnv(&cfg.Storage.MinIO.Endpoint, "MINIO_ENDPOINT")
	applyEnv(&cfg.Storage.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	applyEnv(&cfg.Storage.MinIO.SecretKey, "MINIO_SECRET_KEY")
	applyEnv(&cfg.Storage.MinIO.Bucket, "MINIO_BUCKET")

	if cfg.Supabase.URL == "" {
		return Config{}, fmt.Errorf("config: supabase url is required (file or SUPABASE_URL)")
	}
	if cfg.Supabase.APIKey == "" {
		return Config{}, fmt.Errorf("config: supabase api key is required (file or SUPABASE_API_KEY)")
	}
	return cfg, nil
}

func applyEnv(target *string, key string) {
	if *target == "" {
		*target = os.Getenv(key)
	}
}
