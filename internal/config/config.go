package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings for the portal service.
type Config struct {
	Service string       `yaml:"service"`
	Env     string       `yaml:"env"`
	Server  ServerConfig `yaml:"server"`
	DB      DBConfig     `yaml:"db"`
	JWT     JWTConfig    `yaml:"jwt"`
	Log     LogConfig    `yaml:"log"`
	Seed    SeedConfig   `yaml:"seed"`
}

type ServerConfig struct {
	Port               string        `yaml:"port"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	LoginRatePerMinute int           `yaml:"login_rate_per_minute"`
	TrustProxy         bool          `yaml:"trust_proxy"`
}

type DBConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	BackupDir    string `yaml:"backup_dir"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SeedConfig describes the bootstrap company and admin account created on an empty database.
type SeedConfig struct {
	Company  string `yaml:"company"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: "jewelpo",
		Env:     "development",
		Server: ServerConfig{
			Port:               "9000",
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			LoginRatePerMinute: 10,
		},
		DB:  DBConfig{Path: "jewelpo.db", MaxOpenConns: 1, BackupDir: "backups"},
		JWT: JWTConfig{TTL: 12 * time.Hour},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration in three layers: defaults, an optional YAML
// file named by CONFIG_FILE, then environment variables. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Service = getEnv("SERVICE_NAME", c.Service)
	c.Env = getEnv("APP_ENV", c.Env)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvAsDuration("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsDuration("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.LoginRatePerMinute = getEnvAsInt("LOGIN_RATE_PER_MINUTE", c.Server.LoginRatePerMinute)
	c.Server.TrustProxy = getEnvAsBool("TRUST_PROXY", c.Server.TrustProxy)
	c.DB.Path = getEnv("DB_PATH", c.DB.Path)
	c.DB.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", c.DB.MaxOpenConns)
	c.DB.BackupDir = getEnv("DB_BACKUP_DIR", c.DB.BackupDir)
	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.TTL = getEnvAsDuration("JWT_TTL", c.JWT.TTL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Seed.Company = getEnv("SEED_COMPANY", c.Seed.Company)
	c.Seed.Username = getEnv("SEED_ADMIN_USERNAME", c.Seed.Username)
	c.Seed.Password = getEnv("SEED_ADMIN_PASSWORD", c.Seed.Password)
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.DB.MaxOpenConns < 1 {
		c.DB.MaxOpenConns = 1
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
