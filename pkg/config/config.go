package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for all services
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver     string `yaml:"driver"` // postgres, sqlite
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	DBName     string `yaml:"dbname"`
	SSLMode    string `yaml:"sslmode"`
	SQLitePath string `yaml:"sqlite_path"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Backend   string    `yaml:"backend"` // file, database, s3, ftp
	LocalPath string    `yaml:"local_path"`
	S3        S3Config  `yaml:"s3"`
	FTP       FTPConfig `yaml:"ftp"`
}

// S3Config holds settings for the S3-compatible backend
type S3Config struct {
	Bucket    string        `yaml:"bucket"`
	Region    string        `yaml:"region"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
}

// FTPConfig holds settings for the FTP backend
type FTPConfig struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	Directory string        `yaml:"directory"`
	Passive   bool          `yaml:"passive"`
	Timeout   time.Duration `yaml:"timeout"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"`
	JWTExpiration  time.Duration `yaml:"jwt_expiration"`
	JWTIssuer      string        `yaml:"jwt_issuer"`
	ClientPassword string        `yaml:"client_password"`
	BCryptCost     int           `yaml:"bcrypt_cost"`
}

// ValidationConfig holds limits applied to incoming blobs
type ValidationConfig struct {
	MaxSize             int64    `yaml:"max_size"`
	AllowEmpty          bool     `yaml:"allow_empty"`
	AllowedExtensions   []string `yaml:"allowed_extensions"`
	AllowedContentTypes []string `yaml:"allowed_content_types"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       5432,
			User:       "simpledrive",
			Password:   "password",
			DBName:     "simpledrive",
			SSLMode:    "disable",
			SQLitePath: "./simpledrive.db",
		},
		Redis: RedisConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    6379,
		},
		Storage: StorageConfig{
			Backend:   "file",
			LocalPath: "./storage/blobs",
			S3: S3Config{
				Region:  "us-east-1",
				Timeout: 30 * time.Second,
			},
			FTP: FTPConfig{
				Port:      21,
				Directory: "/",
				Passive:   true,
				Timeout:   30 * time.Second,
			},
		},
		Auth: AuthConfig{
			JWTSecret:      "your-secret-key",
			JWTExpiration:  24 * time.Hour,
			JWTIssuer:      "simple_drive_api",
			ClientPassword: "password",
			BCryptCost:     12,
		},
		Validation: ValidationConfig{
			MaxSize: 50 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}

// Load reads a YAML file (if path is non-empty) on top of the defaults, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.SQLitePath = getEnv("DB_SQLITE_PATH", c.Database.SQLitePath)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Storage.Backend = getEnv("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.LocalPath = getEnv("STORAGE_PATH", c.Storage.LocalPath)
	c.Storage.S3.Bucket = getEnv("S3_BUCKET_NAME", c.Storage.S3.Bucket)
	c.Storage.S3.Region = getEnv("AWS_REGION", c.Storage.S3.Region)
	c.Storage.S3.AccessKey = getEnv("AWS_ACCESS_KEY_ID", c.Storage.S3.AccessKey)
	c.Storage.S3.SecretKey = getEnv("AWS_SECRET_ACCESS_KEY", c.Storage.S3.SecretKey)
	c.Storage.S3.Endpoint = getEnv("S3_ENDPOINT", c.Storage.S3.Endpoint)
	c.Storage.S3.Timeout = getEnvDuration("S3_TIMEOUT", c.Storage.S3.Timeout)
	c.Storage.FTP.Host = getEnv("FTP_HOST", c.Storage.FTP.Host)
	c.Storage.FTP.Port = getEnvInt("FTP_PORT", c.Storage.FTP.Port)
	c.Storage.FTP.Username = getEnv("FTP_USERNAME", c.Storage.FTP.Username)
	c.Storage.FTP.Password = getEnv("FTP_PASSWORD", c.Storage.FTP.Password)
	c.Storage.FTP.Directory = getEnv("FTP_DIRECTORY", c.Storage.FTP.Directory)
	c.Storage.FTP.Passive = getEnvBool("FTP_PASSIVE", c.Storage.FTP.Passive)
	c.Storage.FTP.Timeout = getEnvDuration("FTP_TIMEOUT", c.Storage.FTP.Timeout)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.JWTExpiration = getEnvDuration("JWT_EXPIRATION", c.Auth.JWTExpiration)
	c.Auth.JWTIssuer = getEnv("JWT_ISSUER", c.Auth.JWTIssuer)
	c.Auth.ClientPassword = getEnv("AUTH_CLIENT_PASSWORD", c.Auth.ClientPassword)
	c.Auth.BCryptCost = getEnvInt("BCRYPT_COST", c.Auth.BCryptCost)

	c.Validation.MaxSize = int64(getEnvInt("BLOB_MAX_SIZE", int(c.Validation.MaxSize)))
	c.Validation.AllowEmpty = getEnvBool("BLOB_ALLOW_EMPTY", c.Validation.AllowEmpty)
	c.Validation.AllowedExtensions = getEnvList("BLOB_ALLOWED_EXTENSIONS", c.Validation.AllowedExtensions)
	c.Validation.AllowedContentTypes = getEnvList("BLOB_ALLOWED_CONTENT_TYPES", c.Validation.AllowedContentTypes)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// DatabaseURL returns a PostgreSQL connection string
func (d *DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisAddr returns the Redis address
func (r *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Address returns the FTP server address in host:port form
func (f *FTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", f.Host, f.Port)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
