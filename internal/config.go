package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"http_server"`
	Database DatabaseConfig `mapstructure:"database"`
	Security SecurityConfig `mapstructure:"security"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Todo     TodoConfig     `mapstructure:"todo"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url" validate:"omitempty,url"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Source          string        `mapstructure:"source" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type SecurityConfig struct {
	SecretKey            string        `mapstructure:"secret_key" validate:"required,min=32"`
	AdminEmail           string        `mapstructure:"admin_email" validate:"omitempty,email"`
	ConfirmationTokenTTL time.Duration `mapstructure:"confirmation_token_ttl"`
	AuthTokenTTL         time.Duration `mapstructure:"auth_token_ttl" validate:"required"`
	TokenLeeway          time.Duration `mapstructure:"token_leeway"`
	PasswordHasher       string        `mapstructure:"password_hasher" validate:"oneof=argon2id bcrypt"`
	Argon2               Argon2Config  `mapstructure:"argon2"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"omitempty,min=10,max=15"`
}

type Argon2Config struct {
	Memory      uint32 `mapstructure:"memory_kb"`
	Time        uint32 `mapstructure:"time"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db" validate:"min=0"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	Prefix     string        `mapstructure:"prefix"`
}

type TodoConfig struct {
	PerPage int `mapstructure:"per_page" validate:"min=1,max=100"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// ApplyDefaults fills zero values left by a sparse config file.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Security.ConfirmationTokenTTL == 0 {
		c.Security.ConfirmationTokenTTL = time.Hour
	}
	if c.Security.AuthTokenTTL == 0 {
		c.Security.AuthTokenTTL = time.Hour
	}
	if c.Security.PasswordHasher == "" {
		c.Security.PasswordHasher = "argon2id"
	}
	if c.Security.Argon2 == (Argon2Config{}) {
		c.Security.Argon2 = Argon2Config{Memory: 64 * 1024, Time: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
	}
	if c.Redis.SessionTTL == 0 {
		c.Redis.SessionTTL = 14 * 24 * time.Hour
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "todolist:session"
	}
	if c.Todo.PerPage == 0 {
		c.Todo.PerPage = 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// LoadConfigFromEnv builds the configuration from TODO_* variables, used by
// container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("TODO_HTTP_SERVER_PORT", 8080),
			BaseURL:           getEnv("TODO_HTTP_SERVER_BASE_URL", ""),
			ReadHeaderTimeout: getEnvAsDuration("TODO_HTTP_SERVER_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("TODO_HTTP_SERVER_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("TODO_HTTP_SERVER_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("TODO_HTTP_SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("TODO_DATABASE_DRIVER", "postgres"),
			Source:          getEnv("TODO_DATABASE_SOURCE", ""),
			MaxOpenConns:    getEnvAsInt("TODO_DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("TODO_DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("TODO_DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     getEnv("TODO_DATABASE_AUTO_MIGRATE", "false") == "true",
		},
		Security: SecurityConfig{
			SecretKey:            getEnv("TODO_SECURITY_SECRET_KEY", ""),
			AdminEmail:           getEnv("TODO_SECURITY_ADMIN_EMAIL", ""),
			ConfirmationTokenTTL: getEnvAsDuration("TODO_SECURITY_CONFIRMATION_TOKEN_TTL", time.Hour),
			AuthTokenTTL:         getEnvAsDuration("TODO_SECURITY_AUTH_TOKEN_TTL", time.Hour),
			TokenLeeway:          getEnvAsDuration("TODO_SECURITY_TOKEN_LEEWAY", 0),
			PasswordHasher:       getEnv("TODO_SECURITY_PASSWORD_HASHER", "argon2id"),
			BCryptCost:           getEnvAsInt("TODO_SECURITY_BCRYPT_COST", 12),
		},
		Redis: RedisConfig{
			Addr:       getEnv("TODO_REDIS_ADDR", ""),
			Password:   getEnv("TODO_REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("TODO_REDIS_DB", 0),
			SessionTTL: getEnvAsDuration("TODO_REDIS_SESSION_TTL", 14*24*time.Hour),
			Prefix:     getEnv("TODO_REDIS_PREFIX", "todolist:session"),
		},
		Todo: TodoConfig{
			PerPage: getEnvAsInt("TODO_TODO_PER_PAGE", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("TODO_LOGGING_LEVEL", "info"),
			Format: getEnv("TODO_LOGGING_FORMAT", "json"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

var structValidator = validator.New()

func (c *Config) Validate() error {
	var errs []string

	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.BaseURL != "" {
		if _, err := url.Parse(c.BaseURL); err != nil {
			return fmt.Errorf("invalid base url %s: %w", c.BaseURL, err)
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if c.AuthTokenTTL < 0 || c.ConfirmationTokenTTL < 0 {
		return errors.New("token ttl cannot be negative")
	}
	if c.TokenLeeway < 0 || c.TokenLeeway > 2*time.Minute {
		return errors.New("token_leeway must be between 0 and 2m")
	}
	return nil
}
