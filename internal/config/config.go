package config

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"HOST"`
	Port         string        `mapstructure:"PORT"`
	BaseURL      string        `mapstructure:"BASE_URL"` // external URL prefix used for stored image links
	StaticPath   string        `mapstructure:"STATIC_PATH"`
	ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
	CORS         CORSConfig    `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string         `mapstructure:"APP_NAME"`
	AppVersion string         `mapstructure:"APP_VERSION"`
	LogLevel   string         `mapstructure:"LOG_LEVEL"`
	Server     ServerConfig   `mapstructure:"SERVER"`
	Kafka      KafkaConfig    `mapstructure:"KAFKA"`
	Database   DatabaseConfig `mapstructure:"DATABASE"`
	Storage    StorageConfig  `mapstructure:"STORAGE"`
	Auth       AuthConfig     `mapstructure:"AUTH"`
	Redis      RedisConfig    `mapstructure:"REDIS"`
	Post       PostConfig     `mapstructure:"POST"`
}

// KafkaConfig holds configuration for Kafka.
type KafkaConfig struct {
	Brokers   []string `mapstructure:"BROKERS"`
	ClientID  string   `mapstructure:"CLIENT_ID"`
	PostTopic string   `mapstructure:"POST_TOPIC"` // one message per destination of a post
	Protocol  string   `mapstructure:"PROTOCOL"`
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type     string `mapstructure:"TYPE"`
	Host     string `mapstructure:"HOST"`
	Port     int    `mapstructure:"PORT"`
	User     string `mapstructure:"USER"`
	Password string `mapstructure:"PASSWORD"`
	DBName   string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"SSL_MODE"`
}

// StorageConfig holds configuration for attachment storage.
type StorageConfig struct {
	Type          string `mapstructure:"TYPE"` // only "local" for now
	LocalPath     string `mapstructure:"LOCAL_PATH"`
	MaxFileSizeMB int64  `mapstructure:"MAX_FILE_SIZE_MB"`
	MaxFiles      int    `mapstructure:"MAX_FILES"`
}

// AuthConfig holds the login password and session token settings.
type AuthConfig struct {
	PasswordHash string        `mapstructure:"PASSWORD_HASH"` // bcrypt hash, see cmd/webserver/admin
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
	CookieName   string        `mapstructure:"COOKIE_NAME"`
}

// PostConfig holds the composing and scheduling settings.
type PostConfig struct {
	TimeZone          string        `mapstructure:"TIME_ZONE"`
	CharLimit         int           `mapstructure:"CHAR_LIMIT"`
	Destinations      []string      `mapstructure:"DESTINATIONS"` // checkbox fields offered by the form
	SchedulerInterval time.Duration `mapstructure:"SCHEDULER_INTERVAL"`
}

// Location resolves the configured time zone, falling back to UTC.
func (p PostConfig) Location() *time.Location {
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "crosspost")
	v.SetDefault("APP_VERSION", "0.0.1")
	v.SetDefault("LOG_LEVEL", "info")

	// Server Defaults
	v.SetDefault("SERVER.HOST", "0.0.0.0")
	v.SetDefault("SERVER.PORT", "5000")
	v.SetDefault("SERVER.BASE_URL", "http://localhost:5000")
	v.SetDefault("SERVER.STATIC_PATH", "./web/static")
	v.SetDefault("SERVER.READ_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:5000"})
	v.SetDefault("SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Content-Type", "X-CSRF-Token"})
	v.SetDefault("SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("SERVER.CORS.MAX_AGE", 300)

	// Kafka Defaults
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "crosspost")
	v.SetDefault("KAFKA.POST_TOPIC", "crosspost-posts")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")

	// Database Defaults
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "crosspost")
	v.SetDefault("DATABASE.SSL_MODE", "disable")

	// Storage Defaults
	v.SetDefault("STORAGE.TYPE", "local")
	v.SetDefault("STORAGE.LOCAL_PATH", "./uploads")
	v.SetDefault("STORAGE.MAX_FILE_SIZE_MB", 50)
	v.SetDefault("STORAGE.MAX_FILES", 4)

	// Auth Defaults
	v.SetDefault("AUTH.PASSWORD_HASH", "")
	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_EXPIRY", 12*time.Hour)
	v.SetDefault("AUTH.COOKIE_NAME", "crosspost_session")

	// Redis Defaults
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	// Post Defaults
	v.SetDefault("POST.TIME_ZONE", "Europe/Berlin")
	v.SetDefault("POST.CHAR_LIMIT", 240)
	v.SetDefault("POST.DESTINATIONS", []string{"chkTW", "chkIG", "chkPH", "chkBS", "chkMS", "chkFB"})
	v.SetDefault("POST.SCHEDULER_INTERVAL", 30*time.Second)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	// Nested keys use underscores in the environment: SERVER_PORT, POST_TIME_ZONE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}
