package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	RedisURL          string
	NATSURL           string
	NATSSubject       string
	JWTSecret         string
	JWTTTL            time.Duration
	UploadDir         string
	UploadMaxMB       int
	UploadPublicPath  string
	CORSOrigins       string
	LoginRateLimit    int
	AdminEmail        string
	AdminPassword     string
	AdminName         string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// UploadMaxBytes converts the configured upload limit to bytes.
func (c Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxMB) * 1024 * 1024
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CHEMCLASS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "ChemClass API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("nats.subject", "chemclass.events")
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_mb", 50)
	v.SetDefault("upload.public_path", "/uploads")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("admin.name", "Administrator")

	ttl, err := time.ParseDuration(v.GetString("jwt.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid jwt ttl: %w", err)
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("jwt ttl must be positive")
	}

	lifetime, err := time.ParseDuration(v.GetString("database.conn_max_lifetime"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid database connection lifetime: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       strings.TrimSpace(v.GetString("database.url")),
		DBMaxOpenConns:    v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:    v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime: lifetime,
		RedisURL:          strings.TrimSpace(v.GetString("redis.url")),
		NATSURL:           strings.TrimSpace(v.GetString("nats.url")),
		NATSSubject:       v.GetString("nats.subject"),
		JWTSecret:         v.GetString("jwt.secret"),
		JWTTTL:            ttl,
		UploadDir:         v.GetString("upload.dir"),
		UploadMaxMB:       v.GetInt("upload.max_mb"),
		UploadPublicPath:  "/" + strings.Trim(v.GetString("upload.public_path"), "/"),
		CORSOrigins:       v.GetString("cors.origins"),
		LoginRateLimit:    v.GetInt("auth.login_rate_limit"),
		AdminEmail:        strings.TrimSpace(v.GetString("admin.email")),
		AdminPassword:     v.GetString("admin.password"),
		AdminName:         v.GetString("admin.name"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 50
	}
	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	return cfg, nil
}
