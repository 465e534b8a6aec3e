package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "CAMPUS"
	defaultHTTPAddress   = "0.0.0.0:4000"
	defaultDataPath      = "data.json"
	defaultLogLevel      = "info"
	defaultTokenTTLHours = 168
	defaultSigningSecret = "dev_jwt_secret_change_me"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress   string
	MongoURI      string
	DataPath      string
	SigningSecret string
	TokenTTL      time.Duration
	RedisAddr     string
	LogLevel      string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("mongodb.uri", "")
	configViper.SetDefault("data.path", defaultDataPath)
	configViper.SetDefault("auth.signing_secret", defaultSigningSecret)
	configViper.SetDefault("token.ttl_hours", defaultTokenTTLHours)
	configViper.SetDefault("redis.addr", "")
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   configViper.GetString("http.address"),
		MongoURI:      configViper.GetString("mongodb.uri"),
		DataPath:      configViper.GetString("data.path"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		TokenTTL:      time.Duration(configViper.GetInt("token.ttl_hours")) * time.Hour,
		RedisAddr:     configViper.GetString("redis.addr"),
		LogLevel:      configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("data.path is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_hours must be positive")
	}
	return nil
}
