package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort  int `yaml:"apiPort"`
	Database struct {
		Type       string `yaml:"type"`
		Path       string `yaml:"path"`
		WALMode    bool   `yaml:"walMode"`
		MaxRetries int    `yaml:"maxRetries"`
		RetryDelay int    `yaml:"retryDelay"`
		Host       string `yaml:"host"`
		Port       int    `yaml:"port"`
		User       string `yaml:"user"`
		Password   string `yaml:"password"`
		Name       string `yaml:"name"`
		SSLMode    string `yaml:"sslMode"`
	} `yaml:"database"`
	Auth struct {
		SecretKey          string `yaml:"secretKey"`
		TokenTTLMinutes    int    `yaml:"tokenTTLMinutes"`
		SessionTTLMinutes  int    `yaml:"sessionTTLMinutes"`
		MaxSessionsPerUser int    `yaml:"maxSessionsPerUser"`
		BcryptCost         int    `yaml:"bcryptCost"`
		SecureCookies      bool   `yaml:"secureCookies"`
	} `yaml:"auth"`
}

// TokenTTL is the lifetime of issued bearer tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLMinutes) * time.Minute
}

// SessionTTL is the lifetime stamped on new server-side sessions.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLMinutes) * time.Minute
}

// LoadConfig loads the configuration from file and environment variables.
// The result is read-only after startup; components receive the values they
// need as explicit dependencies rather than reading config ambiently.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Println("APIPort not specified, using default 8081")
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
		log.Println("Database type not specified, using default sqlite")
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/data/accountd.db"
		log.Println("Database path not specified, using default /data/accountd.db")
	}
	if !v.IsSet("database.walMode") {
		cfg.Database.WALMode = true
		log.Println("WAL mode not specified, enabling by default")
	}
	if cfg.Database.MaxRetries == 0 {
		cfg.Database.MaxRetries = 5
	}
	if cfg.Database.RetryDelay == 0 {
		cfg.Database.RetryDelay = 5
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Auth.SecretKey == "" {
		return nil, errors.New("auth.secretKey must be set")
	}
	if cfg.Auth.TokenTTLMinutes == 0 {
		cfg.Auth.TokenTTLMinutes = 30
		log.Println("Token TTL not specified, using default 30 minutes")
	}
	if cfg.Auth.SessionTTLMinutes == 0 {
		cfg.Auth.SessionTTLMinutes = 60
		log.Println("Session TTL not specified, using default 60 minutes")
	}
	if cfg.Auth.MaxSessionsPerUser == 0 {
		cfg.Auth.MaxSessionsPerUser = 5
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 10
	}

	return &cfg, nil
}
