package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret   string   `mapstructure:"JWT_SECRET"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	ArtifactDriver      string `mapstructure:"ARTIFACT_DRIVER"`
	ArtifactMaxBytes    int64  `mapstructure:"ARTIFACT_MAX_BYTES"`
	ArtifactS3Bucket    string `mapstructure:"ARTIFACT_S3_BUCKET"`
	ArtifactS3Region    string `mapstructure:"ARTIFACT_S3_REGION"`
	ArtifactS3Endpoint  string `mapstructure:"ARTIFACT_S3_ENDPOINT"`
	ArtifactS3PathStyle bool   `mapstructure:"ARTIFACT_S3_PATH_STYLE"`

	CleanupMaxAgeMinutes   int `mapstructure:"CLEANUP_MAX_AGE_MINUTES"`
	CleanupIntervalMinutes int `mapstructure:"CLEANUP_INTERVAL_MINUTES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ARTIFACT_DRIVER", "memory")
	v.SetDefault("ARTIFACT_MAX_BYTES", 20*1024*1024)
	v.SetDefault("ARTIFACT_S3_REGION", "us-east-1")
	v.SetDefault("CLEANUP_MAX_AGE_MINUTES", 60)
	v.SetDefault("CLEANUP_INTERVAL_MINUTES", 15)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("ARTIFACT_DRIVER")
	v.BindEnv("ARTIFACT_MAX_BYTES")
	v.BindEnv("ARTIFACT_S3_BUCKET")
	v.BindEnv("ARTIFACT_S3_REGION")
	v.BindEnv("ARTIFACT_S3_ENDPOINT")
	v.BindEnv("ARTIFACT_S3_PATH_STYLE")
	v.BindEnv("CLEANUP_MAX_AGE_MINUTES")
	v.BindEnv("CLEANUP_INTERVAL_MINUTES")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret is required so real authentication is enforced, and the S3
// driver needs a bucket.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV is not development")
	}

	switch c.ArtifactDriver {
	case "memory":
	case "s3":
		if c.ArtifactS3Bucket == "" {
			return fmt.Errorf("ARTIFACT_S3_BUCKET is required when ARTIFACT_DRIVER is \"s3\"")
		}
	default:
		return fmt.Errorf("ARTIFACT_DRIVER must be \"memory\" or \"s3\", got %q", c.ArtifactDriver)
	}

	if c.ArtifactMaxBytes <= 0 {
		return fmt.Errorf("ARTIFACT_MAX_BYTES must be positive, got %d", c.ArtifactMaxBytes)
	}

	return nil
}
