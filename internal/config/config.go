package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	BaseURL     string   `mapstructure:"BASE_URL"`

	// Inference service
	MLServiceURL     string `mapstructure:"ML_SERVICE_URL"`
	MLTimeoutSeconds int    `mapstructure:"ML_TIMEOUT_SECONDS"`

	// Artifact storage: "fs" or "s3"
	ArtifactBackend string `mapstructure:"ARTIFACT_BACKEND"`
	UploadDir       string `mapstructure:"UPLOAD_DIR"`
	S3Bucket        string `mapstructure:"S3_BUCKET"`

	// Follow-up delivery
	SMTPServer   string `mapstructure:"SMTP_SERVER"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPEmail    string `mapstructure:"SMTP_EMAIL"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	CallGateway  string `mapstructure:"CALL_GATEWAY_URL"`

	// Auth
	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
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
	v.SetDefault("BASE_URL", "http://localhost:3000")
	v.SetDefault("ML_SERVICE_URL", "http://localhost:8001")
	v.SetDefault("ML_TIMEOUT_SECONDS", 30)
	v.SetDefault("ARTIFACT_BACKEND", "fs")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("SMTP_PORT", 587)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("BASE_URL")
	v.BindEnv("ML_SERVICE_URL")
	v.BindEnv("ML_TIMEOUT_SECONDS")
	v.BindEnv("ARTIFACT_BACKEND")
	v.BindEnv("UPLOAD_DIR")
	v.BindEnv("S3_BUCKET")
	v.BindEnv("SMTP_SERVER")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_EMAIL")
	v.BindEnv("SMTP_PASSWORD")
	v.BindEnv("CALL_GATEWAY_URL")
	v.BindEnv("JWT_SIGNING_KEY")

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

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active: all requests get doctor access.")
		log.Println("WARNING: Set ENV=production and JWT_SIGNING_KEY for production.")
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
// a JWT signing key is required so that role claims are actually verified,
// and the selected artifact backend must be fully configured.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q; refusing to start without token verification", c.Env)
	}

	switch c.ArtifactBackend {
	case "fs":
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required when ARTIFACT_BACKEND is \"fs\"")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when ARTIFACT_BACKEND is \"s3\"")
		}
	default:
		return fmt.Errorf("ARTIFACT_BACKEND must be \"fs\" or \"s3\", got %q", c.ArtifactBackend)
	}

	if c.MLTimeoutSeconds <= 0 {
		return fmt.Errorf("ML_TIMEOUT_SECONDS must be positive, got %d", c.MLTimeoutSeconds)
	}

	return nil
}
