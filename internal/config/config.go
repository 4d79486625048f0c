package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override,
// e.g. PAYMENT_GATEWAY_FRAME_TOKEN overrides gateway.frame_token.
const EnvPrefix = "PAYMENT"

const defaultConfigPath = "./configs/payment.yaml"

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	JWT      JWTConfig      `yaml:"jwt"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Session  SessionConfig  `yaml:"session"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Redis    RedisConfig    `yaml:"redis"`
	Sweep    SweepConfig    `yaml:"sweep"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (default ./configs/payment.yaml)
// and applies PAYMENT_* environment overrides. A missing file is not an error
// when CONFIG_PATH is unset; defaults and the environment are used instead.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	explicit := configPath != ""
	if !explicit {
		configPath = defaultConfigPath
	}
	return Load(configPath, explicit)
}

// Load reads configuration from path. When required is false a missing file
// falls back to defaults.
func Load(path string, required bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		_, statErr := os.Stat(absPath)
		switch {
		case statErr == nil:
			v.SetConfigFile(absPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		case required || !os.IsNotExist(statErr):
			return nil, fmt.Errorf("failed to read config file: %w", statErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the engine cannot run without.
func (c *Config) Validate() error {
	if c.Session.MaxAttempts < 1 {
		return fmt.Errorf("session.max_attempts must be at least 1")
	}
	if c.Session.ExpiryWindow <= 0 {
		return fmt.Errorf("session.expiry_window must be positive")
	}
	if c.Session.ProcessingExpiryWindow < 0 {
		return fmt.Errorf("session.processing_expiry_window must not be negative")
	}
	if c.Session.ProcessingExpiryWindow > 0 && c.Session.ProcessingExpiryWindow < c.Session.ExpiryWindow {
		return fmt.Errorf("session.processing_expiry_window must not be shorter than session.expiry_window")
	}
	if c.JWT.Secret == "" && c.Service.Environment == "production" {
		return fmt.Errorf("jwt.secret is required in production")
	}
	if c.Gateway.Active && c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required when the gateway is active")
	}
	if len(c.Gateway.MerchantTag) > 4 {
		return fmt.Errorf("gateway.merchant_tag must be at most 4 characters")
	}
	if _, err := c.Gateway.MaxAmountDecimal(); err != nil {
		return fmt.Errorf("gateway.max_amount: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "payment")
	v.SetDefault("service.environment", "dev")
	v.SetDefault("service.version", "0.1.0")

	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "15s")
	v.SetDefault("server.http.write_timeout", "15s")
	v.SetDefault("server.http.allowed_origins", []string{"*"})
	v.SetDefault("server.grpc.host", "0.0.0.0")
	v.SetDefault("server.grpc.port", 9090)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "storefront")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "payment.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("database.slow_threshold", "200ms")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.development", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.admin_role", "admin")

	v.SetDefault("gateway.active", true)
	v.SetDefault("gateway.base_url", "https://pagamentonline.emis.co.ao/online-payment-gateway/portal")
	v.SetDefault("gateway.frame_url", "")
	v.SetDefault("gateway.frame_token", "")
	v.SetDefault("gateway.callback_url", "")
	v.SetDefault("gateway.success_url", "")
	v.SetDefault("gateway.error_url", "")
	v.SetDefault("gateway.css_url", "")
	v.SetDefault("gateway.merchant_tag", "AH")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("gateway.max_amount", "")
	v.SetDefault("gateway.methods.mobile", "PAYMENT")
	v.SetDefault("gateway.methods.card", "DISABLED")
	v.SetDefault("gateway.methods.qr_code", "PAYMENT")

	v.SetDefault("session.max_attempts", 3)
	v.SetDefault("session.retry_base_delay", "1s")
	v.SetDefault("session.expiry_window", "15m")
	v.SetDefault("session.processing_expiry_window", "24h")
	v.SetDefault("session.reference_retries", 3)

	v.SetDefault("webhook.signature_secret", "")
	v.SetDefault("webhook.signature_header", "X-Signature")
	v.SetDefault("webhook.max_body_bytes", 65536)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.order_paid_channel", "order.paid")

	v.SetDefault("sweep.cron", "@every 1m")
	v.SetDefault("sweep.batch_size", 100)
}
