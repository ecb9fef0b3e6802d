// Package config loads process configuration from the environment and an
// optional config file.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"

	"github.com/imrishuroy/go-bakery-orderflow/internal/notify"
	"github.com/imrishuroy/go-bakery-orderflow/internal/pricing"
)

// Config is built once at start and passed by reference.
type Config struct {
	RunLocal   bool
	ListenAddr string
	LogLevel   string

	OrdersTable      string
	ProductsTable    string
	IdempotencyTable string
	IdempotencyTTL   time.Duration
	QueueURL         string
	QueueDelay       time.Duration

	Pricing pricing.Rates

	Brand  notify.Brand
	Notify notify.Config

	SMSEnabled       bool
	SMSSenderID      string
	EmailFrom        string
	SESConfigSet     string
	MetricsNamespace string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CatalogTTL    time.Duration

	OrderRateLimit float64
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("run_local", false)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("orders_table", "orders")
	v.SetDefault("idempotency_table", "idempotency")
	v.SetDefault("idempotency_ttl", "48h")
	v.SetDefault("queue_delay", "0s")

	v.SetDefault("tax_rate", pricing.DefaultRates.TaxRate)
	v.SetDefault("free_delivery_threshold", pricing.DefaultRates.FreeDeliveryThreshold)
	v.SetDefault("delivery_fee", pricing.DefaultRates.DeliveryFee)

	v.SetDefault("business_name", notify.DefaultBrand.BusinessName)
	v.SetDefault("contact_window", notify.DefaultBrand.ContactWindow)
	v.SetDefault("currency_symbol", notify.DefaultBrand.CurrencySymbol)
	v.SetDefault("store_timezone", "Asia/Kolkata")
	v.SetDefault("country_code", notify.DefaultCountryCode)

	v.SetDefault("notify_channel_timeout", "12s")
	v.SetDefault("notify_max_attempts", 1)
	v.SetDefault("notify_retry_backoff", "500ms")

	v.SetDefault("metrics_namespace", "BakeryOrderflow")
	v.SetDefault("catalog_cache_ttl", "5m")
	v.SetDefault("order_rate_limit", 5.0)
}

// Load reads configuration. Environment variables use the upper-case key,
// e.g. TAX_RATE. CONFIG_FILE names an optional file read first.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	loc, err := time.LoadLocation(v.GetString("store_timezone"))
	if err != nil {
		return nil, fmt.Errorf("store_timezone: %w", err)
	}

	cfg := &Config{
		RunLocal:   v.GetBool("run_local"),
		ListenAddr: v.GetString("listen_addr"),
		LogLevel:   v.GetString("log_level"),

		OrdersTable:      v.GetString("orders_table"),
		ProductsTable:    v.GetString("products_table"),
		IdempotencyTable: v.GetString("idempotency_table"),
		IdempotencyTTL:   v.GetDuration("idempotency_ttl"),
		QueueURL:         v.GetString("orders_queue_url"),
		QueueDelay:       v.GetDuration("queue_delay"),

		Pricing: pricing.Rates{
			TaxRate:               v.GetFloat64("tax_rate"),
			FreeDeliveryThreshold: v.GetFloat64("free_delivery_threshold"),
			DeliveryFee:           v.GetFloat64("delivery_fee"),
		},

		Brand: notify.Brand{
			BusinessName:   v.GetString("business_name"),
			UPIID:          v.GetString("upi_id"),
			SupportNumber:  v.GetString("support_number"),
			ContactWindow:  v.GetString("contact_window"),
			AdminURL:       v.GetString("admin_dashboard_url"),
			StoreAddress:   v.GetString("store_address"),
			StoreHours:     v.GetString("store_hours"),
			CurrencySymbol: v.GetString("currency_symbol"),
			Location:       loc,
		},
		Notify: notify.Config{
			BusinessPhone:  v.GetString("business_phone_number"),
			BusinessEmail:  v.GetString("business_email"),
			CountryCode:    v.GetString("country_code"),
			ChannelTimeout: v.GetDuration("notify_channel_timeout"),
			MaxAttempts:    v.GetInt("notify_max_attempts"),
			RetryBackoff:   v.GetDuration("notify_retry_backoff"),
		},

		SMSEnabled:       v.GetBool("sms_enabled"),
		SMSSenderID:      v.GetString("sms_sender_id"),
		EmailFrom:        v.GetString("email_from"),
		SESConfigSet:     v.GetString("ses_configuration_set"),
		MetricsNamespace: v.GetString("metrics_namespace"),

		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		CatalogTTL:    v.GetDuration("catalog_cache_ttl"),

		OrderRateLimit: v.GetFloat64("order_rate_limit"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.OrdersTable == "" {
		return fmt.Errorf("config: ORDERS_TABLE is required")
	}
	if _, err := pricing.NewCalculator(c.Pricing); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.OrderRateLimit < 0 {
		return fmt.Errorf("config: ORDER_RATE_LIMIT must be >= 0")
	}
	return nil
}
