/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the donation-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                 string  `mapstructure:"SERVER_PORT"`
	DatabaseURL                string  `mapstructure:"DATABASE_URL"`
	RedisURL                   string  `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string  `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                string  `mapstructure:"RABBITMQ_URL"`
	EventExchange              string  `mapstructure:"EVENT_EXCHANGE"`
	JWTSecret                  string  `mapstructure:"JWT_SECRET"`
	PayOSClientID              string  `mapstructure:"PAYOS_CLIENT_ID"`
	PayOSAPIKey                string  `mapstructure:"PAYOS_API_KEY"`
	PayOSChecksumKey           string  `mapstructure:"PAYOS_CHECKSUM_KEY"`
	PayOSAPIBaseURL            string  `mapstructure:"PAYOS_API_BASE_URL"`
	PaymentReturnURL           string  `mapstructure:"PAYMENT_RETURN_URL"`
	PaymentCancelURL           string  `mapstructure:"PAYMENT_CANCEL_URL"`
	MinDonationAmount          int64   `mapstructure:"MIN_DONATION_AMOUNT"`
	WebhookOrphanDonations     bool    `mapstructure:"WEBHOOK_ORPHAN_DONATIONS"`
	DaoVoteQuorum              int     `mapstructure:"DAO_VOTE_QUORUM"`
	DaoApprovalThreshold       float64 `mapstructure:"DAO_APPROVAL_THRESHOLD"`
	DaoAllowReapply            bool    `mapstructure:"DAO_ALLOW_REAPPLY"`
	DonationPendingTTLHours    int     `mapstructure:"DONATION_PENDING_TTL_HOURS"`
	DonationSweepSchedule      string  `mapstructure:"DONATION_SWEEP_SCHEDULE"`
	DaoEvalSchedule            string  `mapstructure:"DAO_EVAL_SCHEDULE"`
	DonationRateLimitPerMinute int     `mapstructure:"DONATION_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("EVENT_EXCHANGE", "givehub.events")
	viper.SetDefault("PAYOS_API_BASE_URL", "https://api-merchant.payos.vn")
	viper.SetDefault("MIN_DONATION_AMOUNT", 10000)
	viper.SetDefault("WEBHOOK_ORPHAN_DONATIONS", false)
	viper.SetDefault("DAO_VOTE_QUORUM", 5)
	viper.SetDefault("DAO_APPROVAL_THRESHOLD", 0.5)
	viper.SetDefault("DAO_ALLOW_REAPPLY", false)
	viper.SetDefault("DONATION_PENDING_TTL_HOURS", 72)
	viper.SetDefault("DONATION_SWEEP_SCHEDULE", "@hourly")
	viper.SetDefault("DAO_EVAL_SCHEDULE", "@every 15m")
	viper.SetDefault("DONATION_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "givehub:rate_limit")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "DONATION_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENT_EXCHANGE")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("PAYOS_CLIENT_ID")
	_ = viper.BindEnv("PAYOS_API_KEY")
	_ = viper.BindEnv("PAYOS_CHECKSUM_KEY")
	_ = viper.BindEnv("PAYOS_API_BASE_URL")
	_ = viper.BindEnv("PAYMENT_RETURN_URL")
	_ = viper.BindEnv("PAYMENT_CANCEL_URL")
	_ = viper.BindEnv("MIN_DONATION_AMOUNT")
	_ = viper.BindEnv("WEBHOOK_ORPHAN_DONATIONS")
	_ = viper.BindEnv("DAO_VOTE_QUORUM")
	_ = viper.BindEnv("DAO_APPROVAL_THRESHOLD")
	_ = viper.BindEnv("DAO_ALLOW_REAPPLY")
	_ = viper.BindEnv("DONATION_PENDING_TTL_HOURS")
	_ = viper.BindEnv("DONATION_SWEEP_SCHEDULE")
	_ = viper.BindEnv("DAO_EVAL_SCHEDULE")
	_ = viper.BindEnv("DONATION_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "givehub:rate_limit"
	}
	config.PayOSAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.PayOSAPIBaseURL), "/")

	if config.MinDonationAmount < 0 {
		log.Printf("level=warn component=config msg=\"negative minimum donation configured; coercing to zero\" min_amount=%d", config.MinDonationAmount)
		config.MinDonationAmount = 0
	}
	if config.DaoVoteQuorum <= 0 {
		config.DaoVoteQuorum = 5
	}
	if config.DaoApprovalThreshold <= 0 || config.DaoApprovalThreshold >= 1 {
		log.Printf("level=warn component=config msg=\"dao approval threshold out of range; using default\" threshold=%f", config.DaoApprovalThreshold)
		config.DaoApprovalThreshold = 0.5
	}
	if config.DonationPendingTTLHours <= 0 {
		config.DonationPendingTTLHours = 72
	}
	if strings.TrimSpace(config.DonationSweepSchedule) == "" {
		config.DonationSweepSchedule = "@hourly"
	}
	if strings.TrimSpace(config.DaoEvalSchedule) == "" {
		config.DaoEvalSchedule = "@every 15m"
	}
	if config.DonationRateLimitPerMinute <= 0 {
		config.DonationRateLimitPerMinute = 30
	}

	return
}
