package commands

import (
	"bookmeter-discounts/internal/catalog"
	"bookmeter-discounts/internal/scrapers/bookmeter"
	"bookmeter-discounts/lib/configutil"
	"bookmeter-discounts/lib/timezone"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	UserID              string  `json:"user_id" env:"USER_ID"`
	DatabaseURL         string  `json:"database_url" env:"DATABASE_URL"`
	MaxPage             int     `json:"max_page" env:"MAX_PAGE"`
	RequestDelaySeconds float64 `json:"request_delay_seconds" env:"REQUEST_DELAY_SECONDS"`
	RequestsPerSecond   float64 `json:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	BypassCloudflare    bool    `json:"bypass_cloudflare" env:"BYPASS_CLOUDFLARE"`
	WebhookURL          string  `json:"webhook_url" env:"WEBHOOK_URL"`
	AmazonFetchCommand  string  `json:"amazon_fetch_command" env:"AMAZON_FETCH_COMMAND"`
	ListenAddr          string  `json:"listen_addr" env:"LISTEN_ADDR"`
	Schedule            string  `json:"schedule" env:"SCHEDULE"`
	Timezone            string  `json:"timezone" env:"TIMEZONE"`
	DiscountsLimit      int     `json:"discounts_limit" env:"DISCOUNTS_LIMIT"`
}

const (
	defaultListenAddr     = "0.0.0.0:3000"
	defaultDiscountsLimit = 100
)

// loadConfig reads `path` (optional), then .env files and the process
// environment, and fills in defaults.
func loadConfig(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if lookup == nil {
		err = configutil.LoadDotEnv()
		if err != nil {
			return Config{}, err
		}
	}
	err = configutil.ApplyEnv(&cfg, lookup)
	if err != nil {
		return Config{}, err
	}

	if cfg.MaxPage == 0 {
		cfg.MaxPage = 1
	}
	if cfg.RequestDelaySeconds == 0 {
		cfg.RequestDelaySeconds = 1
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.DiscountsLimit == 0 {
		cfg.DiscountsLimit = defaultDiscountsLimit
	}
	return cfg, nil
}

func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}

// ValidateCatalog checks what every command needs.
func (c Config) ValidateCatalog() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url (DATABASE_URL) is required")
	}
	if c.DiscountsLimit < 0 {
		return fmt.Errorf("discounts_limit must not be negative, got %d", c.DiscountsLimit)
	}
	return nil
}

// Validate checks what a pipeline run needs.
func (c Config) Validate() error {
	err := c.ValidateCatalog()
	if err != nil {
		return err
	}
	if c.UserID == "" {
		return fmt.Errorf("user_id (USER_ID) is required")
	}
	_, err = bookmeter.ParseUserID(c.UserID)
	if err != nil {
		return err
	}
	if c.MaxPage < 1 {
		return fmt.Errorf("max_page must be at least 1, got %d", c.MaxPage)
	}
	if c.RequestDelaySeconds < 0 {
		return fmt.Errorf("request_delay_seconds must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	if c.Schedule != "" {
		_, err = cron.ParseStandard(c.Schedule)
		if err != nil {
			return fmt.Errorf("schedule %q: %w", c.Schedule, err)
		}
	}
	_, err = timezone.Load(c.Timezone)
	return err
}

// limit is the ranking size used when the caller gives none.
func (c Config) limit() int {
	if c.DiscountsLimit > 0 {
		return c.DiscountsLimit
	}
	return catalog.DefaultDiscountsLimit
}
