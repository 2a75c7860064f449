package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrEmptyToken       = errors.New("error getting RIC_TELEGRAM_TOKEN: variable not specified or contains an empty string")
	ErrEmptyChatID      = errors.New("error getting RIC_TELEGRAM_CHAT_ID: variable not specified or zero")
	ErrInvalidSkipRange = errors.New("invalid RIC_SKIP_CYCLES_MIN / RIC_SKIP_CYCLES_MAX: need 0 <= min <= max")
	ErrInvalidFormat    = errors.New("invalid RIC_FETCH_FORMAT: expected json or html")
	ErrInvalidRetention = errors.New("invalid RIC_NOTIFICATION_RETENTION: must be a positive duration")
)

// MinInterval is the shortest polling interval allowed outside local and development.
const MinInterval = 30 * time.Second

type Config struct {
	Env          string // Env is the current environment: local, development, production.
	Source       Source
	Check        Check
	Backoff      Backoff
	Retention    time.Duration // Retention bounds how long an alert stays editable.
	Tg           Telegram
	StoragePath  string
	MismatchKeep int
	API          API
}

// Source describes the upstream listing table.
type Source struct {
	URL     string
	SiteURL string
	Format  string
	Timeout time.Duration
}

type Check struct {
	Interval        time.Duration
	Jitter          time.Duration
	Models          []string // Models are SKU prefixes; "*" matches everything.
	DirectLink      bool
	ValidationDelay time.Duration
}

type Backoff struct {
	Window    time.Duration
	Threshold int
	MinSkip   int
	MaxSkip   int
}

type Telegram struct {
	Token       string        // Token is an unique telgram bot token.
	Timeout     time.Duration // Timeout is a poller timeout duration.
	ChatID      int64
	AdminChatID int64
}

type API struct {
	Enabled    bool
	Addr       string
	RateLimit  int // requests per minute per client
	TrustProxy bool
}

// MustLoad loads the configuration and panics on invalid values.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration from environment variables prefixed with RIC_.
// A .env file in the working directory is loaded first when present; it never overrides the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	vpr := viper.New()
	vpr.SetEnvPrefix("RIC")
	vpr.AutomaticEnv()

	// optional args
	vpr.SetDefault("ENV", "production")
	vpr.SetDefault("DEST_URL", "https://rpilocator.com/data.cfm?method=getProductTable")
	vpr.SetDefault("SITE_URL", "https://rpilocator.com/")
	vpr.SetDefault("FETCH_FORMAT", "json")
	vpr.SetDefault("HTTP_TIMEOUT", "20s")
	vpr.SetDefault("CHECK_INTERVAL", "60s")
	vpr.SetDefault("CHECK_JITTER", "0s")
	vpr.SetDefault("SEARCHED_MODELS", "*")
	vpr.SetDefault("USE_DIRECT_PRODUCT_LINK", false)
	vpr.SetDefault("VALIDATION_DELAY", "5s")
	vpr.SetDefault("FAILURE_WINDOW", "5m")
	vpr.SetDefault("FAILURE_THRESHOLD", 5)
	vpr.SetDefault("SKIP_CYCLES_MIN", 4)
	vpr.SetDefault("SKIP_CYCLES_MAX", 13)
	vpr.SetDefault("NOTIFICATION_RETENTION", "24h")
	vpr.SetDefault("TELEGRAM_TIMEOUT", "15s")
	vpr.SetDefault("STORAGE_PATH", "diagnostics.db")
	vpr.SetDefault("MISMATCH_KEEP", 50)
	vpr.SetDefault("API_ENABLED", true)
	vpr.SetDefault("API_ADDR", ":3000")
	vpr.SetDefault("API_RATE_LIMIT", 60)
	vpr.SetDefault("API_TRUST_PROXY", false)

	if vpr.GetString("TELEGRAM_TOKEN") == "" {
		return nil, ErrEmptyToken
	}
	chatID := vpr.GetInt64("TELEGRAM_CHAT_ID")
	if chatID == 0 {
		return nil, ErrEmptyChatID
	}
	adminChatID := vpr.GetInt64("TELEGRAM_ADMIN_CHAT_ID")
	if adminChatID == 0 {
		adminChatID = chatID
	}

	format := strings.ToLower(vpr.GetString("FETCH_FORMAT"))
	if format != "json" && format != "html" {
		return nil, fmt.Errorf("%w, got %q", ErrInvalidFormat, format)
	}

	minSkip, maxSkip := vpr.GetInt("SKIP_CYCLES_MIN"), vpr.GetInt("SKIP_CYCLES_MAX")
	if minSkip < 0 || maxSkip < minSkip {
		return nil, ErrInvalidSkipRange
	}

	retention := vpr.GetDuration("NOTIFICATION_RETENTION")
	if retention <= 0 {
		return nil, ErrInvalidRetention
	}

	env := vpr.GetString("ENV")
	interval := vpr.GetDuration("CHECK_INTERVAL")
	if env != "local" && env != "development" && interval < MinInterval {
		interval = MinInterval
	}

	return &Config{
		Env: env,
		Source: Source{
			URL:     vpr.GetString("DEST_URL"),
			SiteURL: vpr.GetString("SITE_URL"),
			Format:  format,
			Timeout: vpr.GetDuration("HTTP_TIMEOUT"),
		},
		Check: Check{
			Interval:        interval,
			Jitter:          vpr.GetDuration("CHECK_JITTER"),
			Models:          splitList(vpr.GetString("SEARCHED_MODELS")),
			DirectLink:      vpr.GetBool("USE_DIRECT_PRODUCT_LINK"),
			ValidationDelay: vpr.GetDuration("VALIDATION_DELAY"),
		},
		Backoff: Backoff{
			Window:    vpr.GetDuration("FAILURE_WINDOW"),
			Threshold: max(vpr.GetInt("FAILURE_THRESHOLD"), 1),
			MinSkip:   minSkip,
			MaxSkip:   maxSkip,
		},
		Retention: retention,
		Tg: Telegram{
			Token:       vpr.GetString("TELEGRAM_TOKEN"),
			Timeout:     vpr.GetDuration("TELEGRAM_TIMEOUT"),
			ChatID:      chatID,
			AdminChatID: adminChatID,
		},
		StoragePath:  vpr.GetString("STORAGE_PATH"),
		MismatchKeep: vpr.GetInt("MISMATCH_KEEP"),
		API: API{
			Enabled:    vpr.GetBool("API_ENABLED"),
			Addr:       vpr.GetString("API_ADDR"),
			RateLimit:  vpr.GetInt("API_RATE_LIMIT"),
			TrustProxy: vpr.GetBool("API_TRUST_PROXY"),
		},
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
