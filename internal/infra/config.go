package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/hprow/bnc-anc/internal/domain"
)

// Venue names accepted in the routing table.
const (
	VenueKuCoin = "kucoin"
	VenueMexc   = "mexc"
	VenueNoop   = "noop"
)

// Reference price types for protective trigger computation.
const (
	RefMark  = "MP" // mark price
	RefTrade = "TP" // last trade price
	RefIndex = "IP" // index price
)

// PositionYAML is the YAML shape of one sizing profile.
type PositionYAML struct {
	Notional float64 `yaml:"notional"`
	Leverage int     `yaml:"leverage"`
	TPPct    float64 `yaml:"tp_pct"`
	SLPct    float64 `yaml:"sl_pct"`
}

// ToPosition converts the YAML profile into the immutable runtime form.
func (p PositionYAML) ToPosition() domain.PositionConfig {
	return domain.PositionConfig{
		Notional:      decimal.NewFromFloat(p.Notional),
		Leverage:      p.Leverage,
		TakeProfitPct: decimal.NewFromFloat(p.TPPct),
		StopLossPct:   decimal.NewFromFloat(p.SLPct),
	}
}

// Config holds every setting the process needs. Loaded once, validated,
// then passed to constructors. Secrets are overridden from environment
// variables after the file is read.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		TestMode      bool                `yaml:"test_mode"`
		StopPriceType string              `yaml:"stop_price_type"` // MP, TP, IP
		MinTicksGap   int64               `yaml:"min_ticks_gap"`
		MarginMode    string              `yaml:"margin_mode"`
		Routing       map[string][]string `yaml:"routing"` // "listing"/"delisting" -> venue names
	} `yaml:"trading"`

	Feed struct {
		WSURL      string `yaml:"ws_url"`
		Topic      string `yaml:"topic"`
		RecvWindow int64  `yaml:"recv_window"`
		Categories []int  `yaml:"categories"`
		APIKey     string `yaml:"api_key"`
		APISecret  string `yaml:"api_secret"`
	} `yaml:"feed"`

	Venues struct {
		KuCoin struct {
			RestURL    string       `yaml:"rest_url"`
			AccessKey  string       `yaml:"access_key"`
			SecretKey  string       `yaml:"secret_key"`
			Passphrase string       `yaml:"passphrase"`
			KeyVersion string       `yaml:"key_version"`
			Long       PositionYAML `yaml:"long"`
			Short      PositionYAML `yaml:"short"`
		} `yaml:"kucoin"`
		Mexc struct {
			RestURL   string       `yaml:"rest_url"`
			WSURL     string       `yaml:"ws_url"`
			AccessKey string       `yaml:"access_key"`
			SecretKey string       `yaml:"secret_key"`
			Long      PositionYAML `yaml:"long"`
			Short     PositionYAML `yaml:"short"`
		} `yaml:"mexc"`
	} `yaml:"venues"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and validates the config file, applying environment
// overrides for secrets.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Feed.WSURL == "" {
		cfg.Feed.WSURL = "wss://api.binance.com/sapi/wss"
	}
	if cfg.Feed.Topic == "" {
		cfg.Feed.Topic = "com_announcement_en"
	}
	if cfg.Feed.RecvWindow == 0 {
		cfg.Feed.RecvWindow = 60000
	}
	if len(cfg.Feed.Categories) == 0 {
		cfg.Feed.Categories = []int{48, 161}
	}
	if cfg.Trading.StopPriceType == "" {
		cfg.Trading.StopPriceType = RefMark
	}
	if cfg.Trading.MinTicksGap == 0 {
		cfg.Trading.MinTicksGap = 1
	}
	if cfg.Trading.MarginMode == "" {
		cfg.Trading.MarginMode = "ISOLATED"
	}
	if cfg.Venues.KuCoin.RestURL == "" {
		cfg.Venues.KuCoin.RestURL = "https://api-futures.kucoin.com"
	}
	if cfg.Venues.KuCoin.KeyVersion == "" {
		cfg.Venues.KuCoin.KeyVersion = "3"
	}
	if cfg.Venues.Mexc.RestURL == "" {
		cfg.Venues.Mexc.RestURL = "https://api.mexc.com"
	}
	if cfg.Venues.Mexc.WSURL == "" {
		cfg.Venues.Mexc.WSURL = "wss://wbs.mexc.com/ws"
	}
}

// Validate fails fast on anything that would otherwise surface mid-run.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
		return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
	}
	switch c.Trading.StopPriceType {
	case RefMark, RefTrade, RefIndex:
	default:
		return fmt.Errorf("unknown stop_price_type %q (want MP, TP or IP)", c.Trading.StopPriceType)
	}
	if c.Trading.MinTicksGap < 0 {
		return fmt.Errorf("min_ticks_gap must not be negative")
	}
	if len(c.Trading.Routing) == 0 {
		return fmt.Errorf("trading.routing must map at least one event kind to venues")
	}
	for kind, venues := range c.Trading.Routing {
		if kind != "listing" && kind != "delisting" {
			return fmt.Errorf("unknown routing kind %q", kind)
		}
		for _, v := range venues {
			switch v {
			case VenueKuCoin, VenueMexc, VenueNoop:
			default:
				return fmt.Errorf("unknown venue %q in routing for %s", v, kind)
			}
		}
	}
	if !c.Trading.TestMode {
		routed := c.routedVenues()
		if routed[VenueKuCoin] && (c.Venues.KuCoin.AccessKey == "" || c.Venues.KuCoin.SecretKey == "" || c.Venues.KuCoin.Passphrase == "") {
			return fmt.Errorf("kucoin routed but credentials missing")
		}
		if routed[VenueMexc] && (c.Venues.Mexc.AccessKey == "" || c.Venues.Mexc.SecretKey == "") {
			return fmt.Errorf("mexc routed but credentials missing")
		}
		if c.Feed.APIKey == "" || c.Feed.APISecret == "" {
			return fmt.Errorf("feed credentials missing")
		}
	}
	return nil
}

func (c *Config) routedVenues() map[string]bool {
	out := make(map[string]bool)
	for _, venues := range c.Trading.Routing {
		for _, v := range venues {
			out[v] = true
		}
	}
	return out
}

// RoutedFor returns the venue names configured to act on a decision kind.
func (c *Config) RoutedFor(kind domain.Kind) []string {
	switch kind {
	case domain.KindListing:
		return c.Trading.Routing["listing"]
	case domain.KindDelisting:
		return c.Trading.Routing["delisting"]
	default:
		return nil
	}
}

// CategorySet returns the catalog-id filter as a set.
func (c *Config) CategorySet() map[int]bool {
	out := make(map[int]bool, len(c.Feed.Categories))
	for _, id := range c.Feed.Categories {
		out[id] = true
	}
	return out
}

// overrideWithEnv replaces secrets with environment values when set.
// Environment always wins over the file.
func overrideWithEnv(cfg *Config) {
	if cfg.Feed.APISecret != "" || cfg.Venues.KuCoin.SecretKey != "" || cfg.Venues.Mexc.SecretKey != "" {
		fmt.Println("⚠️  SECURITY WARNING: API secrets found in config file.")
		fmt.Println("   Recommendation: use environment variables instead (BNC_ANC_*).")
	}

	set := func(dst *string, env string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	set(&cfg.Feed.APIKey, "BNC_ANC_BINANCE_KEY")
	set(&cfg.Feed.APISecret, "BNC_ANC_BINANCE_SECRET")
	set(&cfg.Venues.KuCoin.AccessKey, "BNC_ANC_KUCOIN_KEY")
	set(&cfg.Venues.KuCoin.SecretKey, "BNC_ANC_KUCOIN_SECRET")
	set(&cfg.Venues.KuCoin.Passphrase, "BNC_ANC_KUCOIN_PASSPHRASE")
	set(&cfg.Venues.KuCoin.KeyVersion, "BNC_ANC_KUCOIN_KEY_VERSION")
	set(&cfg.Venues.Mexc.AccessKey, "BNC_ANC_MEXC_KEY")
	set(&cfg.Venues.Mexc.SecretKey, "BNC_ANC_MEXC_SECRET")
	set(&cfg.Telegram.Token, "BNC_ANC_TG_TOKEN")
	set(&cfg.Telegram.ChatID, "BNC_ANC_TG_CHAT_ID")
	if v := os.Getenv("BNC_ANC_TEST_MODE"); v != "" {
		cfg.Trading.TestMode = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
}
