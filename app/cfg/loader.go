package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server configuration
	Port    string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://rsshub.example.com)"`

	// Upstream fetch configuration
	UserAgent   string `long:"user-agent" env:"USER_AGENT" default:"RSSHub/1.0" description:"User agent string for upstream HTTP requests"`
	HTTPTimeout int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"Upstream fetch timeout in seconds"`

	// Cache configuration
	RedisAddr string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for the detail cache (in-process memory cache when unset)"`
	CacheTTL  int    `long:"cache-ttl" env:"CACHE_TTL" default:"3600" description:"Cache TTL for fetched detail payloads in seconds"`

	// Aggregation behavior
	SectionPolicy string `long:"section-policy" env:"SECTION_POLICY" default:"tolerant" choice:"tolerant" choice:"strict" description:"Whether a failed section fetch fails the whole request (strict) or is tolerated while other sections succeed (tolerant)"`

	// Proxy passthrough configuration
	ProxyProviders string `long:"proxy-providers" env:"PROXY_PROVIDERS" description:"Optional YAML file overriding media proxy provider headers"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Shanghai)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:           raw.Port,
		BaseUrl:        raw.BaseUrl,
		UserAgent:      raw.UserAgent,
		HTTPTimeout:    raw.HTTPTimeout,
		RedisAddr:      raw.RedisAddr,
		CacheTTL:       raw.CacheTTL,
		SectionPolicy:  raw.SectionPolicy,
		ProxyProviders: raw.ProxyProviders,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
