package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "product-price-finder"
	EnvFileName = "config.env"
)

// Config holds the runtime settings read from the environment.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string
	OwnerNumber  string
	Debug        bool
	LogFile      string

	DBPath       string
	DisableCache bool
	CacheMaxAge  time.Duration

	ImageProbeTimeout  time.Duration
	ImageProbeParallel bool
	PageFetchTimeout   time.Duration
	PageFetchRPS       float64
	PageFetchBurst     int
	ToolCallTimeout    time.Duration
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory and from .env in the working directory. Variables already
// set in the environment win. Errors are ignored since the files may not
// exist.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load(".env")
}

// Load reads Config from the environment, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  os.Getenv("GEMINI_MODEL"),
		OwnerNumber:  os.Getenv("MY_NUMBER"),
		LogFile:      os.Getenv("PRICE_FINDER_LOG_FILE"),
		DBPath:       envOr("PRICE_FINDER_DB_PATH", "vision_cache.db"),
	}

	var errs []string
	parseBool := func(key string, dst *bool) {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = b
	}
	parseDuration := func(key string, def time.Duration, dst *time.Duration) {
		*dst = def
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return
		}
		d, err := parseDurationOrSeconds(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
			return
		}
		*dst = d
	}

	parseBool("DEBUG", &cfg.Debug)
	parseBool("PRICE_FINDER_DISABLE_CACHE", &cfg.DisableCache)
	parseBool("IMAGE_PROBE_PARALLEL", &cfg.ImageProbeParallel)
	parseDuration("PRICE_FINDER_CACHE_MAX_AGE", 30*24*time.Hour, &cfg.CacheMaxAge)
	parseDuration("IMAGE_PROBE_TIMEOUT", 10*time.Second, &cfg.ImageProbeTimeout)
	parseDuration("PAGE_FETCH_TIMEOUT", 30*time.Second, &cfg.PageFetchTimeout)
	parseDuration("TOOL_CALL_TIMEOUT", 2*time.Minute, &cfg.ToolCallTimeout)

	cfg.PageFetchRPS = 2
	if v := strings.TrimSpace(os.Getenv("PAGE_FETCH_RPS")); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("PAGE_FETCH_RPS: %v", err))
		} else {
			cfg.PageFetchRPS = rps
		}
	}
	cfg.PageFetchBurst = 4
	if v := strings.TrimSpace(os.Getenv("PAGE_FETCH_BURST")); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("PAGE_FETCH_BURST: %v", err))
		} else {
			cfg.PageFetchBurst = burst
		}
	}

	if cfg.DBPath == "" {
		cfg.DisableCache = true
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// CheckRequired returns the names of required settings that are missing.
func (c Config) CheckRequired() []string {
	var missing []string
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	return missing
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// parseDurationOrSeconds accepts Go durations ("10s") and bare seconds ("10").
func parseDurationOrSeconds(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}
