package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"os"
)

// Config represents the application configuration
type Config struct {
	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string

	// Postgres configuration
	PostgresDSN string

	// HTTP API configuration
	ListenAddr     string
	APIRateLimit   float64
	AllowedOrigins []string

	// Scraper configuration
	Workers       int
	RequestRate   float64
	BlockTime     time.Duration
	ScrapeCron    string
	Providers     []string
	Countries     []string
	BrowserBin    string
	BrowserHeadless bool

	// DSP page URLs
	AppleMusicURL     string
	ICloudSupportURL  string
	SpotifyURLFormat  string
	NetflixHelpURL    string
	DisneyPlusURLFormat string

	// ReferencePricesPath points at the curated fallback price table.
	// Empty disables the implausible-price override.
	ReferencePricesPath string

	// Translation configuration
	TranslatorProvider string
	OpenAIAPIKey       string
	OpenAIModel        string

	// Environment
	Environment string
}

// defaultCountries is the storefront set covered by a full run.
const defaultCountries = "US,CA,MX,BR,AR,CL,CO,GB,IE,DE,FR,ES,IT,PT,NL,BE,AT,CH,SE,NO,DK,FI,PL,CZ,HU,RO,GR,TR,UA,KZ,SA,AE,KW,QA,BH,OM,EG,ZA,NG,KE,IN,ID,TH,MY,PH,SG,VN,JP,KR,TW,HK,CN,AU,NZ"

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "5000"))
	workers, _ := strconv.Atoi(getEnv("SCRAPE_WORKERS", "8"))
	blockTime, _ := strconv.Atoi(getEnv("FETCH_BLOCK_SECONDS", "30"))
	requestRate, _ := strconv.ParseFloat(getEnv("REQUEST_RATE", "2"), 64)
	apiRate, _ := strconv.ParseFloat(getEnv("API_RATE_LIMIT", "5"), 64)
	headless := getEnv("BROWSER_HEADLESS", "true") != "false"

	return Config{
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "dspprices"),
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		PostgresDSN:          getEnv("POSTGRES_DSN", ""),
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		APIRateLimit:         apiRate,
		AllowedOrigins:       splitList(getEnv("ALLOWED_ORIGINS", "*")),
		Workers:              workers,
		RequestRate:          requestRate,
		BlockTime:            time.Duration(blockTime) * time.Second,
		ScrapeCron:           getEnv("SCRAPE_CRON", "0 3 * * *"),
		Providers:            splitList(getEnv("PROVIDERS", "applemusic,icloud,spotify,netflix,disneyplus")),
		Countries:            splitList(getEnv("SCRAPE_COUNTRIES", defaultCountries)),
		BrowserBin:           getEnv("BROWSER_BIN", ""),
		BrowserHeadless:      headless,
		AppleMusicURL:        getEnv("APPLE_MUSIC_URL", "https://www.apple.com/%s/apple-music/"),
		ICloudSupportURL:     getEnv("ICLOUD_SUPPORT_URL", "https://support.apple.com/en-gb/108047"),
		SpotifyURLFormat:     getEnv("SPOTIFY_URL", "https://www.spotify.com/%s/premium/"),
		NetflixHelpURL:       getEnv("NETFLIX_HELP_URL", "https://help.netflix.com/en/node/24926"),
		DisneyPlusURLFormat:  getEnv("DISNEY_PLUS_URL", "https://www.disneyplus.com/%s/sign-up"),
		ReferencePricesPath:  getEnv("REFERENCE_PRICES_PATH", ""),
		TranslatorProvider:   getEnv("TRANSLATOR_PROVIDER", "noop"),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", ""),
		Environment:          getEnv("DSP_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("SCRAPE_WORKERS must be positive, got %d", c.Workers)
	}
	if c.RequestRate <= 0 {
		return fmt.Errorf("REQUEST_RATE must be positive, got %f", c.RequestRate)
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("PROVIDERS must name at least one scraper")
	}
	if len(c.Countries) == 0 {
		return fmt.Errorf("SCRAPE_COUNTRIES must name at least one country")
	}
	if c.TranslatorProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("TRANSLATOR_PROVIDER=openai requires OPENAI_API_KEY")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
