// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	UpstreamBaseURL     string        // base URL of the back-office REST API
	UpstreamToken       string        // service token used by the poller
	UpstreamTimeout     time.Duration // per-request timeout for upstream calls
	ActiveOrderEndpoint bool          // use GET /tables/{id}/active-order instead of list filtering
	JWTSecret           string        // secret used to verify terminal tokens
	DevTokenTTLMin      int           // lifetime of tokens minted by the token command

	DBUser string // settlement journal database user
	DBPass string // database password (optional)
	DBHost string // database host
	DBPort string // database port
	DBName string // database name

	AMQPURL        string // RabbitMQ URL; empty disables the event bus
	ChangesQueue   string // queue carrying upstream change notifications
	EventsExchange string // topic exchange the gateway publishes to

	CurrencyGlyph  string   // prefix for formatted money, e.g. "Rs."
	RestaurantName string   // receipt header line
	ReceiptWidth   int      // receipt columns (48 for 80mm paper)
	ReceiptLines   []string // address/phone lines under the name, "|"-separated in env

	SessionTick      time.Duration // session timer period
	SessionWarnAfter time.Duration // elapsed time after which a session is "closing soon"
	PaymentLockTTL   time.Duration // lifetime of the distributed payment lock
	RedirectDelay    time.Duration // delay before terminals leave the billing screen

	Poll      PollConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// Load reads configuration values from the environment, after loading a
// .env file when one exists.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:                 envStr("APP_ENV", "dev"),
		Port:                must("APP_PORT"),
		UpstreamBaseURL:     must("UPSTREAM_BASE_URL"),
		UpstreamToken:       os.Getenv("UPSTREAM_SERVICE_TOKEN"),
		UpstreamTimeout:     envDur("UPSTREAM_TIMEOUT", 10*time.Second),
		ActiveOrderEndpoint: envBool("UPSTREAM_ACTIVE_ORDER_ENDPOINT", false),
		JWTSecret:           must("JWT_SECRET"),
		DevTokenTTLMin:      envInt("DEV_TOKEN_TTL_MIN", 60),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		AMQPURL:        os.Getenv("AMQP_URL"),
		ChangesQueue:   envStr("AMQP_CHANGES_QUEUE", "pos.changes"),
		EventsExchange: envStr("AMQP_EVENTS_EXCHANGE", "pos.events"),

		CurrencyGlyph:  envStr("CURRENCY_GLYPH", "Rs."),
		RestaurantName: envStr("RESTAURANT_NAME", "Restaurant"),
		ReceiptWidth:   envInt("RECEIPT_WIDTH", 48),
		ReceiptLines:   envList("RECEIPT_HEADER_LINES", "|"),

		SessionTick:      envDur("SESSION_TICK", time.Second),
		SessionWarnAfter: envDur("SESSION_WARN_AFTER", 20*time.Hour),
		PaymentLockTTL:   envDur("PAYMENT_LOCK_TTL", 30*time.Second),
		RedirectDelay:    envDur("BILLING_REDIRECT_DELAY", time.Second),

		Poll:      LoadPollConfig(),
		Log:       LoadLogConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

// envList splits k on sep, dropping blank entries.
func envList(k, sep string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
