package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full process configuration, grouped by concern.
type Config struct {
	Server    Server
	Auth      Auth
	Postgres  Postgres
	Redis     Redis
	Kafka     Kafka
	Consent   Consent
	Policy    Policy
	Retention Retention
	Safety    Safety
	Channels  Channels
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	// WriteTimeout bounds a whole request, including the safety review of
	// an interaction upload.
	WriteTimeout time.Duration
	LogLevel     string
	LogFormat    string
}

type Auth struct {
	JWTSigningKey string
	Issuer        string
	Audience      string
	// AdminToken guards /admin routes; empty disables them.
	AdminToken string
	// DeviceTokenTTL is the lifetime of a token minted when a parent
	// pairs a device with a child.
	DeviceTokenTTL time.Duration
}

// Postgres is optional; an empty URL selects in-memory stores.
type Postgres struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxConnLife  time.Duration
}

// Redis is optional; an empty URL selects in-memory code and limiter stores.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka is optional; without brokers the event relay is disabled.
type Kafka struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Partitions    int32
	RelayInterval time.Duration
}

type Consent struct {
	CodeTTL            time.Duration
	RequestTTL         time.Duration
	Validity           time.Duration // zero means grants do not expire
	MaxAttempts        int
	RateLimitPerWindow int
	RateLimitWindow    time.Duration
}

type Policy struct {
	ProtectionAgeThreshold int
	MinSupportedAge        int
	MaxSupportedAge        int
	// RetentionOverrides is "category:classification=days,..."; parsed by the policy package.
	RetentionOverrides string
}

type Retention struct {
	ScanInterval time.Duration
	GraceDays    int
	BatchSize    int
}

type Safety struct {
	PolicyPath      string
	PolicyJSON      string
	AnalyzerURL     string
	AnalyzerAPIKey  string
	AnalyzerTimeout time.Duration
}

type Channels struct {
	EmailGatewayURL string
	SMSGatewayURL   string
	APIKey          string
	SendsPerSecond  float64
}

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	r := &reader{}
	cfg := Config{
		Server: Server{
			Addr:            r.str("GUARDIAN_ADDR", ":8080"),
			ShutdownTimeout: r.dur("SHUTDOWN_TIMEOUT", 10*time.Second),
			WriteTimeout:    r.dur("HTTP_WRITE_TIMEOUT", 30*time.Second),
			LogLevel:        r.str("LOG_LEVEL", "info"),
			LogFormat:       r.str("LOG_FORMAT", "json"),
		},
		Auth: Auth{
			JWTSigningKey:  r.str("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:         r.str("JWT_ISSUER", "guardian"),
			Audience:       r.str("JWT_AUDIENCE", "guardian-api"),
			AdminToken:     r.str("ADMIN_TOKEN", ""),
			DeviceTokenTTL: r.dur("DEVICE_TOKEN_TTL", 30*24*time.Hour),
		},
		Postgres: Postgres{
			URL:          r.str("DATABASE_URL", ""),
			MaxOpenConns: r.int("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: r.int("DATABASE_MAX_IDLE_CONNS", 5),
			MaxConnLife:  r.dur("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.dur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.dur("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:       r.list("KAFKA_BROKERS"),
			Topic:         r.str("KAFKA_EVENTS_TOPIC", "guardian.domain-events"),
			ConsumerGroup: r.str("KAFKA_CONSUMER_GROUP", "guardian-projections"),
			Partitions:    int32(r.int("KAFKA_EVENTS_PARTITIONS", 6)),
			RelayInterval: r.dur("KAFKA_RELAY_INTERVAL", time.Second),
		},
		Consent: Consent{
			CodeTTL:            r.dur("CONSENT_CODE_TTL", 15*time.Minute),
			RequestTTL:         r.dur("CONSENT_REQUEST_TTL", 72*time.Hour),
			Validity:           r.dur("CONSENT_VALIDITY", 0),
			MaxAttempts:        r.int("CONSENT_MAX_ATTEMPTS", 5),
			RateLimitPerWindow: r.int("CONSENT_SENDS_PER_WINDOW", 3),
			RateLimitWindow:    r.dur("CONSENT_SEND_WINDOW", 15*time.Minute),
		},
		Policy: Policy{
			ProtectionAgeThreshold: r.int("POLICY_PROTECTION_AGE", 13),
			MinSupportedAge:        r.int("POLICY_MIN_AGE", 3),
			MaxSupportedAge:        r.int("POLICY_MAX_AGE", 17),
			RetentionOverrides:     r.str("POLICY_RETENTION_DAYS", ""),
		},
		Retention: Retention{
			ScanInterval: r.dur("RETENTION_SCAN_INTERVAL", time.Hour),
			GraceDays:    r.int("RETENTION_GRACE_DAYS", 30),
			BatchSize:    r.int("RETENTION_BATCH_SIZE", 200),
		},
		Safety: Safety{
			PolicyPath:      r.str("SAFETY_POLICY_PATH", ""),
			PolicyJSON:      r.str("SAFETY_POLICY_JSON", ""),
			AnalyzerURL:     r.str("SAFETY_ANALYZER_URL", ""),
			AnalyzerAPIKey:  r.str("SAFETY_ANALYZER_API_KEY", ""),
			AnalyzerTimeout: r.dur("SAFETY_ANALYZER_TIMEOUT", 2*time.Second),
		},
		Channels: Channels{
			EmailGatewayURL: r.str("CHANNEL_EMAIL_URL", ""),
			SMSGatewayURL:   r.str("CHANNEL_SMS_URL", ""),
			APIKey:          r.str("CHANNEL_API_KEY", ""),
			SendsPerSecond:  r.float("CHANNEL_SENDS_PER_SECOND", 20),
		},
	}
	if r.err != nil {
		return Config{}, r.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Consent.MaxAttempts < 1:
		return fmt.Errorf("CONSENT_MAX_ATTEMPTS must be at least 1")
	case c.Auth.DeviceTokenTTL <= 0:
		return fmt.Errorf("DEVICE_TOKEN_TTL must be positive")
	case c.Consent.CodeTTL <= 0:
		return fmt.Errorf("CONSENT_CODE_TTL must be positive")
	case c.Policy.MinSupportedAge > c.Policy.MaxSupportedAge:
		return fmt.Errorf("POLICY_MIN_AGE must not exceed POLICY_MAX_AGE")
	case c.Retention.GraceDays < 0:
		return fmt.Errorf("RETENTION_GRACE_DAYS must not be negative")
	case c.Safety.PolicyPath == "" && c.Safety.PolicyJSON == "":
		return fmt.Errorf("a safety policy is required: set SAFETY_POLICY_PATH or SAFETY_POLICY_JSON")
	}
	return nil
}

// reader collects the first parse error so FromEnv can report it once.
type reader struct {
	err error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return n
}

func (r *reader) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return f
}

func (r *reader) dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return d
}

func (r *reader) list(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
