package config

import (
	"time"
)

type DB struct {
	Url string `envconfig:"URL"`
}

type Jwt struct {
	Secret string `envconfig:"SECRET" required:"true"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[bankfeed]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

// CircuitBreaker holds one provider's breaker thresholds. Unset fields
// keep the provider's built-in preset (zero means "not overridden").
type CircuitBreaker struct {
	Enabled              bool          `envconfig:"ENABLED" default:"true"`
	FailureRateThreshold float64       `envconfig:"FAILURE_RATE_THRESHOLD"`
	MinimumCalls         int           `envconfig:"MINIMUM_CALLS"`
	WindowSize           int           `envconfig:"WINDOW_SIZE"`
	OpenDuration         time.Duration `envconfig:"OPEN_DURATION"`
	HalfOpenCalls        int           `envconfig:"HALF_OPEN_CALLS"`
	SlowCallThreshold    time.Duration `envconfig:"SLOW_CALL_THRESHOLD"`
}

// Retry holds one provider's retry policy.
type Retry struct {
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS"`
	BaseDelay   time.Duration `envconfig:"BASE_DELAY"`
}

// Limiter holds one provider's rate-limiter quota.
type Limiter struct {
	Enabled     bool          `envconfig:"ENABLED" default:"true"`
	Requests    int           `envconfig:"REQUESTS"`
	Period      time.Duration `envconfig:"PERIOD"`
	WaitTimeout time.Duration `envconfig:"WAIT_TIMEOUT"`
}

// Resilience bundles the three policies wrapped around one provider's calls.
type Resilience struct {
	CircuitBreaker *CircuitBreaker `envconfig:"CIRCUIT_BREAKER"`
	Retry          *Retry          `envconfig:"RETRY"`
	Limiter        *Limiter        `envconfig:"RATE_LIMITER"`
}

// BankProvider is the per-provider integration config.
type BankProvider struct {
	ApiUrl        string        `envconfig:"API_URL"`
	ClientId      string        `envconfig:"CLIENT_ID"`
	ClientSecret  string        `envconfig:"CLIENT_SECRET"`
	WebhookSecret string        `envconfig:"WEBHOOK_SECRET"`
	Enabled       bool          `envconfig:"ENABLED" default:"false"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	Resilience    *Resilience   `envconfig:"RESILIENCE"`
}

// Sync drives the background reconciliation sweeps.
type Sync struct {
	Enabled            bool          `envconfig:"ENABLED" default:"true"`
	SweepSpec          string        `envconfig:"SWEEP_SPEC" default:"0 */6 * * *"`
	CleanupSpec        string        `envconfig:"CLEANUP_SPEC" default:"0 2 * * *"`
	HealthReportSpec   string        `envconfig:"HEALTH_REPORT_SPEC" default:"0 9 * * 1"`
	StalenessThreshold time.Duration `envconfig:"STALENESS_THRESHOLD" default:"6h"`
	BatchSize          int           `envconfig:"BATCH_SIZE" default:"5"`
	BatchPause         time.Duration `envconfig:"BATCH_PAUSE" default:"2s"`
	RepeatedFailure    time.Duration `envconfig:"REPEATED_FAILURE" default:"24h"`
	CleanupRetention   time.Duration `envconfig:"CLEANUP_RETENTION" default:"720h"`
	LookbackDays       int           `envconfig:"LOOKBACK_DAYS" default:"30"`
	Workers            int           `envconfig:"WORKERS" default:"4"`
	QueueSize          int           `envconfig:"QUEUE_SIZE" default:"64"`
}

// Banking groups everything the aggregation engine needs.
type Banking struct {
	DefaultProvider string        `envconfig:"DEFAULT_PROVIDER" default:"budget-insight"`
	Sync            *Sync         `envconfig:"SYNC"`
	BudgetInsight   *BankProvider `envconfig:"BUDGET_INSIGHT"`
	Bridge          *BankProvider `envconfig:"BRIDGE"`
	Mock            *BankProvider `envconfig:"MOCK"`
	Default         *Resilience   `envconfig:"DEFAULT_RESILIENCE"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Banking   *Banking   `envconfig:"BANKING"`
}
