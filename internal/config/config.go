// Package config defines the configuration of the space purchase service.
// Configuration is loaded once at process start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// Any missing required value or invalid format fails startup.
package config

import (
	"time"

	"spacepurchase/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration for the API server.
// Sub-components receive only the config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"space-purchase-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	Upstream      UpstreamConfig
	Purchase      PurchaseConfig
	AWS           AWSConfig
	Observability ObservabilityConfig
	Security      SecurityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server and public URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	// Web app base URL used for "go to space" links (no trailing slash).
	AppBaseURL     string        `envconfig:"APP_BASE_URL" validate:"required,url"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
}

// UpstreamConfig holds the organization API and content API endpoints.
type UpstreamConfig struct {
	APIURL          string        `envconfig:"UPSTREAM_API_URL" validate:"required,url"`
	ContentAPIURL   string        `envconfig:"CONTENT_API_URL" validate:"required,url"`
	ContentAPIToken SecretString  `envconfig:"CONTENT_API_TOKEN" validate:"required"`
	Timeout         time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"20s"`
	MaxRetries      int           `envconfig:"UPSTREAM_MAX_RETRIES" default:"2" validate:"min=0,max=5"`
}

// PurchaseConfig tunes the purchase session store and caches.
type PurchaseConfig struct {
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"1h"`
	SessionCapacity int           `envconfig:"SESSION_CAPACITY" default:"10000" validate:"min=1"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`
	// App definitions bundled with the Compose+Launch platform.
	ComposeLaunchAppIDs []string `envconfig:"COMPOSE_LAUNCH_APP_IDS" default:"compose,launch"`
	DefaultSpaceLocale  string   `envconfig:"DEFAULT_SPACE_LOCALE" default:"en-US"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Empty disables analytics publishing.
	AnalyticsQueueURL string `envconfig:"ANALYTICS_QUEUE_URL" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"SpacePurchase"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// SecurityConfig holds CORS settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// WorkerConfig is the configuration of the analytics worker Lambda.
type WorkerConfig struct {
	Environment   string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	AWS           AWSConfig
	Observability ObservabilityConfig
	Build         BuildInfo
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
