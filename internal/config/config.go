package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Service struct {
	Environment     string `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	APIPort         string `envconfig:"SERVICE_API_PORT" default:"8080"`
	Host            string `envconfig:"SERVICE_HOST" default:"localhost:8080"`
	HealthCheckPort string `envconfig:"SERVICE_HEALTH_CHECK_PORT" default:"8081"`
}

type SQS struct {
	Endpoint string `envconfig:"SQS_ENDPOINT"`
	QueueURL string `envconfig:"SQS_QUEUE_URL" required:"true"`
	Region   string `envconfig:"SQS_REGION" required:"true"`
}

type ClickHouse struct {
	Host            string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port            string `envconfig:"CLICKHOUSE_PORT" required:"true"`
	Database        string `envconfig:"CLICKHOUSE_DB" required:"true"`
	User            string `envconfig:"CLICKHOUSE_USER" default:""`
	Password        string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	UseTLS          bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`
}

type Oracle struct {
	BaseURL   string `envconfig:"ORACLE_BASE_URL" required:"true"`
	TimeoutMS int    `envconfig:"ORACLE_TIMEOUT_MS" default:"200"`
}

type Trust struct {
	// Threshold splits the score range into block/challenge/allow bands.
	Threshold                float64 `envconfig:"TRUST_THRESHOLD" default:"50"`
	RateLimitWindowSec       int     `envconfig:"TRUST_RATE_LIMIT_WINDOW_SEC" default:"60"`
	VelocityThreshold        int     `envconfig:"TRUST_VELOCITY_THRESHOLD" default:"10"`
	VelocityPenalty          float64 `envconfig:"TRUST_VELOCITY_PENALTY" default:"30"`
	MissingIdentifierPenalty float64 `envconfig:"TRUST_MISSING_IDENTIFIER_PENALTY" default:"40"`
}

type Bid struct {
	MinMultiplier    float64 `envconfig:"BID_MIN_MULTIPLIER" default:"0.5"`
	MaxMultiplier    float64 `envconfig:"BID_MAX_MULTIPLIER" default:"3.0"`
	AggressiveBase   float64 `envconfig:"BID_AGGRESSIVE_BASE" default:"2.0"`
	RetentionBase    float64 `envconfig:"BID_RETENTION_BASE" default:"1.8"`
	AcquisitionBase  float64 `envconfig:"BID_ACQUISITION_BASE" default:"1.3"`
	NurtureBase      float64 `envconfig:"BID_NURTURE_BASE" default:"1.1"`
	ConservativeBase float64 `envconfig:"BID_CONSERVATIVE_BASE" default:"1.0"`
}

type Dispatch struct {
	EnabledPlatforms   []string `envconfig:"DISPATCH_ENABLED_PLATFORMS" default:"meta,tiktok,google,bigquery"`
	PlatformTimeoutMS  int      `envconfig:"DISPATCH_PLATFORM_TIMEOUT_MS" default:"500"`
	MaxRetries         int      `envconfig:"DISPATCH_MAX_RETRIES" default:"2"`
	EventDeadlineMS    int      `envconfig:"DISPATCH_EVENT_DEADLINE_MS" default:"2000"`
	MetaEndpoint       string   `envconfig:"DISPATCH_META_ENDPOINT" default:"https://graph.facebook.com/v19.0/events"`
	TikTokEndpoint     string   `envconfig:"DISPATCH_TIKTOK_ENDPOINT" default:"https://business-api.tiktok.com/open_api/v1.3/event/track"`
	GoogleEndpoint     string   `envconfig:"DISPATCH_GOOGLE_ENDPOINT" default:"https://www.google-analytics.com/mp/collect"`
	DegradedLatencyMS  int      `envconfig:"DISPATCH_DEGRADED_LATENCY_MS" default:"750"`
	DownSilenceMinutes int      `envconfig:"DISPATCH_DOWN_SILENCE_MINUTES" default:"10"`
}

type Metrics struct {
	BucketSizeSec    int `envconfig:"METRICS_BUCKET_SIZE_SEC" default:"60"`
	RetentionHours   int `envconfig:"METRICS_RETENTION_HOURS" default:"24"`
	RecentEventsSize int `envconfig:"METRICS_RECENT_EVENTS_SIZE" default:"500"`
}

type Export struct {
	BatchSizeMax    int `envconfig:"EXPORT_BATCH_SIZE_MAX" default:"2000"`
	BatchTimeoutSec int `envconfig:"EXPORT_BATCH_TIMEOUT_SEC" default:"10"`
}

type Config struct {
	Service    Service
	SQS        SQS
	ClickHouse ClickHouse
	Oracle     Oracle
	Trust      Trust
	Bid        Bid
	Dispatch   Dispatch
	Metrics    Metrics
	Export     Export
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
