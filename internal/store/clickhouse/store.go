package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// Store persists conversion outcomes in the analytics warehouse. It backs
// both the bigquery-style platform sink (single-row conversion writes) and
// the processed-event export batcher.
type Store struct {
	client *Client
	log    *zap.Logger
}

// NewStore creates a new warehouse store.
func NewStore(client *Client, log *zap.Logger) *Store {
	return &Store{
		client: client,
		log:    log,
	}
}

// InitSchema creates the warehouse tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	conversions := `
	CREATE TABLE IF NOT EXISTS conversions (
		event_id String,
		ssi_id String,
		event_name LowCardinality(String),
		value Float64,
		timestamp Int64,
		bid_strategy LowCardinality(String),
		bid_multiplier Float64,
		received_at DateTime64(3) DEFAULT now64(3)
	) ENGINE = MergeTree()
	PRIMARY KEY (event_id)
	ORDER BY (event_id, timestamp)
	PARTITION BY toYYYYMM(toDateTime(timestamp))
	SETTINGS index_granularity = 8192
	`

	processed := `
	CREATE TABLE IF NOT EXISTS processed_events (
		event_id String,
		ssi_id String,
		event_name LowCardinality(String),
		value Float64,
		timestamp Int64,
		trust_score Float64,
		trust_action LowCardinality(String),
		trust_reason String,
		bid_strategy LowCardinality(String),
		bid_multiplier Float64,
		platforms_sent Array(String),
		processing_time_ms Int64,
		processed_at DateTime64(3)
	) ENGINE = MergeTree()
	PRIMARY KEY (event_id)
	ORDER BY (event_id, timestamp)
	PARTITION BY toYYYYMM(toDateTime(timestamp))
	SETTINGS index_granularity = 8192
	`

	if err := s.client.Conn().Exec(ctx, conversions); err != nil {
		return fmt.Errorf("failed to create conversions table: %w", err)
	}
	if err := s.client.Conn().Exec(ctx, processed); err != nil {
		return fmt.Errorf("failed to create processed_events table: %w", err)
	}

	s.log.Info("Warehouse schema initialized")
	return nil
}

// WriteConversion lands one approved conversion in the warehouse. Used by
// the bigquery platform sink.
func (s *Store) WriteConversion(ctx context.Context, event *domain.ConversionEvent, decision domain.BidDecision) error {
	query := `
	INSERT INTO conversions
		(event_id, ssi_id, event_name, value, timestamp, bid_strategy, bid_multiplier, received_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.client.Conn().Exec(ctx, query,
		event.EventID,
		event.SSIID,
		string(event.Name),
		event.Value,
		event.Timestamp.Unix(),
		string(decision.Strategy),
		decision.Multiplier,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversion: %w", err)
	}
	return nil
}

// InsertProcessedBatch writes a batch of processed-event records for
// offline analysis. Returns how many rows were appended.
func (s *Store) InsertProcessedBatch(ctx context.Context, records []*domain.RecentEvent) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch, err := s.client.Conn().PrepareBatch(ctx, "INSERT INTO processed_events")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	inserted := 0
	for _, record := range records {
		sentTo := make([]string, 0, len(record.Platforms))
		for platform, sent := range record.Platforms {
			if sent {
				sentTo = append(sentTo, string(platform))
			}
		}

		err := batch.Append(
			record.EventID,
			record.SSIID,
			string(record.Name),
			record.Value,
			record.Timestamp.Unix(),
			record.TrustScore,
			string(record.TrustAction),
			record.TrustReason,
			string(record.Strategy),
			record.Multiplier,
			sentTo,
			record.ProcessingTimeMS,
			record.ProcessedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append record to batch: %w", err)
		}
		inserted++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return inserted, nil
}

// Ping checks if the warehouse connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Conn().Ping(ctx)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.client.Close()
}
