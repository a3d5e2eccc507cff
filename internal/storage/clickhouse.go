package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseConfig holds ClickHouse connection configuration.
type ClickHouseConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Database     string        `yaml:"database"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	Secure       bool          `yaml:"secure"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnTimeout  time.Duration `yaml:"conn_timeout"`
}

// ClickHouseAnalytics is the hand-settlement analytics sink. The teacher's
// ClickHouseAnalytics also recorded fraud, session, and table-stats streams
// and served a dozen query endpoints for an operator dashboard; poker-core
// has no such dashboard, so this keeps only the write path TableRecorder
// actually drives, one insert per awarded seat at hand completion.
type ClickHouseAnalytics struct {
	db clickhouse.Conn
}

// NewClickHouseAnalytics creates a new ClickHouse analytics repository.
func NewClickHouseAnalytics(ctx context.Context, config ClickHouseConfig) (*ClickHouseAnalytics, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", config.Host, config.Port)},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		TLS: &tls.Config{InsecureSkipVerify: config.Secure},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseAnalytics{db: conn}, nil
}

// CreateTables creates the hand analytics table if it doesn't exist.
func (ch *ClickHouseAnalytics) CreateTables(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS hand_analytics (
		event_id String,
		event_type String,
		hand_id String,
		table_id String,
		game_type String,
		player_id String,
		chips_after Int64,
		timestamp DateTime64(3)
	) ENGINE = ReplacingMergeTree(timestamp)
	ORDER BY (hand_id, player_id, timestamp)`

	if err := ch.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create hand_analytics table: %w", err)
	}
	return nil
}

// RecordHandEvent records one player's settlement row for a completed hand.
func (ch *ClickHouseAnalytics) RecordHandEvent(ctx context.Context, event *HandAnalyticsEvent) error {
	query := `
		INSERT INTO hand_analytics (
			event_id, event_type, hand_id, table_id, game_type, player_id, chips_after, timestamp
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	return ch.db.Exec(ctx, query,
		event.EventID, event.EventType, event.HandID, event.TableID,
		event.GameType, event.PlayerID, event.ChipsAfter, event.Timestamp,
	)
}

// Close closes the ClickHouse connection.
func (ch *ClickHouseAnalytics) Close() error {
	return ch.db.Close()
}

// Ping checks if the connection is alive.
func (ch *ClickHouseAnalytics) Ping(ctx context.Context) error {
	return ch.db.Ping(ctx)
}
