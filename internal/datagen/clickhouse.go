package datagen

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/config"
	"github.com/siembench/siembench/internal/logger"
)

const chSecuritySchema = `
CREATE TABLE IF NOT EXISTS security_logs (
    timestamp   DateTime64(3),
    event_type  LowCardinality(String),
    status      LowCardinality(String),
    user_id     String,
    source_ip   String,
    dest_ip     String,
    host        LowCardinality(String),
    bytes_in    Int64,
    bytes_out   Int64
) ENGINE = MergeTree()
ORDER BY (event_type, timestamp)
`

const chNetworkSchema = `
CREATE TABLE IF NOT EXISTS network_logs (
    timestamp   DateTime64(3),
    src_ip      String,
    dest_ip     String,
    protocol    LowCardinality(String),
    direction   LowCardinality(String),
    bytes_total Int64,
    duration_ms Int64
) ENGINE = MergeTree()
ORDER BY timestamp
`

// clickhouse-go flushes a batch in one insert; cap batch size so very
// large generations do not hold everything in a single block.
const chBatchSize = 100000

// ClickHouseLoader creates the benchmark tables and loads synthetic events
// over the native protocol in prepared batches.
type ClickHouseLoader struct {
	cfg    config.SQLTargetConfig
	logger zerolog.Logger
}

func NewClickHouseLoader(cfg config.SQLTargetConfig) *ClickHouseLoader {
	return &ClickHouseLoader{cfg: cfg, logger: logger.Get("datagen")}
}

func (l *ClickHouseLoader) Load(ctx context.Context, secs []SecurityLog, nets []NetworkLog) error {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", l.cfg.Host, l.cfg.Port)},
		Auth: clickhouse.Auth{
			Database: l.cfg.Database,
			Username: l.cfg.User,
			Password: l.cfg.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer conn.Close()

	if err := conn.Exec(ctx, chSecuritySchema); err != nil {
		return fmt.Errorf("create security_logs: %w", err)
	}
	if err := conn.Exec(ctx, chNetworkSchema); err != nil {
		return fmt.Errorf("create network_logs: %w", err)
	}

	if err := l.loadSecurity(ctx, conn, secs); err != nil {
		return err
	}
	return l.loadNetwork(ctx, conn, nets)
}

func (l *ClickHouseLoader) loadSecurity(ctx context.Context, conn clickhouse.Conn, secs []SecurityLog) error {
	for start := 0; start < len(secs); start += chBatchSize {
		end := min(start+chBatchSize, len(secs))
		batch, err := conn.PrepareBatch(ctx, "INSERT INTO security_logs")
		if err != nil {
			return fmt.Errorf("prepare security_logs batch: %w", err)
		}
		for _, s := range secs[start:end] {
			if err := batch.Append(s.Timestamp, s.EventType, s.Status, s.UserID, s.SourceIP, s.DestIP, s.Host, s.BytesIn, s.BytesOut); err != nil {
				return fmt.Errorf("append security_logs row: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send security_logs batch: %w", err)
		}
	}
	l.logger.Info().Int("rows", len(secs)).Msg("Loaded security_logs into ClickHouse")
	return nil
}

func (l *ClickHouseLoader) loadNetwork(ctx context.Context, conn clickhouse.Conn, nets []NetworkLog) error {
	for start := 0; start < len(nets); start += chBatchSize {
		end := min(start+chBatchSize, len(nets))
		batch, err := conn.PrepareBatch(ctx, "INSERT INTO network_logs")
		if err != nil {
			return fmt.Errorf("prepare network_logs batch: %w", err)
		}
		for _, f := range nets[start:end] {
			if err := batch.Append(f.Timestamp, f.SrcIP, f.DestIP, f.Protocol, f.Direction, f.BytesTotal, f.DurationMS); err != nil {
				return fmt.Errorf("append network_logs row: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send network_logs batch: %w", err)
		}
	}
	l.logger.Info().Int("rows", len(nets)).Msg("Loaded network_logs into ClickHouse")
	return nil
}
