package datagen

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/config"
	"github.com/siembench/siembench/internal/logger"
)

const pgSecuritySchema = `
CREATE TABLE IF NOT EXISTS security_logs (
    timestamp   TIMESTAMPTZ NOT NULL,
    event_type  TEXT NOT NULL,
    status      TEXT NOT NULL,
    user_id     TEXT NOT NULL,
    source_ip   TEXT NOT NULL,
    dest_ip     TEXT NOT NULL,
    host        TEXT NOT NULL,
    bytes_in    BIGINT NOT NULL,
    bytes_out   BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_security_logs_timestamp ON security_logs (timestamp);
CREATE INDEX IF NOT EXISTS idx_security_logs_event_type ON security_logs (event_type);
`

const pgNetworkSchema = `
CREATE TABLE IF NOT EXISTS network_logs (
    timestamp   TIMESTAMPTZ NOT NULL,
    src_ip      TEXT NOT NULL,
    dest_ip     TEXT NOT NULL,
    protocol    TEXT NOT NULL,
    direction   TEXT NOT NULL,
    bytes_total BIGINT NOT NULL,
    duration_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_network_logs_timestamp ON network_logs (timestamp);
`

// PostgresLoader creates the benchmark tables and bulk-loads synthetic
// events over the COPY protocol.
type PostgresLoader struct {
	cfg    config.SQLTargetConfig
	logger zerolog.Logger
}

func NewPostgresLoader(cfg config.SQLTargetConfig) *PostgresLoader {
	return &PostgresLoader{cfg: cfg, logger: logger.Get("datagen")}
}

func (l *PostgresLoader) Load(ctx context.Context, secs []SecurityLog, nets []NetworkLog) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		l.cfg.User, l.cfg.Password, l.cfg.Host, l.cfg.Port, l.cfg.Database)
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, pgSecuritySchema); err != nil {
		return fmt.Errorf("create security_logs: %w", err)
	}
	if _, err := conn.Exec(ctx, pgNetworkSchema); err != nil {
		return fmt.Errorf("create network_logs: %w", err)
	}

	secRows := make([][]any, len(secs))
	for i, s := range secs {
		secRows[i] = []any{s.Timestamp, s.EventType, s.Status, s.UserID, s.SourceIP, s.DestIP, s.Host, s.BytesIn, s.BytesOut}
	}
	n, err := conn.CopyFrom(ctx,
		pgx.Identifier{"security_logs"},
		[]string{"timestamp", "event_type", "status", "user_id", "source_ip", "dest_ip", "host", "bytes_in", "bytes_out"},
		pgx.CopyFromRows(secRows))
	if err != nil {
		return fmt.Errorf("copy security_logs: %w", err)
	}
	l.logger.Info().Int64("rows", n).Msg("Loaded security_logs into PostgreSQL")

	netRows := make([][]any, len(nets))
	for i, f := range nets {
		netRows[i] = []any{f.Timestamp, f.SrcIP, f.DestIP, f.Protocol, f.Direction, f.BytesTotal, f.DurationMS}
	}
	n, err = conn.CopyFrom(ctx,
		pgx.Identifier{"network_logs"},
		[]string{"timestamp", "src_ip", "dest_ip", "protocol", "direction", "bytes_total", "duration_ms"},
		pgx.CopyFromRows(netRows))
	if err != nil {
		return fmt.Errorf("copy network_logs: %w", err)
	}
	l.logger.Info().Int64("rows", n).Msg("Loaded network_logs into PostgreSQL")
	return nil
}
