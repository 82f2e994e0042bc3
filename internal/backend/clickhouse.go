package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/config"
)

// clickhouseAdapter talks the native TCP protocol via clickhouse-go.
type clickhouseAdapter struct {
	cfg     config.SQLTargetConfig
	timeout time.Duration
	conn    driver.Conn
	logger  zerolog.Logger
}

func newClickHouseAdapter(cfg config.SQLTargetConfig, timeout time.Duration, logger zerolog.Logger) *clickhouseAdapter {
	return &clickhouseAdapter{
		cfg:     cfg,
		timeout: timeout,
		logger:  logger.With().Str("component", "clickhouse-adapter").Logger(),
	}
}

func (a *clickhouseAdapter) Connect(ctx context.Context) error {
	if a.conn != nil {
		return nil
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port)},
		Auth: clickhouse.Auth{
			Database: a.cfg.Database,
			Username: a.cfg.User,
			Password: a.cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": int(a.timeout.Seconds()),
		},
		DialTimeout:  10 * time.Second,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		return &ConnectionError{Backend: "clickhouse", Err: err}
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return &ConnectionError{Backend: "clickhouse", Err: err}
	}

	a.conn = conn
	a.logger.Debug().
		Str("host", a.cfg.Host).
		Int("port", a.cfg.Port).
		Str("database", a.cfg.Database).
		Msg("Connected to ClickHouse (native)")
	return nil
}

func (a *clickhouseAdapter) Execute(ctx context.Context, sql string) (int64, error) {
	if a.conn == nil {
		return 0, &QueryExecutionError{Backend: "clickhouse", Err: fmt.Errorf("not connected")}
	}

	rows, err := a.conn.Query(ctx, sql)
	if err != nil {
		return 0, classifyExecError("clickhouse", a.timeout, err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, classifyExecError("clickhouse", a.timeout, err)
	}
	return count, nil
}

func (a *clickhouseAdapter) Close() error {
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}
