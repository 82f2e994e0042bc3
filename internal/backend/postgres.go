package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/config"
)

// postgresAdapter is the direct-SQL adapter for PostgreSQL. One connection
// per target for the duration of the run.
type postgresAdapter struct {
	cfg     config.SQLTargetConfig
	timeout time.Duration
	conn    *pgx.Conn
	logger  zerolog.Logger
}

func newPostgresAdapter(cfg config.SQLTargetConfig, timeout time.Duration, logger zerolog.Logger) *postgresAdapter {
	return &postgresAdapter{
		cfg:     cfg,
		timeout: timeout,
		logger:  logger.With().Str("component", "postgres-adapter").Logger(),
	}
}

func (a *postgresAdapter) Connect(ctx context.Context) error {
	if a.conn != nil {
		return nil
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		a.cfg.User, a.cfg.Password, a.cfg.Host, a.cfg.Port, a.cfg.Database)

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return &ConnectionError{Backend: "postgresql", Err: err}
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return &ConnectionError{Backend: "postgresql", Err: err}
	}

	a.conn = conn
	a.logger.Debug().
		Str("host", a.cfg.Host).
		Int("port", a.cfg.Port).
		Str("database", a.cfg.Database).
		Msg("Connected to PostgreSQL")
	return nil
}

func (a *postgresAdapter) Execute(ctx context.Context, sql string) (int64, error) {
	if a.conn == nil {
		return 0, &QueryExecutionError{Backend: "postgresql", Err: fmt.Errorf("not connected")}
	}

	rows, err := a.conn.Query(ctx, sql)
	if err != nil {
		return 0, classifyExecError("postgresql", a.timeout, err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, classifyExecError("postgresql", a.timeout, err)
	}
	return count, nil
}

func (a *postgresAdapter) Close() error {
	if a.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.conn.Close(ctx)
	a.conn = nil
	return err
}
