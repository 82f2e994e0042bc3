package backend

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	_ "github.com/trinodb/trino-go-client/trino"

	"github.com/siembench/siembench/internal/config"
)

// sqlAdapter is the shared database/sql implementation behind the StarRocks
// (MySQL wire protocol) and Trino backends. The pool is pinned to a single
// connection so iterations within a series never contend with each other.
type sqlAdapter struct {
	id         string
	driverName string
	dsn        string
	timeout    time.Duration
	db         *sql.DB
	logger     zerolog.Logger
}

func newStarRocksAdapter(cfg config.SQLTargetConfig, timeout time.Duration, logger zerolog.Logger) *sqlAdapter {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
	return &sqlAdapter{
		id:         "starrocks",
		driverName: "mysql",
		dsn:        dsn,
		timeout:    timeout,
		logger:     logger.With().Str("component", "starrocks-adapter").Logger(),
	}
}

func newTrinoAdapter(cfg config.TrinoConfig, timeout time.Duration, logger zerolog.Logger) *sqlAdapter {
	dsn := fmt.Sprintf("http://%s@%s:%d?catalog=%s&schema=%s",
		cfg.User, cfg.Host, cfg.Port, cfg.Catalog, cfg.Schema)
	return &sqlAdapter{
		id:         "trino",
		driverName: "trino",
		dsn:        dsn,
		timeout:    timeout,
		logger:     logger.With().Str("component", "trino-adapter").Logger(),
	}
}

func (a *sqlAdapter) Connect(ctx context.Context) error {
	if a.db != nil {
		return nil
	}

	db, err := sql.Open(a.driverName, a.dsn)
	if err != nil {
		return &ConnectionError{Backend: a.id, Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return &ConnectionError{Backend: a.id, Err: err}
	}

	a.db = db
	a.logger.Debug().Str("driver", a.driverName).Msg("Connected")
	return nil
}

func (a *sqlAdapter) Execute(ctx context.Context, query string) (int64, error) {
	if a.db == nil {
		return 0, &QueryExecutionError{Backend: a.id, Err: fmt.Errorf("not connected")}
	}

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return 0, classifyExecError(a.id, a.timeout, err)
	}
	defer rows.Close()

	var count int64
	for rows.Next() {
		count++
	}
	if err := rows.Err(); err != nil {
		return 0, classifyExecError(a.id, a.timeout, err)
	}
	return count, nil
}

func (a *sqlAdapter) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
