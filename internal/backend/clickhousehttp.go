package backend

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/config"
)

// clickhouseHTTPAdapter runs queries over the ClickHouse HTTP interface,
// one stateless POST per query. Responses use JSONEachRow so the row count
// is the number of lines, which lets the body be consumed incrementally
// instead of buffered whole.
type clickhouseHTTPAdapter struct {
	cfg     config.HTTPTargetConfig
	timeout time.Duration
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

func newClickHouseHTTPAdapter(cfg config.HTTPTargetConfig, timeout time.Duration, logger zerolog.Logger) *clickhouseHTTPAdapter {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return &clickhouseHTTPAdapter{
		cfg:     cfg,
		timeout: timeout,
		baseURL: fmt.Sprintf("%s://%s:%d/", scheme, cfg.Host, cfg.Port),
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        2,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: logger.With().Str("component", "clickhouse-http-adapter").Logger(),
	}
}

func (a *clickhouseHTTPAdapter) Connect(ctx context.Context) error {
	// Stateless protocol; a probe query stands in for a session handshake.
	if _, err := a.run(ctx, "SELECT 1"); err != nil {
		return &ConnectionError{Backend: "clickhouse-http", Err: err}
	}
	a.logger.Debug().Str("url", a.baseURL).Msg("ClickHouse HTTP endpoint reachable")
	return nil
}

func (a *clickhouseHTTPAdapter) Execute(ctx context.Context, sql string) (int64, error) {
	count, err := a.run(ctx, sql)
	if err != nil {
		return 0, classifyExecError("clickhouse-http", a.timeout, err)
	}
	return count, nil
}

func (a *clickhouseHTTPAdapter) run(ctx context.Context, sql string) (int64, error) {
	params := url.Values{}
	params.Set("database", a.cfg.Database)
	params.Set("default_format", "JSONEachRow")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"?"+params.Encode(), strings.NewReader(sql))
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-ClickHouse-User", a.cfg.User)
	if a.cfg.Password != "" {
		req.Header.Set("X-ClickHouse-Key", a.cfg.Password)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return countLines(resp.Body)
}

// countLines counts newline-terminated rows without holding more than one
// buffered chunk in memory at a time.
func countLines(r io.Reader) (int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var count int64
	for {
		chunk, err := br.ReadSlice('\n')
		switch err {
		case nil:
			count++
		case bufio.ErrBufferFull:
			// Long row; keep draining until its newline.
			continue
		case io.EOF:
			// Trailing row without a final newline.
			if len(chunk) > 0 {
				count++
			}
			return count, nil
		default:
			return count, err
		}
	}
}

func (a *clickhouseHTTPAdapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}
