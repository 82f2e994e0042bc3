package backend

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/config"
)

// splunkAdapter measures queries routed through Splunk DB Connect. Each
// Execute submits a `| dbxquery` search job over the management REST API,
// polls the dispatch state until the job completes, then fetches the result
// set. The scheduling round-trips are part of what this backend's latency
// legitimately includes; the poll sleep time is tracked separately so the
// caller can subtract it when exclude_dispatch_wait is configured.
type splunkAdapter struct {
	cfg       config.SplunkConfig
	timeout   time.Duration
	client    *http.Client
	baseURL   string
	connected bool
	lastWait  time.Duration
	logger    zerolog.Logger
}

func newSplunkAdapter(cfg config.SplunkConfig, timeout time.Duration, logger zerolog.Logger) *splunkAdapter {
	transport := &http.Transport{}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &splunkAdapter{
		cfg:     cfg,
		timeout: timeout,
		baseURL: fmt.Sprintf("https://%s:%d", cfg.Host, cfg.Port),
		client:  &http.Client{Transport: transport},
		logger:  logger.With().Str("component", "splunk-adapter").Logger(),
	}
}

func (a *splunkAdapter) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		a.baseURL+"/services/server/info?output_mode=json", nil)
	if err != nil {
		return &ConnectionError{Backend: "splunk", Err: err}
	}
	req.SetBasicAuth(a.cfg.User, a.cfg.Password)

	resp, err := a.client.Do(req)
	if err != nil {
		return &ConnectionError{Backend: "splunk", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ConnectionError{Backend: "splunk",
			Err: fmt.Errorf("server info returned status %d", resp.StatusCode)}
	}

	a.connected = true
	a.logger.Debug().Str("url", a.baseURL).Str("connection", a.cfg.Connection).
		Msg("Connected to Splunk management API")
	return nil
}

func (a *splunkAdapter) Execute(ctx context.Context, sqlText string) (int64, error) {
	if !a.connected {
		return 0, &QueryExecutionError{Backend: "splunk", Err: fmt.Errorf("not connected")}
	}
	a.lastWait = 0

	sid, err := a.createJob(ctx, sqlText)
	if err != nil {
		return 0, classifyExecError("splunk", a.timeout, err)
	}

	if err := a.waitForJob(ctx, sid); err != nil {
		return 0, classifyExecError("splunk", a.timeout, err)
	}

	count, err := a.fetchResultCount(ctx, sid)
	if err != nil {
		return 0, classifyExecError("splunk", a.timeout, err)
	}
	return count, nil
}

// DispatchWait reports the time the most recent Execute spent sleeping
// between dispatch-state polls.
func (a *splunkAdapter) DispatchWait() time.Duration {
	return a.lastWait
}

func (a *splunkAdapter) createJob(ctx context.Context, sqlText string) (string, error) {
	search := fmt.Sprintf(`| dbxquery connection=%q query=%q`, a.cfg.Connection, sqlText)

	form := url.Values{}
	form.Set("search", search)
	form.Set("output_mode", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/services/search/jobs", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(a.cfg.User, a.cfg.Password)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("search job creation returned status %d: %s",
			resp.StatusCode, truncate(string(body), 200))
	}

	var job struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(body, &job); err != nil {
		return "", fmt.Errorf("failed to parse job response: %w", err)
	}
	if job.SID == "" {
		return "", fmt.Errorf("search job response missing sid")
	}
	return job.SID, nil
}

func (a *splunkAdapter) waitForJob(ctx context.Context, sid string) error {
	interval := time.Duration(a.cfg.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = 2 * time.Second
	}

	for {
		state, err := a.jobState(ctx, sid)
		if err != nil {
			return err
		}
		switch state {
		case "DONE":
			return nil
		case "FAILED":
			return fmt.Errorf("search job %s failed", sid)
		}

		sleepStart := time.Now()
		select {
		case <-ctx.Done():
			a.lastWait += time.Since(sleepStart)
			return ctx.Err()
		case <-time.After(interval):
			a.lastWait += time.Since(sleepStart)
		}
	}
}

func (a *splunkAdapter) jobState(ctx context.Context, sid string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/services/search/jobs/%s?output_mode=json", a.baseURL, url.PathEscape(sid)), nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(a.cfg.User, a.cfg.Password)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("job status returned status %d", resp.StatusCode)
	}

	var status struct {
		Entry []struct {
			Content struct {
				DispatchState string `json:"dispatchState"`
			} `json:"content"`
		} `json:"entry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to parse job status: %w", err)
	}
	if len(status.Entry) == 0 {
		return "", fmt.Errorf("job status response missing entry")
	}
	return status.Entry[0].Content.DispatchState, nil
}

func (a *splunkAdapter) fetchResultCount(ctx context.Context, sid string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/services/search/jobs/%s/results?output_mode=json&count=0",
			a.baseURL, url.PathEscape(sid)), nil)
	if err != nil {
		return 0, err
	}
	req.SetBasicAuth(a.cfg.User, a.cfg.Password)

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("job results returned status %d", resp.StatusCode)
	}

	var results struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return 0, fmt.Errorf("failed to parse job results: %w", err)
	}
	return int64(len(results.Results)), nil
}

func (a *splunkAdapter) Close() error {
	a.connected = false
	a.client.CloseIdleConnections()
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
