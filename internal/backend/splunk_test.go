package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/siembench/siembench/internal/config"
)

// fakeSplunk serves the minimal management API surface the adapter touches:
// server info, job creation, job status polling, and job results.
type fakeSplunk struct {
	statusPolls    atomic.Int32
	pollsUntilDone int32
	failJob        bool
	resultRows     int
	lastSearch     string
}

func (f *fakeSplunk) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/services/server/info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"generator": {"build": "test"}}`)
	})
	mux.HandleFunc("/services/search/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		f.lastSearch = r.PostForm.Get("search")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"sid": "job-123"}`)
	})
	mux.HandleFunc("/services/search/jobs/job-123", func(w http.ResponseWriter, r *http.Request) {
		state := "RUNNING"
		if f.statusPolls.Add(1) > f.pollsUntilDone {
			state = "DONE"
			if f.failJob {
				state = "FAILED"
			}
		}
		fmt.Fprintf(w, `{"entry": [{"content": {"dispatchState": %q}}]}`, state)
	})
	mux.HandleFunc("/services/search/jobs/job-123/results", func(w http.ResponseWriter, r *http.Request) {
		rows := make([]string, f.resultRows)
		for i := range rows {
			rows[i] = fmt.Sprintf(`{"count": %d}`, i)
		}
		fmt.Fprintf(w, `{"results": [%s]}`, strings.Join(rows, ","))
	})
	return mux
}

func splunkAdapterFor(t *testing.T, server *httptest.Server, pollMS int) *splunkAdapter {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	return newSplunkAdapter(config.SplunkConfig{
		Host:               host,
		Port:               port,
		User:               "admin",
		Password:           "changeme",
		Connection:         "postgresql_conn",
		PollIntervalMS:     pollMS,
		InsecureSkipVerify: true,
	}, 10*time.Second, zerolog.Nop())
}

func TestSplunkExecute(t *testing.T) {
	fake := &fakeSplunk{pollsUntilDone: 2, resultRows: 3}
	server := httptest.NewTLSServer(fake.handler())
	defer server.Close()

	a := splunkAdapterFor(t, server, 10)
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer a.Close()

	rows, err := a.Execute(context.Background(), "SELECT COUNT(*) FROM security_logs")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rows != 3 {
		t.Errorf("rows = %d, want 3", rows)
	}

	if !strings.Contains(fake.lastSearch, "| dbxquery") {
		t.Errorf("search = %q, want dbxquery wrapping", fake.lastSearch)
	}
	if !strings.Contains(fake.lastSearch, `connection="postgresql_conn"`) {
		t.Errorf("search = %q, want connection name", fake.lastSearch)
	}
	if !strings.Contains(fake.lastSearch, "SELECT COUNT(*) FROM security_logs") {
		t.Errorf("search = %q, want the SQL text", fake.lastSearch)
	}

	// Two RUNNING polls before DONE means two poll sleeps were accumulated.
	if a.DispatchWait() < 20*time.Millisecond {
		t.Errorf("dispatch wait = %v, want at least two 10ms poll sleeps", a.DispatchWait())
	}
}

func TestSplunkExecuteResetsDispatchWait(t *testing.T) {
	fake := &fakeSplunk{pollsUntilDone: 1, resultRows: 1}
	server := httptest.NewTLSServer(fake.handler())
	defer server.Close()

	a := splunkAdapterFor(t, server, 10)
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer a.Close()

	if _, err := a.Execute(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	first := a.DispatchWait()

	// Second job completes on the first poll, so its wait is zero.
	fake.statusPolls.Store(0)
	fake.pollsUntilDone = 0
	if _, err := a.Execute(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if first == 0 {
		t.Error("first execution should have accumulated poll wait")
	}
	if a.DispatchWait() != 0 {
		t.Errorf("dispatch wait = %v after immediate completion, want 0", a.DispatchWait())
	}
}

func TestSplunkJobFailure(t *testing.T) {
	fake := &fakeSplunk{pollsUntilDone: 0, failJob: true}
	server := httptest.NewTLSServer(fake.handler())
	defer server.Close()

	a := splunkAdapterFor(t, server, 10)
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer a.Close()

	_, err := a.Execute(context.Background(), "SELECT 1")
	var execErr *QueryExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %T (%v), want QueryExecutionError", err, err)
	}
	if !strings.Contains(err.Error(), "failed") {
		t.Errorf("error = %v", err)
	}
}

func TestSplunkExecuteTimeout(t *testing.T) {
	// Job never leaves RUNNING; the caller's deadline has to end the wait.
	fake := &fakeSplunk{pollsUntilDone: 1 << 30}
	server := httptest.NewTLSServer(fake.handler())
	defer server.Close()

	a := splunkAdapterFor(t, server, 10)
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_, err := a.Execute(ctx, "SELECT 1")
	var timeoutErr *QueryTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %T (%v), want QueryTimeoutError", err, err)
	}
}

func TestSplunkExecuteWithoutConnect(t *testing.T) {
	a := newSplunkAdapter(config.SplunkConfig{Host: "localhost", Port: 8089}, time.Second, zerolog.Nop())
	_, err := a.Execute(context.Background(), "SELECT 1")
	var execErr *QueryExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %T, want QueryExecutionError", err)
	}
}
