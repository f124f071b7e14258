package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/h2h-insight/internal/config"
	"github.com/riskibarqy/h2h-insight/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
)

type betterStackRecorder struct {
	mu       sync.Mutex
	requests int
	records  []map[string]any
	auth     string
}

func (r *betterStackRecorder) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var batch []map[string]any
		if err := sonic.Unmarshal(body, &batch); err != nil {
			t.Errorf("expected json array batch, got %q: %v", string(body), err)
		}

		r.mu.Lock()
		r.requests++
		r.records = append(r.records, batch...)
		r.auth = req.Header.Get("Authorization")
		r.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}
}

func newBetterStackConfig(endpoint string) config.Config {
	return config.Config{
		BetterStackEnabled:  true,
		BetterStackEndpoint: endpoint,
		BetterStackToken:    "secret-token",
		BetterStackTimeout:  2 * time.Second,
		BetterStackMinLevel: logging.LevelError,
		ServiceName:         "h2h-insight-api",
		AppEnv:              config.EnvDev,
	}
}

func TestInitBetterStackLogger_ShipsErrorBatch(t *testing.T) {
	t.Parallel()

	recorder := &betterStackRecorder{}
	server := httptest.NewServer(recorder.handler(t))
	defer server.Close()

	logger, shutdown, err := InitBetterStackLogger(newBetterStackConfig(server.URL), logging.NewNop())
	if err != nil {
		t.Fatalf("init betterstack logger: %v", err)
	}

	logger.ErrorContext(context.Background(), "stats cycle failed", "component", "usecase")
	logger.Error("provider unreachable", "endpoint", "match_detail")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown logger: %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.requests == 0 {
		t.Fatalf("expected Better Stack endpoint to receive at least 1 request")
	}
	if len(recorder.records) != 2 {
		t.Fatalf("unexpected shipped record count: got=%d want=%d", len(recorder.records), 2)
	}
	if recorder.records[0]["service"] != "h2h-insight-api" {
		t.Fatalf("expected service field on shipped record, got %v", recorder.records[0]["service"])
	}
	if recorder.auth != "Bearer secret-token" {
		t.Fatalf("unexpected authorization header: %q", recorder.auth)
	}
}

func TestInitBetterStackLogger_RespectsMinLevel(t *testing.T) {
	t.Parallel()

	recorder := &betterStackRecorder{}
	server := httptest.NewServer(recorder.handler(t))
	defer server.Close()

	logger, shutdown, err := InitBetterStackLogger(newBetterStackConfig(server.URL), logging.NewNop())
	if err != nil {
		t.Fatalf("init betterstack logger: %v", err)
	}

	logger.InfoContext(context.Background(), "info log should not be shipped")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown logger: %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.requests != 0 {
		t.Fatalf("expected no request for info log, got %d", recorder.requests)
	}
}

func TestWriteJSONArray(t *testing.T) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	writeJSONArray(buf, [][]byte{[]byte(`{"msg":"a"}`), []byte(`{"msg":"b"}`)})
	if got := buf.String(); got != `[{"msg":"a"},{"msg":"b"}]` {
		t.Fatalf("unexpected batch: %s", got)
	}
}

func TestNormalizeBetterStackEndpoint(t *testing.T) {
	tests := map[string]string{
		"in.logs.betterstack.com":         "https://in.logs.betterstack.com",
		" http://localhost:9000 ":         "http://localhost:9000",
		"https://in.logs.betterstack.com": "https://in.logs.betterstack.com",
		"":                                "",
	}
	for raw, want := range tests {
		if got := normalizeBetterStackEndpoint(raw); !strings.EqualFold(got, want) {
			t.Fatalf("normalizeBetterStackEndpoint(%q) got=%q want=%q", raw, got, want)
		}
	}
}

func TestLogShipper_DropsWritesAfterClose(t *testing.T) {
	t.Parallel()

	recorder := &betterStackRecorder{}
	server := httptest.NewServer(recorder.handler(t))
	defer server.Close()

	shipper := newLogShipper(server.URL, "", 0)
	if err := shipper.Close(context.Background()); err != nil {
		t.Fatalf("close shipper: %v", err)
	}
	if n, err := shipper.Write([]byte(`{"msg":"late"}`)); err != nil || n != len(`{"msg":"late"}`) {
		t.Fatalf("unexpected write after close: n=%d err=%v", n, err)
	}
	if err := shipper.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.requests != 0 {
		t.Fatalf("expected no requests, got %d", recorder.requests)
	}
}

func TestWithDrainDeadline(t *testing.T) {
	ctx, cancel := withDrainDeadline(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Fatalf("expected a default drain deadline")
	}

	parent, parentCancel := context.WithTimeout(context.Background(), time.Minute)
	defer parentCancel()
	want, _ := parent.Deadline()
	got, release := withDrainDeadline(parent)
	defer release()
	if deadline, _ := got.Deadline(); !deadline.Equal(want) {
		t.Fatalf("expected caller deadline to be kept: got=%s want=%s", deadline, want)
	}
}
