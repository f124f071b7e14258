package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/h2h-insight/internal/config"
	"github.com/riskibarqy/h2h-insight/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	shipperQueueSize      = 1024
	shipperBatchSize      = 50
	shipperFlushInterval  = time.Second
	shipperDefaultTimeout = 3 * time.Second
	shipperDrainTimeout   = 5 * time.Second
)

// InitBetterStackLogger returns base teed into a Better Stack HTTP ingest
// core. Records below BETTERSTACK_MIN_LEVEL only reach stdout.
func InitBetterStackLogger(cfg config.Config, base *logging.Logger) (*logging.Logger, ShutdownFunc, error) {
	if base == nil {
		base = logging.NewJSON(cfg.LogLevel)
	}
	if !cfg.BetterStackEnabled {
		base.Info("betterstack disabled", "reason", "BETTERSTACK_ENABLED=false")
		return base, noopShutdown, nil
	}

	endpoint := normalizeBetterStackEndpoint(cfg.BetterStackEndpoint)
	if endpoint == "" {
		return nil, nil, crerr.New("betterstack endpoint cannot be empty")
	}

	shipper := newLogShipper(endpoint, strings.TrimSpace(cfg.BetterStackToken), cfg.BetterStackTimeout)
	remote := zapcore.NewCore(
		zapcore.NewJSONEncoder(logging.EncoderConfig()),
		zapcore.AddSync(shipper),
		cfg.BetterStackMinLevel,
	).With([]zapcore.Field{
		zap.String("service", cfg.ServiceName),
		zap.String("env", cfg.AppEnv),
	})

	logger := logging.FromZap(base.Zap().WithOptions(zap.WrapCore(func(local zapcore.Core) zapcore.Core {
		return zapcore.NewTee(local, remote)
	})))
	logger.Info("betterstack enabled",
		"endpoint", endpoint,
		"min_level", cfg.BetterStackMinLevel.String(),
	)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := withDrainDeadline(ctx)
		defer cancel()
		if err := shipper.Close(ctx); err != nil {
			return crerr.Wrap(err, "drain betterstack queue")
		}
		if err := logger.Sync(); err != nil && !isIgnorableLoggerSyncError(err) {
			return err
		}
		return nil
	}
	return logger, shutdown, nil
}

// withDrainDeadline bounds ctx when the caller did not.
func withDrainDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, shipperDrainTimeout)
}

// normalizeBetterStackEndpoint accepts a bare ingest host as shown in the
// Better Stack source settings and defaults it to https.
func normalizeBetterStackEndpoint(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if u, err := url.Parse(value); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return value
	}
	return "https://" + value
}

// logShipper is a zapcore.WriteSyncer that never blocks the caller. Encoded
// records are queued and posted as JSON arrays by one background goroutine;
// records that do not fit in the queue are dropped and counted.
type logShipper struct {
	endpoint string
	token    string
	client   *http.Client

	mu      sync.RWMutex
	queue   chan []byte
	closed  bool
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

func newLogShipper(endpoint, token string, timeout time.Duration) *logShipper {
	if timeout <= 0 {
		timeout = shipperDefaultTimeout
	}
	s := &logShipper{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		queue:    make(chan []byte, shipperQueueSize),
		done:     make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *logShipper) Write(p []byte) (int, error) {
	record := bytes.TrimSpace(p)
	if len(record) == 0 {
		return len(p), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return len(p), nil
	}

	// zap reuses p once Write returns.
	select {
	case s.queue <- bytes.Clone(record):
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			fmt.Fprintf(os.Stderr, "betterstack queue full; dropped logs=%d\n", n)
		}
	}
	return len(p), nil
}

func (s *logShipper) Sync() error { return nil }

func (s *logShipper) loop() {
	defer close(s.done)

	ticker := time.NewTicker(shipperFlushInterval)
	defer ticker.Stop()

	pending := make([][]byte, 0, shipperBatchSize)
	flush := func() {
		if len(pending) > 0 {
			s.post(pending)
			pending = pending[:0]
		}
	}

	for {
		select {
		case record, ok := <-s.queue:
			if !ok {
				flush()
				return
			}
			if pending = append(pending, record); len(pending) == shipperBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// writeJSONArray joins already-encoded JSON objects into one array.
func writeJSONArray(buf *bytebufferpool.ByteBuffer, records [][]byte) {
	_ = buf.WriteByte('[')
	for i, record := range records {
		if i > 0 {
			_ = buf.WriteByte(',')
		}
		_, _ = buf.Write(record)
	}
	_ = buf.WriteByte(']')
}

func (s *logShipper) post(records [][]byte) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	writeJSONArray(buf, records)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, s.endpoint, bytes.NewReader(buf.B))
	if err != nil {
		fmt.Fprintf(os.Stderr, "betterstack build request: %v\n", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "betterstack post records=%d: %v\n", len(records), err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		fmt.Fprintf(os.Stderr, "betterstack post records=%d: status=%d\n", len(records), resp.StatusCode)
	}
}

// Close stops accepting records and waits for the queue to drain or ctx to
// end, whichever comes first.
func (s *logShipper) Close(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isIgnorableLoggerSyncError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "bad file descriptor") || strings.Contains(msg, "invalid argument")
}
