package livescore

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/h2h-insight/internal/domain/fixture"
	"github.com/riskibarqy/h2h-insight/internal/domain/h2h"
	"github.com/riskibarqy/h2h-insight/internal/platform/logging"
	"github.com/riskibarqy/h2h-insight/internal/platform/metrics"
	"github.com/riskibarqy/h2h-insight/internal/platform/resilience"
	"github.com/riskibarqy/h2h-insight/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL      = "https://24live.com/api"
	defaultSportID      = 22
	defaultLang         = "en"
	defaultH2HLimit     = 5
	defaultRetryBackoff = time.Second

	providerDateTimeLayout = "2006-01-02 15:04:05"
	userAgent              = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	endpointMatchList   = "match_list"
	endpointMatchDetail = "match_detail"
)

var errLivescoreTransient = crerr.New("livescore transient failure")

// ClientConfig configures the livescore client. RateLimit caps provider
// requests per second and 0 disables the limiter.
type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	SportID        int64
	Lang           string
	H2HLimit       int
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	RateLimit      float64
	RateBurst      int
	Logger         *logging.Logger
	Metrics        *metrics.Recorder
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads fixtures and head-to-head bundles from the livescore API. It
// satisfies both fixture.Source and h2h.Source.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	origin       string
	sportID      int64
	lang         string
	h2hLimit     int
	maxRetries   int
	retryBackoff time.Duration
	logger       *logging.Logger
	metrics      *metrics.Recorder
	breaker      *resilience.CircuitBreaker
	limiter      *rate.Limiter
	flight       singleflight.Group
}

var (
	_ fixture.Source = (*Client)(nil)
	_ h2h.Source     = (*Client)(nil)
)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	sportID := cfg.SportID
	if sportID <= 0 {
		sportID = defaultSportID
	}
	lang := strings.TrimSpace(cfg.Lang)
	if lang == "" {
		lang = defaultLang
	}
	h2hLimit := cfg.H2HLimit
	if h2hLimit <= 0 {
		h2hLimit = defaultH2HLimit
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		origin:       originOf(baseURL),
		sportID:      sportID,
		lang:         lang,
		h2hLimit:     h2hLimit,
		maxRetries:   maxInt(cfg.MaxRetries, 0),
		retryBackoff: retryBackoff,
		logger:       logger,
		metrics:      cfg.Metrics,
		breaker:      resilience.NewCircuitBreakerFromConfig("livescore", cfg.CircuitBreaker),
		limiter:      newLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

// ListUpcoming returns not-yet-started fixtures in the query's sub-tournaments
// whose start falls inside [From, To].
func (c *Client) ListUpcoming(ctx context.Context, query fixture.Query) ([]fixture.Fixture, error) {
	if len(query.SubTournamentIDs) == 0 {
		return nil, fmt.Errorf("%w: sub-tournament ids are required", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/match-list-data/%d", c.sportID)
	params := map[string]string{
		"lang":             c.lang,
		"type":             "not_started",
		"subtournamentIds": joinIDs(query.SubTournamentIDs),
		"sort":             "alpha",
		"short":            "0",
		"from":             query.From.UTC().Format(providerDateTimeLayout),
		"to":               query.To.UTC().Format(providerDateTimeLayout),
	}

	started := time.Now()
	raw, err := c.doRequest(ctx, path, params)
	c.metrics.ObserveProviderRequest(endpointMatchList, started, err)
	if err != nil {
		return nil, fmt.Errorf("fetch match list: %w", err)
	}

	items, err := decodeMatchList(raw)
	if err != nil {
		return nil, crerr.Wrap(err, "decode match list")
	}

	out := make([]fixture.Fixture, 0, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			continue
		}
		out = append(out, mapFixture(item))
	}
	return out, nil
}

// FetchByFixture returns the head-to-head bundle for one fixture. Missing
// sections decode as empty lists.
func (c *Client) FetchByFixture(ctx context.Context, fixtureID int64) (h2h.Record, error) {
	if fixtureID <= 0 {
		return h2h.Record{}, fmt.Errorf("%w: fixture id must be greater than zero", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/match/%d", fixtureID)
	params := map[string]string{
		"lang":     c.lang,
		"short":    "0",
		"h2hlimit": strconv.Itoa(c.h2hLimit),
	}

	started := time.Now()
	raw, err := c.doRequest(ctx, path, params)
	c.metrics.ObserveProviderRequest(endpointMatchDetail, started, err)
	if err != nil {
		return h2h.Record{}, fmt.Errorf("fetch match detail fixture_id=%d: %w", fixtureID, err)
	}

	var detail matchDetailEnvelope
	if err := sonic.Unmarshal(raw, &detail); err != nil {
		return h2h.Record{}, crerr.Wrapf(err, "decode match detail fixture_id=%d", fixtureID)
	}
	return mapRecord(detail), nil
}

func (c *Client) doRequest(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "livescore circuit breaker rejected request", "state", c.breaker.State())
		return nil, fmt.Errorf("%w: livescore provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if reqErr != nil && isLivescoreCircuitFailure(reqErr) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
		return raw, reqErr
	})
	if err != nil {
		return nil, err
	}

	raw, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	return raw, nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("wait for livescore rate limiter: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, crerr.Wrap(err, "build livescore request")
		}
		c.setBrowserHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errLivescoreTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errLivescoreTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errLivescoreTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "livescore request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// The provider rejects generic server traffic, so requests look like the
// public site's own XHR calls.
func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", c.origin+"/")
	req.Header.Set("Origin", c.origin)
}

func decodeMatchList(raw []byte) ([]matchItem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []matchItem
		if err := sonic.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope matchListEnvelope
	if err := sonic.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	return envelope.Matches, nil
}

func mapFixture(item matchItem) fixture.Fixture {
	out := fixture.Fixture{
		ID:              item.ID,
		Tournament:      firstNonEmpty(item.SubTournamentName, item.CategoryName),
		SubTournamentID: item.SubTournamentID,
		Home:            fixture.Participant{Role: fixture.RoleHome},
		Away:            fixture.Participant{Role: fixture.RoleAway},
	}
	if parsed := parseProviderDateTime(item.StartDate); parsed != nil {
		out.StartAt = *parsed
	}

	for _, participant := range item.Participants {
		role, ok := fixture.ParseRole(participant.Type)
		if !ok {
			continue
		}
		mapped := fixture.Participant{
			Role:      role,
			Name:      strings.TrimSpace(participant.Name),
			ShortName: strings.TrimSpace(firstNonEmpty(participant.NameShort, participant.Name)),
		}
		switch role {
		case fixture.RoleHome:
			if out.Home.Name == "" {
				out.Home = mapped
			}
		case fixture.RoleAway:
			if out.Away.Name == "" {
				out.Away = mapped
			}
		}
	}
	return out
}

func mapRecord(detail matchDetailEnvelope) h2h.Record {
	total := detail.H2H.Total
	record := h2h.Record{
		Meetings:    make([]h2h.Meeting, 0, len(total.Meetings)),
		HomeHistory: mapHistory(total.HomeTeam),
		AwayHistory: mapHistory(total.AwayTeam),
	}
	for _, item := range total.Meetings {
		meeting := h2h.Meeting{
			ID:        int64(item.ID),
			HomeName:  string(item.HomeTeam),
			AwayName:  string(item.AwayTeam),
			HomeScore: item.Score.HomeTeam.value(),
			AwayScore: item.Score.AwayTeam.value(),
		}
		if parsed := parseProviderDateTime(firstNonEmpty(string(item.Date), string(item.StartDate))); parsed != nil {
			meeting.PlayedAt = *parsed
		}
		record.Meetings = append(record.Meetings, meeting)
	}
	return record
}

func mapHistory(items []formItem) []h2h.FormEntry {
	out := make([]h2h.FormEntry, 0, len(items))
	for _, item := range items {
		entry := h2h.FormEntry{Badge: h2h.ParseBadge(string(item.Badge))}
		if parsed := parseProviderDateTime(firstNonEmpty(string(item.Date), string(item.StartDate))); parsed != nil {
			entry.PlayedAt = *parsed
		}
		out = append(out, entry)
	}
	return out
}

func parseProviderDateTime(raw string) *time.Time {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}

	layouts := []string{
		providerDateTimeLayout,
		"2006-01-02T15:04:05Z07:00",
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			v := parsed.UTC()
			return &v
		}
	}

	if unix, err := strconv.ParseInt(value, 10, 64); err == nil && unix > 0 {
		v := time.Unix(unix, 0).UTC()
		return &v
	}
	return nil
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), maxInt(burst, 1))
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

func originOf(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "https://24live.com"
	}
	return parsed.Scheme + "://" + parsed.Host
}

func isLivescoreCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errLivescoreTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
