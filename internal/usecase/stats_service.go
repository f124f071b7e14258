package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/h2h-insight/internal/domain/fixture"
	"github.com/riskibarqy/h2h-insight/internal/domain/h2h"
	"github.com/riskibarqy/h2h-insight/internal/domain/matchstats"
	"github.com/riskibarqy/h2h-insight/internal/platform/logging"
	"github.com/riskibarqy/h2h-insight/internal/platform/metrics"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

type StatsServiceConfig struct {
	// DefaultSubTournamentIDs scopes queries that do not name any.
	DefaultSubTournamentIDs []int64
	// MaxConcurrency caps in-flight head-to-head fetches; 0 means one
	// goroutine per fixture.
	MaxConcurrency int
	Logger         *logging.Logger
	Metrics        *metrics.Recorder
	Now            func() time.Time
}

// StatsService runs aggregation cycles: list fixtures, fetch every fixture's
// head-to-head record concurrently, and derive per-fixture statistics.
type StatsService struct {
	fixtures       fixture.Source
	records        h2h.Source
	defaultScope   []int64
	maxConcurrency int
	logger         *logging.Logger
	metrics        *metrics.Recorder
	now            func() time.Time
}

func NewStatsService(fixtures fixture.Source, records h2h.Source, cfg StatsServiceConfig) *StatsService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &StatsService{
		fixtures:       fixtures,
		records:        records,
		defaultScope:   append([]int64(nil), cfg.DefaultSubTournamentIDs...),
		maxConcurrency: maxInt(cfg.MaxConcurrency, 0),
		logger:         logger,
		metrics:        cfg.Metrics,
		now:            now,
	}
}

// Aggregation holds the per-cycle lookup maps, keyed by fixture id. Both maps
// are complete for every fixture of the cycle or the cycle failed.
type Aggregation struct {
	TallyByFixtureID  map[int64]matchstats.Tally
	RecordByFixtureID map[int64]h2h.Record
}

// Tally returns the fixture's tally, or nil when none was computed.
func (a Aggregation) Tally(fixtureID int64) *matchstats.Tally {
	tally, ok := a.TallyByFixtureID[fixtureID]
	if !ok {
		return nil
	}
	return &tally
}

// Snapshot is the read-only result of one refresh.
type Snapshot struct {
	Query       fixture.Query
	Fixtures    []fixture.Fixture
	Aggregation Aggregation
	GeneratedAt time.Time
}

// FixtureStats is the presentation row derived for one fixture.
type FixtureStats struct {
	Fixture    fixture.Fixture
	Tally      *matchstats.Tally
	HomeToday  []h2h.Badge
	AwayToday  []h2h.Badge
	HomeRecent []h2h.Badge
	AwayRecent []h2h.Badge
	GoodBet    bool
}

type Report struct {
	Query       fixture.Query
	GeneratedAt time.Time
	Fixtures    []FixtureStats
}

func (r Report) GoodBets() int {
	count := 0
	for _, row := range r.Fixtures {
		if row.GoodBet {
			count++
		}
	}
	return count
}

// Report refreshes and renders one statistics row per fixture, in the order
// the provider listed them.
func (s *StatsService) Report(ctx context.Context, query fixture.Query) (Report, error) {
	snapshot, err := s.Refresh(ctx, query)
	if err != nil {
		return Report{}, err
	}

	now := s.now()
	rows := make([]FixtureStats, 0, len(snapshot.Fixtures))
	for _, item := range snapshot.Fixtures {
		rows = append(rows, BuildFixtureStats(item, snapshot.Aggregation, now))
	}

	report := Report{
		Query:       snapshot.Query,
		GeneratedAt: snapshot.GeneratedAt,
		Fixtures:    rows,
	}
	s.metrics.SetGoodBets(report.GoodBets())
	return report, nil
}

// Refresh runs one full cycle. Any upstream failure fails the whole cycle.
func (s *StatsService) Refresh(ctx context.Context, query fixture.Query) (snapshot Snapshot, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsService.Refresh")
	defer func() { endUsecaseSpan(span, err) }()

	started := time.Now()
	fixtures := 0
	defer func() { s.metrics.ObserveRefresh(started, fixtures, err) }()

	query, err = s.resolveQuery(query)
	if err != nil {
		return Snapshot{}, err
	}

	items, err := s.fixtures.ListUpcoming(ctx, query)
	if err != nil {
		s.logger.WarnContext(ctx, "list fixtures failed", "error", err)
		return Snapshot{}, fmt.Errorf("%w: list fixtures: %w", ErrDataUnavailable, err)
	}
	fixtures = len(items)

	aggregation, err := s.Aggregate(ctx, items)
	if err != nil {
		// Records fetched before the failure are dropped so a retry sees one
		// consistent provider state.
		s.invalidateSources(ctx)
		return Snapshot{}, err
	}

	s.logger.InfoContext(ctx, "stats cycle completed",
		"fixtures", len(items),
		"sub_tournament_ids", query.SubTournamentIDs,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return Snapshot{
		Query:       query,
		Fixtures:    items,
		Aggregation: aggregation,
		GeneratedAt: s.now().UTC(),
	}, nil
}

type fetchedRecord struct {
	fixture fixture.Fixture
	record  h2h.Record
}

// Aggregate fetches every fixture's head-to-head record concurrently and
// waits for all of them to settle. If any fetch failed no maps are returned.
func (s *StatsService) Aggregate(ctx context.Context, fixtures []fixture.Fixture) (aggregation Aggregation, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsService.Aggregate",
		attribute.Int("fixtures.count", len(fixtures)),
	)
	defer func() { endUsecaseSpan(span, err) }()

	tasks := pool.NewWithResults[fetchedRecord]()
	if s.maxConcurrency > 0 {
		tasks = tasks.WithMaxGoroutines(s.maxConcurrency)
	}
	group := tasks.WithContext(ctx)

	for _, item := range fixtures {
		item := item
		group.Go(func(ctx context.Context) (fetchedRecord, error) {
			record, fetchErr := s.records.FetchByFixture(ctx, item.ID)
			s.metrics.ObserveH2HFetch(fetchErr)
			if fetchErr != nil {
				return fetchedRecord{}, fmt.Errorf("fetch h2h fixture_id=%d: %w", item.ID, fetchErr)
			}
			return fetchedRecord{fixture: item, record: record}, nil
		})
	}

	results, err := group.Wait()
	if err != nil {
		s.logger.WarnContext(ctx, "h2h aggregation failed", "fixtures", len(fixtures), "error", err)
		return Aggregation{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	// Map writes happen only here, after the join.
	aggregation = Aggregation{
		TallyByFixtureID:  make(map[int64]matchstats.Tally, len(results)),
		RecordByFixtureID: make(map[int64]h2h.Record, len(results)),
	}
	for _, result := range results {
		id := result.fixture.ID
		aggregation.RecordByFixtureID[id] = result.record
		aggregation.TallyByFixtureID[id] = matchstats.ComputeTally(
			result.fixture.Home.ShortName,
			result.fixture.Away.ShortName,
			result.record.Meetings,
		)
	}

	return aggregation, nil
}

// BuildFixtureStats derives the presentation row for one fixture. Side A is
// the home participant and draws its form from the record's home history.
func BuildFixtureStats(item fixture.Fixture, aggregation Aggregation, now time.Time) FixtureStats {
	record := aggregation.RecordByFixtureID[item.ID]
	row := FixtureStats{
		Fixture:    item,
		Tally:      aggregation.Tally(item.ID),
		HomeToday:  matchstats.ExtractForm(record.HomeHistory, matchstats.FormToday, now),
		AwayToday:  matchstats.ExtractForm(record.AwayHistory, matchstats.FormToday, now),
		HomeRecent: matchstats.ExtractForm(record.HomeHistory, matchstats.FormRecent, now),
		AwayRecent: matchstats.ExtractForm(record.AwayHistory, matchstats.FormRecent, now),
	}
	row.GoodBet = matchstats.IsGoodBet(row.Tally, row.HomeToday, row.AwayToday)
	return row
}

// invalidator is implemented by caching sources.
type invalidator interface {
	Invalidate(ctx context.Context)
}

func (s *StatsService) invalidateSources(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, source := range []any{s.fixtures, s.records} {
		if cached, ok := source.(invalidator); ok {
			cached.Invalidate(ctx)
		}
	}
}

func (s *StatsService) resolveQuery(query fixture.Query) (fixture.Query, error) {
	if len(query.SubTournamentIDs) == 0 {
		query.SubTournamentIDs = append([]int64(nil), s.defaultScope...)
	}
	if len(query.SubTournamentIDs) == 0 {
		return fixture.Query{}, fmt.Errorf("%w: at least one sub-tournament id is required", ErrInvalidInput)
	}
	for _, id := range query.SubTournamentIDs {
		if id <= 0 {
			return fixture.Query{}, fmt.Errorf("%w: sub-tournament id must be greater than zero, got %d", ErrInvalidInput, id)
		}
	}

	if query.From.IsZero() && query.To.IsZero() {
		query.From, query.To = fixture.DayWindow(s.now())
	}
	if query.From.IsZero() || query.To.IsZero() {
		return fixture.Query{}, fmt.Errorf("%w: from and to must be provided together", ErrInvalidInput)
	}
	if query.To.Before(query.From) {
		return fixture.Query{}, fmt.Errorf("%w: to must not be before from", ErrInvalidInput)
	}
	query.From = query.From.UTC()
	query.To = query.To.UTC()

	return query, nil
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
