package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/riskibarqy/h2h-insight/internal/domain/fixture"
	"github.com/riskibarqy/h2h-insight/internal/domain/h2h"
	"github.com/riskibarqy/h2h-insight/internal/domain/matchstats"
	fixturemock "github.com/riskibarqy/h2h-insight/internal/mocks/domain/fixture"
	providercache "github.com/riskibarqy/h2h-insight/internal/infrastructure/provider/cache"
	h2hmock "github.com/riskibarqy/h2h-insight/internal/mocks/domain/h2h"
	basecache "github.com/riskibarqy/h2h-insight/internal/platform/cache"
	"github.com/riskibarqy/h2h-insight/internal/platform/metrics"
	"github.com/stretchr/testify/mock"
)

var statsNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func score(v int) *int {
	return &v
}

func statsFixture(id int64, home, away string) fixture.Fixture {
	return fixture.Fixture{
		ID:      id,
		StartAt: statsNow.Add(6 * time.Hour),
		Home:    fixture.Participant{Role: fixture.RoleHome, Name: home + " FC", ShortName: home},
		Away:    fixture.Participant{Role: fixture.RoleAway, Name: away + " FC", ShortName: away},
	}
}

func meeting(home, away string, homeScore, awayScore int) h2h.Meeting {
	return h2h.Meeting{HomeName: home, AwayName: away, HomeScore: score(homeScore), AwayScore: score(awayScore)}
}

func newTestStatsService(fixtures fixture.Source, records h2h.Source, maxConcurrency int) *StatsService {
	return NewStatsService(fixtures, records, StatsServiceConfig{
		DefaultSubTournamentIDs: []int64{70521, 70503},
		MaxConcurrency:          maxConcurrency,
		Now:                     func() time.Time { return statsNow },
	})
}

func TestStatsService_AggregateBuildsCompleteMaps(t *testing.T) {
	t.Parallel()

	records := h2hmock.NewSource(t)
	service := newTestStatsService(fixturemock.NewSource(t), records, 0)

	fixtures := []fixture.Fixture{
		statsFixture(101, "Alpha", "Beta"),
		statsFixture(102, "Gamma", "Delta"),
	}
	alphaBeta := h2h.Record{Meetings: []h2h.Meeting{
		meeting("Alpha", "Beta", 2, 1),
		meeting("Beta", "Alpha", 0, 3),
		meeting("alpha.", "BETA", 1, 1),
	}}
	records.On("FetchByFixture", mock.Anything, int64(101)).Return(alphaBeta, nil).Once()
	records.On("FetchByFixture", mock.Anything, int64(102)).Return(h2h.Record{}, nil).Once()

	got, err := service.Aggregate(context.Background(), fixtures)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(got.TallyByFixtureID) != 2 || len(got.RecordByFixtureID) != 2 {
		t.Fatalf("unexpected map sizes: tallies=%d records=%d", len(got.TallyByFixtureID), len(got.RecordByFixtureID))
	}

	want := matchstats.Tally{WinsA: 2, LossesA: 0, WinsB: 0, LossesB: 2}
	if tally := got.TallyByFixtureID[101]; tally != want {
		t.Fatalf("unexpected tally for 101: got=%+v want=%+v", tally, want)
	}
	if tally := got.TallyByFixtureID[102]; tally != (matchstats.Tally{}) {
		t.Fatalf("expected zero tally for empty record, got=%+v", tally)
	}
	if len(got.RecordByFixtureID[101].Meetings) != 3 {
		t.Fatalf("expected raw record to be kept, got=%d meetings", len(got.RecordByFixtureID[101].Meetings))
	}
}

func TestStatsService_AggregateEmptyFixtureList(t *testing.T) {
	t.Parallel()

	service := newTestStatsService(fixturemock.NewSource(t), h2hmock.NewSource(t), 0)

	got, err := service.Aggregate(context.Background(), nil)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if got.TallyByFixtureID == nil || got.RecordByFixtureID == nil {
		t.Fatalf("expected empty non-nil maps")
	}
	if len(got.TallyByFixtureID) != 0 || len(got.RecordByFixtureID) != 0 {
		t.Fatalf("expected empty maps, got=%d/%d", len(got.TallyByFixtureID), len(got.RecordByFixtureID))
	}
}

func TestStatsService_AggregateFailsWholeCycleAfterAllFetchesSettle(t *testing.T) {
	t.Parallel()

	records := h2hmock.NewSource(t)
	service := newTestStatsService(fixturemock.NewSource(t), records, 0)

	upstream := errors.New("connection reset")
	fixtures := []fixture.Fixture{
		statsFixture(1, "Alpha", "Beta"),
		statsFixture(2, "Gamma", "Delta"),
		statsFixture(3, "Epsilon", "Zeta"),
	}
	// Every fetch is still expected once: a failure does not cancel siblings.
	records.On("FetchByFixture", mock.Anything, int64(1)).Return(h2h.Record{}, nil).Once()
	records.On("FetchByFixture", mock.Anything, int64(2)).Return(h2h.Record{}, upstream).Once()
	records.On("FetchByFixture", mock.Anything, int64(3)).Return(h2h.Record{}, nil).Once()

	got, err := service.Aggregate(context.Background(), fixtures)
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
	if !errors.Is(err, upstream) {
		t.Fatalf("expected upstream cause to be kept, got %v", err)
	}
	if got.TallyByFixtureID != nil || got.RecordByFixtureID != nil {
		t.Fatalf("expected no partial maps, got %+v", got)
	}
}

type countingRecordSource struct {
	mu       sync.Mutex
	inFlight int32
	peak     int32
	calls    atomic.Int32
}

func (s *countingRecordSource) FetchByFixture(ctx context.Context, fixtureID int64) (h2h.Record, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return h2h.Record{}, nil
}

func TestStatsService_AggregateHonoursConcurrencyCap(t *testing.T) {
	t.Parallel()

	records := &countingRecordSource{}
	service := newTestStatsService(fixturemock.NewSource(t), records, 2)

	fixtures := make([]fixture.Fixture, 0, 8)
	for i := int64(1); i <= 8; i++ {
		fixtures = append(fixtures, statsFixture(i, "Home", "Away"))
	}

	got, err := service.Aggregate(context.Background(), fixtures)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(got.TallyByFixtureID) != 8 {
		t.Fatalf("unexpected tally count: got=%d want=%d", len(got.TallyByFixtureID), 8)
	}
	if calls := records.calls.Load(); calls != 8 {
		t.Fatalf("unexpected fetch count: got=%d want=%d", calls, 8)
	}
	if records.peak > 2 {
		t.Fatalf("concurrency cap exceeded: peak=%d", records.peak)
	}
}

func TestStatsService_RefreshAppliesDefaultScopeAndDayWindow(t *testing.T) {
	t.Parallel()

	fixtures := fixturemock.NewSource(t)
	records := h2hmock.NewSource(t)
	service := newTestStatsService(fixtures, records, 0)

	wantFrom := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	fixtures.
		On("ListUpcoming", mock.Anything, mock.MatchedBy(func(q fixture.Query) bool {
			return len(q.SubTournamentIDs) == 2 &&
				q.SubTournamentIDs[0] == 70521 &&
				q.From.Equal(wantFrom) &&
				q.To.Equal(wantTo)
		})).
		Return([]fixture.Fixture{statsFixture(7, "Alpha", "Beta")}, nil).
		Once()
	records.On("FetchByFixture", mock.Anything, int64(7)).Return(h2h.Record{}, nil).Once()

	snapshot, err := service.Refresh(context.Background(), fixture.Query{})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(snapshot.Fixtures) != 1 || snapshot.Fixtures[0].ID != 7 {
		t.Fatalf("unexpected fixtures: %+v", snapshot.Fixtures)
	}
	if !snapshot.GeneratedAt.Equal(statsNow) {
		t.Fatalf("unexpected generated at: got=%s want=%s", snapshot.GeneratedAt, statsNow)
	}
}

func TestStatsService_RefreshFixtureSourceFailure(t *testing.T) {
	t.Parallel()

	fixtures := fixturemock.NewSource(t)
	service := newTestStatsService(fixtures, h2hmock.NewSource(t), 0)

	fixtures.On("ListUpcoming", mock.Anything, mock.Anything).Return(nil, errors.New("status 502")).Once()

	_, err := service.Refresh(context.Background(), fixture.Query{})
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestStatsService_RefreshFailureInvalidatesCachedSources(t *testing.T) {
	t.Parallel()

	upstreamFixtures := fixturemock.NewSource(t)
	upstreamRecords := h2hmock.NewSource(t)
	store := basecache.NewStore(time.Minute)
	service := newTestStatsService(
		providercache.NewFixtureSource(upstreamFixtures, store),
		providercache.NewH2HSource(upstreamRecords, store),
		0,
	)

	listed := []fixture.Fixture{statsFixture(101, "Alpha", "Beta"), statsFixture(102, "Gamma", "Delta")}
	// Without invalidation the second cycle would be served the listing and
	// fixture 101 from the store.
	upstreamFixtures.On("ListUpcoming", mock.Anything, mock.Anything).Return(listed, nil).Twice()
	upstreamRecords.On("FetchByFixture", mock.Anything, int64(101)).
		Return(h2h.Record{Meetings: []h2h.Meeting{meeting("Alpha", "Beta", 1, 0)}}, nil).
		Twice()
	upstreamRecords.On("FetchByFixture", mock.Anything, int64(102)).Return(h2h.Record{}, errors.New("status 503")).Once()
	upstreamRecords.On("FetchByFixture", mock.Anything, int64(102)).Return(h2h.Record{}, nil).Once()

	if _, err := service.Refresh(context.Background(), fixture.Query{}); !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("expected first cycle to fail with ErrDataUnavailable, got %v", err)
	}
	if entries := store.Len(); entries != 0 {
		t.Fatalf("expected failed cycle to leave an empty store, got=%d entries", entries)
	}

	snapshot, err := service.Refresh(context.Background(), fixture.Query{})
	if err != nil {
		t.Fatalf("retry refresh: %v", err)
	}
	if len(snapshot.Aggregation.RecordByFixtureID) != 2 {
		t.Fatalf("unexpected records after retry: %+v", snapshot.Aggregation.RecordByFixtureID)
	}
	if tally := snapshot.Aggregation.TallyByFixtureID[101]; tally.WinsA != 1 {
		t.Fatalf("unexpected tally for 101: %+v", tally)
	}
}

func TestStatsService_RefreshRejectsInvalidQuery(t *testing.T) {
	t.Parallel()

	service := newTestStatsService(fixturemock.NewSource(t), h2hmock.NewSource(t), 0)

	tests := []struct {
		name  string
		query fixture.Query
	}{
		{name: "negative sub-tournament", query: fixture.Query{SubTournamentIDs: []int64{-1}}},
		{name: "only from", query: fixture.Query{From: statsNow}},
		{name: "to before from", query: fixture.Query{From: statsNow, To: statsNow.Add(-time.Hour)}},
	}
	for _, tc := range tests {
		if _, err := service.Refresh(context.Background(), tc.query); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestStatsService_ReportFlagsGoodBets(t *testing.T) {
	t.Parallel()

	fixtures := fixturemock.NewSource(t)
	records := h2hmock.NewSource(t)
	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(metrics.WithRegistry(registry))
	service := NewStatsService(fixtures, records, StatsServiceConfig{
		DefaultSubTournamentIDs: []int64{70521},
		Metrics:                 recorder,
		Now:                     func() time.Time { return statsNow },
	})

	today := statsNow.Add(-2 * time.Hour)
	yesterday := statsNow.Add(-26 * time.Hour)
	strong := h2h.Record{
		Meetings: []h2h.Meeting{
			meeting("Alpha", "Beta", 2, 0),
			meeting("Beta", "Alpha", 1, 2),
			meeting("Alpha", "Beta", 3, 1),
			meeting("Alpha", "Beta", 1, 0),
			meeting("Beta", "Alpha", 2, 0),
		},
		HomeHistory: []h2h.FormEntry{
			{PlayedAt: today, Badge: h2h.BadgeWin},
			{PlayedAt: today, Badge: h2h.BadgeWin},
			{PlayedAt: today, Badge: h2h.BadgeNotWin},
			{PlayedAt: today, Badge: h2h.BadgeWin},
			{PlayedAt: yesterday, Badge: h2h.BadgeWin},
			{PlayedAt: yesterday, Badge: h2h.BadgeWin},
		},
		AwayHistory: []h2h.FormEntry{
			{PlayedAt: yesterday, Badge: h2h.BadgeWin},
		},
	}

	fixtures.
		On("ListUpcoming", mock.Anything, mock.Anything).
		Return([]fixture.Fixture{statsFixture(1, "Alpha", "Beta"), statsFixture(2, "Gamma", "Delta")}, nil).
		Once()
	records.On("FetchByFixture", mock.Anything, int64(1)).Return(strong, nil).Once()
	records.On("FetchByFixture", mock.Anything, int64(2)).Return(h2h.Record{}, nil).Once()

	report, err := service.Report(context.Background(), fixture.Query{})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Fixtures) != 2 {
		t.Fatalf("unexpected row count: got=%d want=%d", len(report.Fixtures), 2)
	}

	first := report.Fixtures[0]
	if first.Fixture.ID != 1 {
		t.Fatalf("rows must follow provider order, got first id=%d", first.Fixture.ID)
	}
	if first.Tally == nil || *first.Tally != (matchstats.Tally{WinsA: 4, LossesA: 1, WinsB: 1, LossesB: 4}) {
		t.Fatalf("unexpected tally: %+v", first.Tally)
	}
	if len(first.HomeToday) != 4 || matchstats.CountWins(first.HomeToday) != 3 {
		t.Fatalf("unexpected home today form: %v", first.HomeToday)
	}
	if len(first.HomeRecent) != 5 {
		t.Fatalf("unexpected home recent length: got=%d want=%d", len(first.HomeRecent), 5)
	}
	if len(first.AwayToday) != 0 || len(first.AwayRecent) != 1 {
		t.Fatalf("unexpected away forms: today=%v recent=%v", first.AwayToday, first.AwayRecent)
	}
	if !first.GoodBet {
		t.Fatalf("expected fixture 1 to be a good bet")
	}
	if report.Fixtures[1].GoodBet {
		t.Fatalf("expected fixture 2 not to be a good bet")
	}
	if report.GoodBets() != 1 {
		t.Fatalf("unexpected good bet count: got=%d want=%d", report.GoodBets(), 1)
	}
	expected := `
# HELP h2h_insight_stats_good_bets_last_cycle Fixtures flagged as good bets in the last rendered snapshot.
# TYPE h2h_insight_stats_good_bets_last_cycle gauge
h2h_insight_stats_good_bets_last_cycle 1
`
	if err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "h2h_insight_stats_good_bets_last_cycle"); err != nil {
		t.Fatalf("unexpected good bets gauge: %v", err)
	}
}

func TestBuildFixtureStats_MissingTallyIsNeverGoodBet(t *testing.T) {
	t.Parallel()

	row := BuildFixtureStats(statsFixture(9, "Alpha", "Beta"), Aggregation{}, statsNow)
	if row.Tally != nil {
		t.Fatalf("expected nil tally, got %+v", row.Tally)
	}
	if row.GoodBet {
		t.Fatalf("expected no good bet without a tally")
	}
	if row.HomeToday == nil || row.AwayRecent == nil {
		t.Fatalf("expected empty non-nil forms")
	}
}
