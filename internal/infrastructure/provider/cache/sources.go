package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/h2h-insight/internal/domain/fixture"
	"github.com/riskibarqy/h2h-insight/internal/domain/h2h"
	basecache "github.com/riskibarqy/h2h-insight/internal/platform/cache"
)

const (
	fixtureKeyPrefix = "fixture:list:"
	h2hKeyPrefix     = "h2h:fixture:"
)

type FixtureSource struct {
	next  fixture.Source
	cache *basecache.Store
}

func NewFixtureSource(next fixture.Source, cache *basecache.Store) *FixtureSource {
	return &FixtureSource{next: next, cache: cache}
}

func (s *FixtureSource) ListUpcoming(ctx context.Context, query fixture.Query) ([]fixture.Fixture, error) {
	v, err := s.cache.GetOrLoad(ctx, fixtureQueryKey(query), func(ctx context.Context) (any, error) {
		items, err := s.next.ListUpcoming(ctx, query)
		if err != nil {
			return nil, err
		}
		return append([]fixture.Fixture(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]fixture.Fixture)
	return append([]fixture.Fixture(nil), items...), nil
}

// Invalidate drops every cached fixture listing.
func (s *FixtureSource) Invalidate(ctx context.Context) {
	s.cache.DeletePrefix(ctx, fixtureKeyPrefix)
}

type H2HSource struct {
	next  h2h.Source
	cache *basecache.Store
}

func NewH2HSource(next h2h.Source, cache *basecache.Store) *H2HSource {
	return &H2HSource{next: next, cache: cache}
}

func (s *H2HSource) FetchByFixture(ctx context.Context, fixtureID int64) (h2h.Record, error) {
	key := h2hKeyPrefix + strconv.FormatInt(fixtureID, 10)
	v, err := s.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		record, err := s.next.FetchByFixture(ctx, fixtureID)
		if err != nil {
			return nil, err
		}
		return cloneRecord(record), nil
	})
	if err != nil {
		return h2h.Record{}, err
	}

	record, _ := v.(h2h.Record)
	return cloneRecord(record), nil
}

func (s *H2HSource) Invalidate(ctx context.Context) {
	s.cache.DeletePrefix(ctx, h2hKeyPrefix)
}

func fixtureQueryKey(query fixture.Query) string {
	ids := make([]string, 0, len(query.SubTournamentIDs))
	for _, id := range query.SubTournamentIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}
	return fixtureKeyPrefix + strings.Join(ids, ",") +
		":" + query.From.UTC().Format(time.RFC3339) +
		":" + query.To.UTC().Format(time.RFC3339)
}

// Scores are shared pointers but never mutated after decode.
func cloneRecord(record h2h.Record) h2h.Record {
	return h2h.Record{
		Meetings:    append([]h2h.Meeting{}, record.Meetings...),
		HomeHistory: append([]h2h.FormEntry{}, record.HomeHistory...),
		AwayHistory: append([]h2h.FormEntry{}, record.AwayHistory...),
	}
}
