package h2h

import "context"

// Source fetches the head-to-head record associated with one fixture.
type Source interface {
	FetchByFixture(ctx context.Context, fixtureID int64) (Record, error)
}
