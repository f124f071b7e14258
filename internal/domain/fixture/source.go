package fixture

import "context"

// Source lists upcoming fixtures from an upstream provider.
type Source interface {
	ListUpcoming(ctx context.Context, query Query) ([]Fixture, error)
}
