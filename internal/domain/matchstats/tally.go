package matchstats

import "github.com/riskibarqy/h2h-insight/internal/domain/h2h"

// Tally is a two-party zero-sum head-to-head count. Losses for one side are
// the other side's wins.
type Tally struct {
	WinsA   int
	LossesA int
	WinsB   int
	LossesB int
}

// ComputeTally credits wins to side A and side B by normalized name, whatever
// role each side held in the historical meeting. Draws, unscored meetings and
// meetings naming neither side contribute nothing.
func ComputeTally(nameA, nameB string, meetings []h2h.Meeting) Tally {
	a := NormalizeName(nameA)
	b := NormalizeName(nameB)

	var out Tally
	for _, m := range meetings {
		if !m.Scored() {
			continue
		}
		home := NormalizeName(m.HomeName)
		away := NormalizeName(m.AwayName)
		homeWon := *m.HomeScore > *m.AwayScore
		awayWon := *m.AwayScore > *m.HomeScore

		// Four independent checks; each may fire at most once per meeting.
		if home == a && homeWon {
			out.WinsA++
		}
		if away == a && awayWon {
			out.WinsA++
		}
		if home == b && homeWon {
			out.WinsB++
		}
		if away == b && awayWon {
			out.WinsB++
		}
	}

	out.LossesA = out.WinsB
	out.LossesB = out.WinsA
	return out
}
