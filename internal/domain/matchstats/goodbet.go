package matchstats

import "github.com/riskibarqy/h2h-insight/internal/domain/h2h"

const (
	goodBetMinWinRate   = 0.6
	goodBetMinTodayWins = 3
)

// WinRate is wins/(wins+losses), or 0 when the side has no recorded results.
func WinRate(wins, losses int) float64 {
	total := wins + losses
	if total <= 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// IsGoodBet flags a fixture when either side has a head-to-head win rate above
// 60% and at least three wins in its today form. A nil tally is never flagged.
func IsGoodBet(tally *Tally, todayA, todayB []h2h.Badge) bool {
	if tally == nil {
		return false
	}
	return sideQualifies(tally.WinsA, tally.LossesA, todayA) ||
		sideQualifies(tally.WinsB, tally.LossesB, todayB)
}

func sideQualifies(wins, losses int, today []h2h.Badge) bool {
	return WinRate(wins, losses) > goodBetMinWinRate && CountWins(today) >= goodBetMinTodayWins
}
