package h2h

import "time"

// Badge is a per-match result indicator for one side.
type Badge string

const (
	BadgeWin    Badge = "W"
	BadgeNotWin Badge = "-"
)

// ParseBadge treats only the provider's exact "W" marker as a win.
func ParseBadge(raw string) Badge {
	if raw == string(BadgeWin) {
		return BadgeWin
	}
	return BadgeNotWin
}

func (b Badge) IsWin() bool {
	return b == BadgeWin
}

// Meeting is a past match between two named sides. Scores are nil when the
// provider did not report them.
type Meeting struct {
	ID        int64
	PlayedAt  time.Time
	HomeName  string
	AwayName  string
	HomeScore *int
	AwayScore *int
}

// Scored reports whether both scores are present.
func (m Meeting) Scored() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// FormEntry is one result from a side's own match history.
type FormEntry struct {
	PlayedAt time.Time
	Badge    Badge
}

// Record is the raw head-to-head bundle for one fixture. HomeHistory and
// AwayHistory are the fixture sides' full histories, most recent first, and
// are not restricted to meetings against each other.
type Record struct {
	Meetings    []Meeting
	HomeHistory []FormEntry
	AwayHistory []FormEntry
}

func (r Record) Empty() bool {
	return len(r.Meetings) == 0 && len(r.HomeHistory) == 0 && len(r.AwayHistory) == 0
}
