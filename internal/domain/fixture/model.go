package fixture

import (
	"strings"
	"time"
)

type Role string

const (
	RoleHome Role = "home"
	RoleAway Role = "away"
)

// ParseRole maps provider participant types ("home_team", "away") onto a Role.
func ParseRole(value string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "home", "home_team":
		return RoleHome, true
	case "away", "away_team":
		return RoleAway, true
	default:
		return "", false
	}
}

// Participant is one side of a fixture. ShortName is the comparison key used
// against head-to-head history.
type Participant struct {
	Role      Role
	Name      string
	ShortName string
}

// Fixture represents one upcoming scheduled match.
type Fixture struct {
	ID              int64
	StartAt         time.Time
	Home            Participant
	Away            Participant
	Tournament      string
	SubTournamentID int64
}

// Query scopes a fixture listing to sub-tournaments and a start-time window.
type Query struct {
	SubTournamentIDs []int64
	From             time.Time
	To               time.Time
}

// DayWindow returns the [00:00:00, 23:59:59] UTC window containing now.
func DayWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Second)
	return from, to
}
