package h2h

import "testing"

func TestParseBadge(t *testing.T) {
	tests := map[string]Badge{
		"W":   BadgeWin,
		"w":   BadgeNotWin,
		" W ": BadgeNotWin,
		"WW":  BadgeNotWin,
		"L":   BadgeNotWin,
		"D":   BadgeNotWin,
		"":    BadgeNotWin,
	}
	for raw, want := range tests {
		if got := ParseBadge(raw); got != want {
			t.Fatalf("ParseBadge(%q) got=%q want=%q", raw, got, want)
		}
	}
}

func TestMeeting_Scored(t *testing.T) {
	one := 1
	if (Meeting{HomeScore: &one}).Scored() {
		t.Fatalf("meeting without away score must not be scored")
	}
	if !(Meeting{HomeScore: &one, AwayScore: &one}).Scored() {
		t.Fatalf("meeting with both scores must be scored")
	}
}
