package matchstats

import (
	"strings"
	"time"

	"github.com/riskibarqy/h2h-insight/internal/domain/h2h"
)

// FormLimit caps every form sequence.
const FormLimit = 5

type FormMode int

const (
	// FormRecent keeps the first FormLimit entries of the history.
	FormRecent FormMode = iota
	// FormToday keeps entries played on now's UTC calendar day.
	FormToday
)

// ExtractForm returns up to FormLimit badges from history, which must already
// be ordered most recent first. The order is preserved.
func ExtractForm(history []h2h.FormEntry, mode FormMode, now time.Time) []h2h.Badge {
	out := make([]h2h.Badge, 0, FormLimit)
	for _, entry := range history {
		if len(out) == FormLimit {
			break
		}
		if mode == FormToday && !sameUTCDay(entry.PlayedAt, now) {
			continue
		}
		out = append(out, entry.Badge)
	}
	return out
}

// CountWins returns how many badges in form are wins.
func CountWins(form []h2h.Badge) int {
	wins := 0
	for _, badge := range form {
		if badge.IsWin() {
			wins++
		}
	}
	return wins
}

// FormString renders form as space separated marks, or "-" when empty.
func FormString(form []h2h.Badge) string {
	if len(form) == 0 {
		return "-"
	}
	marks := make([]string, 0, len(form))
	for _, badge := range form {
		if badge.IsWin() {
			marks = append(marks, "✓")
			continue
		}
		marks = append(marks, "❌")
	}
	return strings.Join(marks, " ")
}

func sameUTCDay(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
