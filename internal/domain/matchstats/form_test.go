package matchstats

import (
	"reflect"
	"testing"
	"time"

	"github.com/riskibarqy/h2h-insight/internal/domain/h2h"
)

var formNow = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

func entry(at time.Time, badge h2h.Badge) h2h.FormEntry {
	return h2h.FormEntry{PlayedAt: at, Badge: badge}
}

func TestExtractForm_RecentTakesFirstFive(t *testing.T) {
	yesterday := formNow.Add(-24 * time.Hour)
	history := []h2h.FormEntry{
		entry(formNow, h2h.BadgeWin),
		entry(formNow, h2h.BadgeNotWin),
		entry(yesterday, h2h.BadgeWin),
		entry(yesterday, h2h.BadgeWin),
		entry(yesterday, h2h.BadgeNotWin),
		entry(yesterday, h2h.BadgeWin),
	}

	got := ExtractForm(history, FormRecent, formNow)

	want := []h2h.Badge{h2h.BadgeWin, h2h.BadgeNotWin, h2h.BadgeWin, h2h.BadgeWin, h2h.BadgeNotWin}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected recent form: got=%v want=%v", got, want)
	}
}

func TestExtractForm_TodayUsesUTCCalendarDay(t *testing.T) {
	startOfDay := time.Date(2026, 10, 19, 0, 0, 1, 0, time.UTC)
	lateYesterday := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)
	// 01:00 on the 20th in UTC+7 is still the 19th in UTC.
	offsetToday := time.Date(2026, 10, 20, 1, 0, 0, 0, time.FixedZone("WIB", 7*60*60))

	history := []h2h.FormEntry{
		entry(lateYesterday, h2h.BadgeWin),
		entry(startOfDay, h2h.BadgeNotWin),
		entry(time.Time{}, h2h.BadgeWin),
		entry(offsetToday, h2h.BadgeWin),
	}

	got := ExtractForm(history, FormToday, formNow)

	want := []h2h.Badge{h2h.BadgeNotWin, h2h.BadgeWin}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected today form: got=%v want=%v", got, want)
	}
}

func TestExtractForm_TodayCapsAtFive(t *testing.T) {
	history := make([]h2h.FormEntry, 0, 8)
	for i := 0; i < 8; i++ {
		history = append(history, entry(formNow.Add(-time.Duration(i)*time.Minute), h2h.BadgeWin))
	}

	if got := ExtractForm(history, FormToday, formNow); len(got) != FormLimit {
		t.Fatalf("expected %d entries, got=%d", FormLimit, len(got))
	}
}

func TestExtractForm_EmptyHistory(t *testing.T) {
	for _, mode := range []FormMode{FormRecent, FormToday} {
		got := ExtractForm(nil, mode, formNow)
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil form for mode=%d, got=%v", mode, got)
		}
	}
}

func TestExtractForm_TodaySubsetOfRecent(t *testing.T) {
	// Most recent first, every entry at a distinct time.
	history := []h2h.FormEntry{
		entry(formNow.Add(-1*time.Hour), h2h.BadgeNotWin),
		entry(formNow.Add(-3*time.Hour), h2h.BadgeWin),
		entry(formNow.Add(-5*time.Hour), h2h.BadgeNotWin),
		entry(formNow.Add(-20*time.Hour), h2h.BadgeWin),
		entry(formNow.Add(-26*time.Hour), h2h.BadgeWin),
		entry(formNow.Add(-50*time.Hour), h2h.BadgeNotWin),
	}

	recent := ExtractForm(history, FormRecent, formNow)
	today := ExtractForm(history, FormToday, formNow)

	expected := make([]h2h.Badge, 0, len(recent))
	for i, badge := range recent {
		if badge != history[i].Badge {
			t.Fatalf("recent form position %d: got=%q want=%q", i, badge, history[i].Badge)
		}
		if sameUTCDay(history[i].PlayedAt, formNow) {
			expected = append(expected, badge)
		}
	}
	if !reflect.DeepEqual(today, expected) {
		t.Fatalf("today form is not the today-dated prefix of recent: today=%v expected=%v recent=%v", today, expected, recent)
	}

	want := []h2h.Badge{h2h.BadgeNotWin, h2h.BadgeWin, h2h.BadgeNotWin}
	if !reflect.DeepEqual(today, want) {
		t.Fatalf("unexpected today form: got=%v want=%v", today, want)
	}
}

func TestFormString(t *testing.T) {
	if got := FormString(nil); got != "-" {
		t.Fatalf("expected dash for empty form, got %q", got)
	}
	got := FormString([]h2h.Badge{h2h.BadgeWin, h2h.BadgeNotWin, h2h.BadgeWin})
	if got != "✓ ❌ ✓" {
		t.Fatalf("unexpected rendering %q", got)
	}
}
