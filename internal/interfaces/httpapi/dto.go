package httpapi

import (
	"time"

	"github.com/riskibarqy/h2h-insight/internal/domain/fixture"
	"github.com/riskibarqy/h2h-insight/internal/domain/h2h"
	"github.com/riskibarqy/h2h-insight/internal/domain/matchstats"
	"github.com/riskibarqy/h2h-insight/internal/usecase"
)

type FixtureStatsReportDTO struct {
	From             string            `json:"from"`
	To               string            `json:"to"`
	SubTournamentIDs []int64           `json:"subtournament_ids"`
	GeneratedAt      string            `json:"generated_at"`
	GoodBets         int               `json:"good_bets"`
	Fixtures         []FixtureStatsDTO `json:"fixtures"`
}

type FixtureStatsDTO struct {
	FixtureID       int64          `json:"fixture_id"`
	StartAt         string         `json:"start_at,omitempty"`
	Tournament      string         `json:"tournament,omitempty"`
	SubTournamentID int64          `json:"subtournament_id,omitempty"`
	Home            ParticipantDTO `json:"home"`
	Away            ParticipantDTO `json:"away"`
	HeadToHead      *HeadToHeadDTO `json:"head_to_head"`
	HomeToday       FormDTO        `json:"home_today"`
	AwayToday       FormDTO        `json:"away_today"`
	HomeRecent      FormDTO        `json:"home_recent"`
	AwayRecent      FormDTO        `json:"away_recent"`
	GoodBet         bool           `json:"good_bet"`
}

type ParticipantDTO struct {
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

type HeadToHeadDTO struct {
	HomeWins    int     `json:"home_wins"`
	HomeLosses  int     `json:"home_losses"`
	AwayWins    int     `json:"away_wins"`
	AwayLosses  int     `json:"away_losses"`
	HomeWinRate float64 `json:"home_win_rate"`
	AwayWinRate float64 `json:"away_win_rate"`
}

type FormDTO struct {
	Badges  []string `json:"badges"`
	Wins    int      `json:"wins"`
	Display string   `json:"display"`
}

func fixtureStatsReportFromUsecase(report usecase.Report) FixtureStatsReportDTO {
	rows := make([]FixtureStatsDTO, 0, len(report.Fixtures))
	for _, row := range report.Fixtures {
		rows = append(rows, fixtureStatsFromUsecase(row))
	}

	ids := report.Query.SubTournamentIDs
	if ids == nil {
		ids = []int64{}
	}

	return FixtureStatsReportDTO{
		From:             formatTime(report.Query.From),
		To:               formatTime(report.Query.To),
		SubTournamentIDs: ids,
		GeneratedAt:      formatTime(report.GeneratedAt),
		GoodBets:         report.GoodBets(),
		Fixtures:         rows,
	}
}

func fixtureStatsFromUsecase(row usecase.FixtureStats) FixtureStatsDTO {
	out := FixtureStatsDTO{
		FixtureID:       row.Fixture.ID,
		StartAt:         formatTime(row.Fixture.StartAt),
		Tournament:      row.Fixture.Tournament,
		SubTournamentID: row.Fixture.SubTournamentID,
		Home:            participantFromDomain(row.Fixture.Home),
		Away:            participantFromDomain(row.Fixture.Away),
		HomeToday:       formFromDomain(row.HomeToday),
		AwayToday:       formFromDomain(row.AwayToday),
		HomeRecent:      formFromDomain(row.HomeRecent),
		AwayRecent:      formFromDomain(row.AwayRecent),
		GoodBet:         row.GoodBet,
	}
	if row.Tally != nil {
		out.HeadToHead = &HeadToHeadDTO{
			HomeWins:    row.Tally.WinsA,
			HomeLosses:  row.Tally.LossesA,
			AwayWins:    row.Tally.WinsB,
			AwayLosses:  row.Tally.LossesB,
			HomeWinRate: matchstats.WinRate(row.Tally.WinsA, row.Tally.LossesA),
			AwayWinRate: matchstats.WinRate(row.Tally.WinsB, row.Tally.LossesB),
		}
	}
	return out
}

func participantFromDomain(p fixture.Participant) ParticipantDTO {
	return ParticipantDTO{Name: p.Name, ShortName: p.ShortName}
}

func formFromDomain(form []h2h.Badge) FormDTO {
	badges := make([]string, 0, len(form))
	for _, badge := range form {
		badges = append(badges, string(badge))
	}
	return FormDTO{
		Badges:  badges,
		Wins:    matchstats.CountWins(form),
		Display: matchstats.FormString(form),
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
