package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/h2h-insight/internal/domain/fixture"
	"github.com/riskibarqy/h2h-insight/internal/usecase"
)

const (
	providerDateTimeLayout = "2006-01-02 15:04:05"
	dateLayout             = "2006-01-02"
)

type fixtureStatsRequest struct {
	Date             string  `validate:"omitempty,datetime=2006-01-02,excluded_with=From To"`
	From             string  `validate:"required_with=To"`
	To               string  `validate:"required_with=From"`
	SubTournamentIDs []int64 `validate:"omitempty,max=50,dive,gt=0"`
}

func (h *Handler) GetFixtureStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFixtureStats")
	defer span.End()

	values := r.URL.Query()
	ids, err := parseIDs(values.Get("subtournament_ids"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	req := fixtureStatsRequest{
		Date:             strings.TrimSpace(values.Get("date")),
		From:             strings.TrimSpace(values.Get("from")),
		To:               strings.TrimSpace(values.Get("to")),
		SubTournamentIDs: ids,
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	query, err := req.toQuery()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := h.statsService.Report(ctx, query)
	if err != nil {
		h.logger.WarnContext(ctx, "build fixture stats failed",
			"sub_tournament_ids", query.SubTournamentIDs,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(w, http.StatusOK, fixtureStatsReportFromUsecase(report))
}

func (req fixtureStatsRequest) toQuery() (fixture.Query, error) {
	query := fixture.Query{SubTournamentIDs: req.SubTournamentIDs}

	if req.Date != "" {
		day, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
		if err != nil {
			return fixture.Query{}, fmt.Errorf("%w: invalid date %q", usecase.ErrInvalidInput, req.Date)
		}
		query.From, query.To = fixture.DayWindow(day)
		return query, nil
	}

	if req.From == "" {
		return query, nil
	}
	from, err := parseQueryTime(req.From)
	if err != nil {
		return fixture.Query{}, err
	}
	to, err := parseQueryTime(req.To)
	if err != nil {
		return fixture.Query{}, err
	}
	query.From = from
	query.To = to
	return query, nil
}

func parseQueryTime(raw string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.ParseInLocation(providerDateTimeLayout, raw, time.UTC); err == nil {
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid time %q, expected RFC3339 or %q", usecase.ErrInvalidInput, raw, providerDateTimeLayout)
}

func parseIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid subtournament id %q", usecase.ErrInvalidInput, part)
		}
		out = append(out, id)
	}
	return out, nil
}
