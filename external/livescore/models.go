package livescore

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
)

type matchListEnvelope struct {
	Matches []matchItem `json:"matches"`
}

type matchItem struct {
	ID                int64             `json:"id"`
	StartDate         string            `json:"start_date"`
	CategoryName      string            `json:"category_name"`
	SubTournamentID   int64             `json:"sub_tournament_id"`
	SubTournamentName string            `json:"sub_tournament_name"`
	Participants      []participantItem `json:"participants"`
}

type participantItem struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"` // home_team | away_team
	Name      string `json:"name"`
	NameShort string `json:"name_short"`
}

// The match detail payload is decoded leniently: a section or field of an
// unexpected JSON type degrades to empty instead of failing the fixture.
type matchDetailEnvelope struct {
	H2H h2hPayload `json:"h2h"`
}

type h2hPayload struct {
	Total h2hSection
}

func (p *h2hPayload) UnmarshalJSON(data []byte) error {
	*p = h2hPayload{}
	var body struct {
		Total h2hSection `json:"total"`
	}
	if !isJSONObject(data) || sonic.Unmarshal(data, &body) != nil {
		return nil
	}
	p.Total = body.Total
	return nil
}

type h2hSection struct {
	Meetings flexList[meetingItem]
	HomeTeam flexList[formItem]
	AwayTeam flexList[formItem]
}

func (s *h2hSection) UnmarshalJSON(data []byte) error {
	*s = h2hSection{}
	var body struct {
		Meetings flexList[meetingItem] `json:"h2h"`
		HomeTeam flexList[formItem]    `json:"home_team"`
		AwayTeam flexList[formItem]    `json:"away_team"`
	}
	if !isJSONObject(data) || sonic.Unmarshal(data, &body) != nil {
		return nil
	}
	s.Meetings, s.HomeTeam, s.AwayTeam = body.Meetings, body.HomeTeam, body.AwayTeam
	return nil
}

type meetingItem struct {
	ID        flexID        `json:"id"`
	Date      flexString    `json:"date"`
	StartDate flexString    `json:"start_date"`
	HomeTeam  flexString    `json:"home_team"`
	AwayTeam  flexString    `json:"away_team"`
	Score     meetingScores `json:"score"`
}

type meetingScores struct {
	HomeTeam flexScore `json:"home_team"`
	AwayTeam flexScore `json:"away_team"`
}

type formItem struct {
	Date      flexString `json:"date"`
	StartDate flexString `json:"start_date"`
	Badge     flexString `json:"badge"`
}

func isJSONObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// flexList decodes a JSON array element by element. A non-array value is an
// empty list and elements that fail to decode are dropped.
type flexList[T any] []T

func (l *flexList[T]) UnmarshalJSON(data []byte) error {
	*l = nil
	var raw []json.RawMessage
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, element := range raw {
		var item T
		if err := sonic.Unmarshal(element, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	*l = out
	return nil
}

// flexString accepts a string or a number. Numbers keep their integer text so
// unix timestamps still reach the date parser; any other value is "".
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""
	var text string
	if err := sonic.Unmarshal(data, &text); err == nil {
		*s = flexString(text)
		return nil
	}
	var number float64
	if err := sonic.Unmarshal(data, &number); err == nil {
		*s = flexString(strconv.FormatFloat(number, 'f', -1, 64))
	}
	return nil
}

// flexID accepts a number or a numeric string; anything else is 0.
type flexID int64

func (id *flexID) UnmarshalJSON(data []byte) error {
	*id = 0
	var score flexScore
	if err := score.UnmarshalJSON(data); err != nil || !score.set {
		return nil
	}
	*id = flexID(score.v)
	return nil
}

// flexScore accepts a number, a numeric string or null.
type flexScore struct {
	v   int
	set bool
}

func (s *flexScore) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	s.set = false
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var number float64
	if err := sonic.Unmarshal(trimmed, &number); err == nil {
		s.v = int(math.Round(number))
		s.set = true
		return nil
	}

	var text string
	if err := sonic.Unmarshal(trimmed, &text); err != nil {
		return nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil
	}
	s.v = parsed
	s.set = true
	return nil
}

func (s flexScore) value() *int {
	if !s.set {
		return nil
	}
	v := s.v
	return &v
}
