package match

import (
	"strings"
	"time"
)

// Match statuses follow the upstream feed vocabulary in lowercase form.
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusPaused    = "paused"
	StatusFinished  = "finished"
	StatusPostponed = "postponed"
	StatusCancelled = "cancelled"
)

var statusAliases = map[string]string{
	"timed":      StatusScheduled,
	"scheduled":  StatusScheduled,
	"in_play":    StatusLive,
	"live":       StatusLive,
	"paused":     StatusPaused,
	"halftime":   StatusPaused,
	"finished":   StatusFinished,
	"full_time":  StatusFinished,
	"awarded":    StatusFinished,
	"postponed":  StatusPostponed,
	"suspended":  StatusPostponed,
	"cancelled":  StatusCancelled,
	"canceled":   StatusCancelled,
	"abandoned":  StatusCancelled,
	"no_contest": StatusCancelled,
}

// NormalizeStatus maps an upstream status string onto the canonical set.
// Unknown values fall back to scheduled so a feed change never wedges a row
// in an unrepresentable state.
func NormalizeStatus(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := statusAliases[key]; ok {
		return mapped
	}
	return StatusScheduled
}

func IsLiveStatus(status string) bool {
	return status == StatusLive || status == StatusPaused
}

func IsFinishedStatus(status string) bool {
	return status == StatusFinished
}

func IsTerminalStatus(status string) bool {
	switch status {
	case StatusFinished, StatusPostponed, StatusCancelled:
		return true
	}
	return false
}

type Match struct {
	ID            int64
	ExternalID    int64
	CompetitionID int64
	HomeTeamID    int64
	AwayTeamID    int64
	HomeTeamName  string
	AwayTeamName  string
	MatchDate     time.Time
	Status        string
	HomeScore     *int
	AwayScore     *int
	MatchMinute   *int
	Venue         string
	Referee       string
	Attendance    *int
	LastUpdated   time.Time
}

// LiveScore is the high-frequency overlay written by the live sync pass. It
// never replaces the base row; readers merge it through EffectiveScore.
type LiveScore struct {
	MatchID     int64
	HomeScore   *int
	AwayScore   *int
	Status      string
	MatchMinute *int
	UpdatedAt   time.Time
}

// Scoreboard is the read-time view of a match after overlay merge.
type Scoreboard struct {
	HomeScore   *int
	AwayScore   *int
	Status      string
	MatchMinute *int
}

// EffectiveScore merges the overlay onto the base row field by field. An
// overlay field participates only when it is set; a nil overlay returns the
// base values untouched.
func EffectiveScore(m Match, live *LiveScore) Scoreboard {
	out := Scoreboard{
		HomeScore:   m.HomeScore,
		AwayScore:   m.AwayScore,
		Status:      m.Status,
		MatchMinute: m.MatchMinute,
	}
	if live == nil {
		return out
	}
	if live.HomeScore != nil {
		out.HomeScore = live.HomeScore
	}
	if live.AwayScore != nil {
		out.AwayScore = live.AwayScore
	}
	if live.Status != "" {
		out.Status = NormalizeStatus(live.Status)
	}
	if live.MatchMinute != nil {
		out.MatchMinute = live.MatchMinute
	}
	return out
}
