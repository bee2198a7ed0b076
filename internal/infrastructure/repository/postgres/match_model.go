package postgres

import (
	"database/sql"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/match"
)

type matchTableModel struct {
	ID            int64         `db:"id"`
	ExternalID    int64         `db:"external_id"`
	CompetitionID int64         `db:"competition_id"`
	HomeTeamID    int64         `db:"home_team_id"`
	AwayTeamID    int64         `db:"away_team_id"`
	HomeTeamName  string        `db:"home_team_name"`
	AwayTeamName  string        `db:"away_team_name"`
	MatchDate     sql.NullTime  `db:"match_date"`
	Status        string        `db:"status"`
	HomeScore     sql.NullInt64 `db:"home_score"`
	AwayScore     sql.NullInt64 `db:"away_score"`
	MatchMinute   sql.NullInt64 `db:"match_minute"`
	Venue         string        `db:"venue"`
	Referee       string        `db:"referee"`
	Attendance    sql.NullInt64 `db:"attendance"`
	LastUpdated   time.Time     `db:"last_updated"`
	CreatedAt     time.Time     `db:"created_at"`
}

func (m matchTableModel) toDomain() match.Match {
	out := match.Match{
		ID:            m.ID,
		ExternalID:    m.ExternalID,
		CompetitionID: m.CompetitionID,
		HomeTeamID:    m.HomeTeamID,
		AwayTeamID:    m.AwayTeamID,
		HomeTeamName:  m.HomeTeamName,
		AwayTeamName:  m.AwayTeamName,
		Status:        m.Status,
		HomeScore:     nullInt64ToPtr(m.HomeScore),
		AwayScore:     nullInt64ToPtr(m.AwayScore),
		MatchMinute:   nullInt64ToPtr(m.MatchMinute),
		Venue:         m.Venue,
		Referee:       m.Referee,
		Attendance:    nullInt64ToPtr(m.Attendance),
		LastUpdated:   m.LastUpdated.UTC(),
	}
	if m.MatchDate.Valid {
		out.MatchDate = m.MatchDate.Time.UTC()
	}
	return out
}

type matchInsertModel struct {
	ExternalID    int64         `db:"external_id"`
	CompetitionID int64         `db:"competition_id"`
	HomeTeamID    int64         `db:"home_team_id"`
	AwayTeamID    int64         `db:"away_team_id"`
	MatchDate     sql.NullTime  `db:"match_date"`
	Status        string        `db:"status"`
	HomeScore     sql.NullInt64 `db:"home_score"`
	AwayScore     sql.NullInt64 `db:"away_score"`
	MatchMinute   sql.NullInt64 `db:"match_minute"`
	Venue         string        `db:"venue"`
	Referee       string        `db:"referee"`
	Attendance    sql.NullInt64 `db:"attendance"`
}

type liveScoreTableModel struct {
	MatchID     int64         `db:"match_id"`
	HomeScore   sql.NullInt64 `db:"home_score"`
	AwayScore   sql.NullInt64 `db:"away_score"`
	Status      string        `db:"status"`
	MatchMinute sql.NullInt64 `db:"match_minute"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func (m liveScoreTableModel) toDomain() match.LiveScore {
	return match.LiveScore{
		MatchID:     m.MatchID,
		HomeScore:   nullInt64ToPtr(m.HomeScore),
		AwayScore:   nullInt64ToPtr(m.AwayScore),
		Status:      m.Status,
		MatchMinute: nullInt64ToPtr(m.MatchMinute),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type liveScoreInsertModel struct {
	MatchID     int64         `db:"match_id"`
	HomeScore   sql.NullInt64 `db:"home_score"`
	AwayScore   sql.NullInt64 `db:"away_score"`
	Status      string        `db:"status"`
	MatchMinute sql.NullInt64 `db:"match_minute"`
	UpdatedAt   time.Time     `db:"updated_at"`
}
