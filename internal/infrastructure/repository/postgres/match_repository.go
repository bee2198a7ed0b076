package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/danuandrian/matchvote/internal/domain/match"
	qb "github.com/danuandrian/matchvote/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func matchSelect() *qb.SelectBuilder {
	return qb.Select(
		"m.*",
		"ht.name AS home_team_name",
		"aw.name AS away_team_name",
	).From("matches m").
		Join("JOIN teams ht ON ht.id = m.home_team_id").
		Join("JOIN teams aw ON aw.id = m.away_team_id")
}

func (r *MatchRepository) List(ctx context.Context, filter match.Filter) ([]match.Match, error) {
	builder := matchSelect()

	if filter.CompetitionID > 0 {
		builder = builder.Where(qb.Eq("m.competition_id", filter.CompetitionID))
	}
	if len(filter.Statuses) > 0 {
		values := make([]any, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			values = append(values, status)
		}
		builder = builder.Where(qb.In("m.status", values))
	}
	if !filter.DateFrom.IsZero() {
		builder = builder.Where(qb.Gte("m.match_date", filter.DateFrom.UTC()))
	}
	if !filter.DateTo.IsZero() {
		builder = builder.Where(qb.Lte("m.match_date", filter.DateTo.UTC()))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		builder = builder.
			Join("JOIN competitions c ON c.id = m.competition_id").
			Where(qb.Like("ht.name || ' ' || aw.name || ' ' || c.name", "%"+search+"%"))
	}

	query, args, err := builder.
		OrderBy("m.match_date", "m.id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *MatchRepository) GetByID(ctx context.Context, id int64) (match.Match, bool, error) {
	query, args, err := matchSelect().
		Where(qb.Eq("m.id", id)).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select match: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, externalID int64) (match.Match, bool, error) {
	query, args, err := matchSelect().
		Where(qb.Eq("m.external_id", externalID)).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match by external id query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select match by external id: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *MatchRepository) UpsertByExternalID(ctx context.Context, item match.Match) (match.Match, bool, error) {
	var matchDate *time.Time
	if !item.MatchDate.IsZero() {
		matchDate = &item.MatchDate
	}
	insertModel := matchInsertModel{
		ExternalID:    item.ExternalID,
		CompetitionID: item.CompetitionID,
		HomeTeamID:    item.HomeTeamID,
		AwayTeamID:    item.AwayTeamID,
		MatchDate:     ptrToNullTime(matchDate),
		Status:        item.Status,
		HomeScore:     ptrToNullInt64(item.HomeScore),
		AwayScore:     ptrToNullInt64(item.AwayScore),
		MatchMinute:   ptrToNullInt64(item.MatchMinute),
		Venue:         item.Venue,
		Referee:       item.Referee,
		Attendance:    ptrToNullInt64(item.Attendance),
	}
	query, args, err := qb.InsertModel("matches", insertModel, `ON CONFLICT (external_id)
DO UPDATE SET
    competition_id = EXCLUDED.competition_id,
    home_team_id = EXCLUDED.home_team_id,
    away_team_id = EXCLUDED.away_team_id,
    match_date = EXCLUDED.match_date,
    status = EXCLUDED.status,
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    match_minute = EXCLUDED.match_minute,
    venue = EXCLUDED.venue,
    referee = EXCLUDED.referee,
    attendance = EXCLUDED.attendance,
    last_updated = NOW()
RETURNING *, (xmax = 0) AS inserted`)
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build upsert match query: %w", err)
	}

	var row struct {
		matchTableModel
		Inserted bool `db:"inserted"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return match.Match{}, false, fmt.Errorf("upsert match: %w", err)
	}
	return row.toDomain(), row.Inserted, nil
}

func (r *MatchRepository) ListByStatuses(ctx context.Context, statuses []string) ([]match.Match, error) {
	values := make([]any, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, status)
	}

	query, args, err := matchSelect().
		Where(qb.In("m.status", values)).
		OrderBy("m.match_date", "m.id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches by status query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches by status: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// ListStaleInPlay treats a missing match date as stale: a row stuck live
// with no date has no way to age out otherwise.
func (r *MatchRepository) ListStaleInPlay(ctx context.Context, cutoff time.Time) ([]match.Match, error) {
	query, args, err := matchSelect().
		Where(
			qb.In("m.status", []any{match.StatusLive, match.StatusPaused}),
			qb.Expr("(m.match_date IS NULL OR m.match_date < ?)", cutoff.UTC()),
		).
		OrderBy("m.id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select stale matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select stale matches: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Finalize keeps the stored score when the caller has none to offer.
func (r *MatchRepository) Finalize(ctx context.Context, id int64, status string, homeScore, awayScore *int) error {
	query, args, err := qb.Update("matches").
		Set("status", status).
		SetExpr("home_score", "COALESCE(?, home_score)", ptrToNullInt64(homeScore)).
		SetExpr("away_score", "COALESCE(?, away_score)", ptrToNullInt64(awayScore)).
		SetExpr("match_minute", "NULL").
		SetExpr("last_updated", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build finalize match query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("finalize match: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("match id=%d not found", id)
	}
	return nil
}

func (r *MatchRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := qb.DeleteFrom("matches").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}

type LiveScoreRepository struct {
	db *sqlx.DB
}

func NewLiveScoreRepository(db *sqlx.DB) *LiveScoreRepository {
	return &LiveScoreRepository{db: db}
}

func (r *LiveScoreRepository) Upsert(ctx context.Context, item match.LiveScore) error {
	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	insertModel := liveScoreInsertModel{
		MatchID:     item.MatchID,
		HomeScore:   ptrToNullInt64(item.HomeScore),
		AwayScore:   ptrToNullInt64(item.AwayScore),
		Status:      item.Status,
		MatchMinute: ptrToNullInt64(item.MatchMinute),
		UpdatedAt:   updatedAt.UTC(),
	}
	query, args, err := qb.InsertModel("live_scores", insertModel, `ON CONFLICT (match_id)
DO UPDATE SET
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    status = EXCLUDED.status,
    match_minute = EXCLUDED.match_minute,
    updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("build upsert live score query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert live score: %w", err)
	}
	return nil
}

func (r *LiveScoreRepository) GetByMatchID(ctx context.Context, matchID int64) (match.LiveScore, bool, error) {
	query, args, err := qb.Select("*").From("live_scores").
		Where(qb.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return match.LiveScore{}, false, fmt.Errorf("build select live score query: %w", err)
	}

	var row liveScoreTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.LiveScore{}, false, nil
		}
		return match.LiveScore{}, false, fmt.Errorf("select live score: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *LiveScoreRepository) ListByMatchIDs(ctx context.Context, matchIDs []int64) (map[int64]match.LiveScore, error) {
	if len(matchIDs) == 0 {
		return map[int64]match.LiveScore{}, nil
	}

	values := make([]any, 0, len(matchIDs))
	for _, id := range matchIDs {
		values = append(values, id)
	}
	query, args, err := qb.Select("*").From("live_scores").
		Where(qb.In("match_id", values)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select live scores query: %w", err)
	}

	var rows []liveScoreTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select live scores: %w", err)
	}

	out := make(map[int64]match.LiveScore, len(rows))
	for _, row := range rows {
		out[row.MatchID] = row.toDomain()
	}
	return out, nil
}

func (r *LiveScoreRepository) DeleteByMatchID(ctx context.Context, matchID int64) error {
	query, args, err := qb.DeleteFrom("live_scores").
		Where(qb.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete live score query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete live score: %w", err)
	}
	return nil
}
