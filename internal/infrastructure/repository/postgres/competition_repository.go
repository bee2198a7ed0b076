package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/danuandrian/matchvote/internal/domain/competition"
	qb "github.com/danuandrian/matchvote/internal/platform/querybuilder"
)

type CompetitionRepository struct {
	db *sqlx.DB
}

func NewCompetitionRepository(db *sqlx.DB) *CompetitionRepository {
	return &CompetitionRepository{db: db}
}

func (r *CompetitionRepository) List(ctx context.Context) ([]competition.Competition, error) {
	query, args, err := qb.Select("*").From("competitions").
		OrderBy("name", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select competitions query: %w", err)
	}

	var rows []competitionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select competitions: %w", err)
	}

	out := make([]competition.Competition, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *CompetitionRepository) ListSyncable(ctx context.Context) ([]competition.Competition, error) {
	query, args, err := qb.Select("*").From("competitions").
		Where(
			qb.Eq("is_active", true),
			qb.Eq("sync_enabled", true),
		).
		OrderBy("name", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select syncable competitions query: %w", err)
	}

	var rows []competitionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select syncable competitions: %w", err)
	}

	out := make([]competition.Competition, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *CompetitionRepository) GetByID(ctx context.Context, id int64) (competition.Competition, bool, error) {
	query, args, err := qb.Select("*").From("competitions").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return competition.Competition{}, false, fmt.Errorf("build select competition query: %w", err)
	}

	var row competitionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return competition.Competition{}, false, nil
		}
		return competition.Competition{}, false, fmt.Errorf("select competition: %w", err)
	}
	return row.toDomain(), true, nil
}

// UpsertByExternalID keeps operator-managed flags (is_active, sync_enabled)
// untouched on update; the feed only refreshes descriptive fields.
func (r *CompetitionRepository) UpsertByExternalID(ctx context.Context, item competition.Competition) (competition.Competition, bool, error) {
	insertModel := competitionInsertModel{
		ExternalID: item.ExternalID,
		Name:       item.Name,
		Country:    item.Country,
		Code:       item.Code,
		LogoURL:    item.LogoURL,
	}
	query, args, err := qb.InsertModel("competitions", insertModel, `ON CONFLICT (external_id)
DO UPDATE SET
    name = EXCLUDED.name,
    country = EXCLUDED.country,
    code = EXCLUDED.code,
    logo_url = EXCLUDED.logo_url,
    updated_at = NOW()
RETURNING *, (xmax = 0) AS inserted`)
	if err != nil {
		return competition.Competition{}, false, fmt.Errorf("build upsert competition query: %w", err)
	}

	var row struct {
		competitionTableModel
		Inserted bool `db:"inserted"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return competition.Competition{}, false, fmt.Errorf("upsert competition: %w", err)
	}
	return row.toDomain(), row.Inserted, nil
}

func (r *CompetitionRepository) SetFlags(ctx context.Context, id int64, isActive, syncEnabled bool) error {
	query, args, err := qb.Update("competitions").
		Set("is_active", isActive).
		Set("sync_enabled", syncEnabled).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update competition flags query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update competition flags: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("competition id=%d not found", id)
	}
	return nil
}

func (r *CompetitionRepository) TouchLastSynced(ctx context.Context, id int64, at time.Time) error {
	query, args, err := qb.Update("competitions").
		Set("last_synced_at", at.UTC()).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build touch competition query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch competition last_synced_at: %w", err)
	}
	return nil
}
