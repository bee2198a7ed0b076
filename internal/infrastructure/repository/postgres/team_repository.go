package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/danuandrian/matchvote/internal/domain/team"
	qb "github.com/danuandrian/matchvote/internal/platform/querybuilder"
)

type teamTableModel struct {
	ID         int64     `db:"id"`
	ExternalID int64     `db:"external_id"`
	Name       string    `db:"name"`
	LogoURL    string    `db:"logo_url"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (m teamTableModel) toDomain() team.Team {
	return team.Team{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		Name:       m.Name,
		LogoURL:    m.LogoURL,
	}
}

type teamInsertModel struct {
	ExternalID int64  `db:"external_id"`
	Name       string `db:"name"`
	LogoURL    string `db:"logo_url"`
}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) GetByID(ctx context.Context, id int64) (team.Team, bool, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("select team: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *TeamRepository) UpsertByExternalID(ctx context.Context, item team.Team) (team.Team, bool, error) {
	insertModel := teamInsertModel{
		ExternalID: item.ExternalID,
		Name:       item.Name,
		LogoURL:    item.LogoURL,
	}
	query, args, err := qb.InsertModel("teams", insertModel, `ON CONFLICT (external_id)
DO UPDATE SET
    name = EXCLUDED.name,
    logo_url = EXCLUDED.logo_url,
    updated_at = NOW()
RETURNING *, (xmax = 0) AS inserted`)
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build upsert team query: %w", err)
	}

	var row struct {
		teamTableModel
		Inserted bool `db:"inserted"`
	}
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return team.Team{}, false, fmt.Errorf("upsert team: %w", err)
	}
	return row.toDomain(), row.Inserted, nil
}
