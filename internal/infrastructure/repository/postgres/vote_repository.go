package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/danuandrian/matchvote/internal/domain/vote"
	qb "github.com/danuandrian/matchvote/internal/platform/querybuilder"
)

type VoteCategoryRepository struct {
	db *sqlx.DB
}

func NewVoteCategoryRepository(db *sqlx.DB) *VoteCategoryRepository {
	return &VoteCategoryRepository{db: db}
}

func (r *VoteCategoryRepository) List(ctx context.Context, activeOnly bool) ([]vote.Category, error) {
	builder := qb.Select("*").From("vote_categories")
	if activeOnly {
		builder = builder.Where(qb.Eq("is_active", true))
	}
	query, args, err := builder.
		OrderBy("sort_order", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select vote categories query: %w", err)
	}

	var rows []voteCategoryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select vote categories: %w", err)
	}

	out := make([]vote.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *VoteCategoryRepository) GetByID(ctx context.Context, id int64) (vote.Category, bool, error) {
	query, args, err := qb.Select("*").From("vote_categories").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return vote.Category{}, false, fmt.Errorf("build select vote category query: %w", err)
	}

	var row voteCategoryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return vote.Category{}, false, nil
		}
		return vote.Category{}, false, fmt.Errorf("select vote category: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *VoteCategoryRepository) GetByKey(ctx context.Context, key string) (vote.Category, bool, error) {
	query, args, err := qb.Select("*").From("vote_categories").
		Where(qb.Eq("category_key", key)).
		ToSQL()
	if err != nil {
		return vote.Category{}, false, fmt.Errorf("build select vote category by key query: %w", err)
	}

	var row voteCategoryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return vote.Category{}, false, nil
		}
		return vote.Category{}, false, fmt.Errorf("select vote category by key: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *VoteCategoryRepository) Create(ctx context.Context, item vote.Category) (vote.Category, error) {
	insertModel := voteCategoryInsertModel{
		Key:       item.Key,
		Name:      item.Name,
		IsActive:  item.IsActive,
		SortOrder: item.SortOrder,
	}
	query, args, err := qb.InsertModel("vote_categories", insertModel, "RETURNING *")
	if err != nil {
		return vote.Category{}, fmt.Errorf("build insert vote category query: %w", err)
	}

	var row voteCategoryTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return vote.Category{}, fmt.Errorf("insert vote category: %w", err)
	}
	return row.toDomain(), nil
}

func (r *VoteCategoryRepository) Update(ctx context.Context, item vote.Category) error {
	query, args, err := qb.Update("vote_categories").
		Set("category_key", item.Key).
		Set("name", item.Name).
		Set("is_active", item.IsActive).
		Set("sort_order", item.SortOrder).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update vote category query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update vote category: %w", err)
	}
	return nil
}

// Delete removes the category in one transaction after moving its options
// and ballots to the built-in "other" category, so no row is left orphaned.
func (r *VoteCategoryRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx delete vote category: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	otherQuery, otherArgs, err := qb.Select("id").From("vote_categories").
		Where(qb.Eq("category_key", vote.CategoryKeyOther)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select other category query: %w", err)
	}
	var otherID int64
	if err := tx.GetContext(ctx, &otherID, otherQuery, otherArgs...); err != nil {
		return fmt.Errorf("select %q category: %w", vote.CategoryKeyOther, err)
	}

	// A voter who already holds a ballot in the target category on the same
	// match and surface keeps that ballot; the colliding one is dropped so
	// the reassignment cannot trip the one-per-ballot constraint.
	collideQuery := `
		DELETE FROM votes v
		USING votes w
		WHERE v.category_id = $1
		  AND w.category_id = $2
		  AND w.match_id = v.match_id
		  AND w.voter_key = v.voter_key
		  AND w.surface = v.surface
		RETURNING v.option_id`
	var dropped []int64
	if err := tx.SelectContext(ctx, &dropped, collideQuery, id, otherID); err != nil {
		return fmt.Errorf("drop colliding votes for category: %w", err)
	}
	for _, optionID := range dropped {
		if err := adjustVotesCountTx(ctx, tx, optionID, -1); err != nil {
			return err
		}
	}

	for _, target := range []string{"vote_options", "votes"} {
		query, args, err := qb.Update(target).
			Set("category_id", otherID).
			SetExpr("updated_at", "NOW()").
			Where(qb.Eq("category_id", id)).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build reassign %s query: %w", target, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("reassign %s to %q category: %w", target, vote.CategoryKeyOther, err)
		}
	}

	query, args, err := qb.DeleteFrom("vote_categories").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete vote category query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete vote category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete vote category: %w", err)
	}
	return nil
}

type VoteOptionRepository struct {
	db *sqlx.DB
}

func NewVoteOptionRepository(db *sqlx.DB) *VoteOptionRepository {
	return &VoteOptionRepository{db: db}
}

func (r *VoteOptionRepository) ListByCategory(ctx context.Context, categoryID int64, activeOnly bool) ([]vote.Option, error) {
	builder := qb.Select("*").From("vote_options").
		Where(qb.Eq("category_id", categoryID))
	if activeOnly {
		builder = builder.Where(qb.Eq("is_active", true))
	}
	query, args, err := builder.
		OrderBy("sort_order", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select vote options query: %w", err)
	}

	var rows []voteOptionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select vote options: %w", err)
	}

	out := make([]vote.Option, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *VoteOptionRepository) GetByID(ctx context.Context, id int64) (vote.Option, bool, error) {
	query, args, err := qb.Select("*").From("vote_options").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return vote.Option{}, false, fmt.Errorf("build select vote option query: %w", err)
	}

	var row voteOptionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return vote.Option{}, false, nil
		}
		return vote.Option{}, false, fmt.Errorf("select vote option: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *VoteOptionRepository) Create(ctx context.Context, item vote.Option) (vote.Option, error) {
	insertModel := voteOptionInsertModel{
		CategoryID: item.CategoryID,
		MatchID:    ptrToNullID(item.MatchID),
		Label:      item.Label,
		Kind:       item.Kind,
		SortOrder:  item.SortOrder,
		IsActive:   item.IsActive,
	}
	query, args, err := qb.InsertModel("vote_options", insertModel, "RETURNING *")
	if err != nil {
		return vote.Option{}, fmt.Errorf("build insert vote option query: %w", err)
	}

	var row voteOptionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return vote.Option{}, fmt.Errorf("insert vote option: %w", err)
	}
	return row.toDomain(), nil
}

func (r *VoteOptionRepository) Update(ctx context.Context, item vote.Option) error {
	query, args, err := qb.Update("vote_options").
		Set("label", item.Label).
		Set("kind", item.Kind).
		Set("sort_order", item.SortOrder).
		Set("is_active", item.IsActive).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update vote option query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update vote option: %w", err)
	}
	return nil
}

func (r *VoteOptionRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx delete vote option: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	votesQuery, votesArgs, err := qb.DeleteFrom("votes").
		Where(qb.Eq("option_id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete votes for option query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, votesQuery, votesArgs...); err != nil {
		return fmt.Errorf("delete votes for option: %w", err)
	}

	query, args, err := qb.DeleteFrom("vote_options").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete vote option query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete vote option: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete vote option: %w", err)
	}
	return nil
}

func (r *VoteOptionRepository) AdjustVotesCount(ctx context.Context, id int64, delta int) error {
	query, args, err := qb.Update("vote_options").
		SetExpr("votes_count", "GREATEST(votes_count + ?, 0)", delta).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build adjust votes count query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("adjust votes count: %w", err)
	}
	return nil
}

type VoteRepository struct {
	db *sqlx.DB
}

func NewVoteRepository(db *sqlx.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Cast serializes concurrent ballots from the same voter with a row lock on
// the existing ballot; first-time casts race on the unique constraint and
// the loser surfaces ErrDuplicate.
func (r *VoteRepository) Cast(ctx context.Context, item vote.Vote, allowChange bool) (vote.CastResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return vote.CastResult{}, fmt.Errorf("begin tx cast vote: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	selectQuery, selectArgs, err := qb.Select("*").From("votes").
		Where(
			qb.Eq("match_id", item.MatchID),
			qb.Eq("category_id", item.CategoryID),
			qb.Eq("voter_key", item.VoterKey),
			qb.Eq("surface", item.Surface),
		).
		ToSQL()
	if err != nil {
		return vote.CastResult{}, fmt.Errorf("build select existing vote query: %w", err)
	}
	selectQuery += " FOR UPDATE"

	var existing voteTableModel
	found := true
	if err := tx.GetContext(ctx, &existing, selectQuery, selectArgs...); err != nil {
		if !isNotFound(err) {
			return vote.CastResult{}, fmt.Errorf("select existing vote: %w", err)
		}
		found = false
	}

	if found {
		if existing.OptionID == item.OptionID {
			// Re-casting the same option is a no-op either way.
			if !allowChange {
				return vote.CastResult{}, vote.ErrDuplicate
			}
			return vote.CastResult{Vote: existing.toDomain()}, tx.Commit()
		}
		if !allowChange {
			return vote.CastResult{}, vote.ErrChangeNotAllowed
		}

		updateQuery, updateArgs, err := qb.Update("votes").
			Set("option_id", item.OptionID).
			SetExpr("updated_at", "NOW()").
			Where(qb.Eq("id", existing.ID)).
			Suffix("RETURNING *").
			ToSQL()
		if err != nil {
			return vote.CastResult{}, fmt.Errorf("build update vote query: %w", err)
		}
		var updated voteTableModel
		if err := tx.GetContext(ctx, &updated, updateQuery, updateArgs...); err != nil {
			return vote.CastResult{}, fmt.Errorf("update vote: %w", err)
		}

		if err := adjustVotesCountTx(ctx, tx, existing.OptionID, -1); err != nil {
			return vote.CastResult{}, err
		}
		if err := adjustVotesCountTx(ctx, tx, item.OptionID, 1); err != nil {
			return vote.CastResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return vote.CastResult{}, fmt.Errorf("commit vote change: %w", err)
		}
		return vote.CastResult{
			Vote:             updated.toDomain(),
			Replaced:         true,
			PreviousOptionID: existing.OptionID,
		}, nil
	}

	insertModel := voteInsertModel{
		MatchID:    item.MatchID,
		CategoryID: item.CategoryID,
		OptionID:   item.OptionID,
		VoterKey:   item.VoterKey,
		Surface:    item.Surface,
	}
	insertQuery, insertArgs, err := qb.InsertModel("votes", insertModel, "RETURNING *")
	if err != nil {
		return vote.CastResult{}, fmt.Errorf("build insert vote query: %w", err)
	}
	var inserted voteTableModel
	if err := tx.GetContext(ctx, &inserted, insertQuery, insertArgs...); err != nil {
		if isUniqueViolation(err) {
			return vote.CastResult{}, vote.ErrDuplicate
		}
		return vote.CastResult{}, fmt.Errorf("insert vote: %w", err)
	}

	if err := adjustVotesCountTx(ctx, tx, item.OptionID, 1); err != nil {
		return vote.CastResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return vote.CastResult{}, fmt.Errorf("commit vote cast: %w", err)
	}
	return vote.CastResult{Vote: inserted.toDomain()}, nil
}

func adjustVotesCountTx(ctx context.Context, tx *sqlx.Tx, optionID int64, delta int) error {
	query, args, err := qb.Update("vote_options").
		SetExpr("votes_count", "GREATEST(votes_count + ?, 0)", delta).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", optionID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build adjust votes count query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("adjust votes count option_id=%d: %w", optionID, err)
	}
	return nil
}

func (r *VoteRepository) GetByVoter(ctx context.Context, matchID, categoryID int64, voterKey, surface string) (vote.Vote, bool, error) {
	query, args, err := qb.Select("*").From("votes").
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("category_id", categoryID),
			qb.Eq("voter_key", voterKey),
			qb.Eq("surface", surface),
		).
		ToSQL()
	if err != nil {
		return vote.Vote{}, false, fmt.Errorf("build select vote by voter query: %w", err)
	}

	var row voteTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return vote.Vote{}, false, nil
		}
		return vote.Vote{}, false, fmt.Errorf("select vote by voter: %w", err)
	}
	return row.toDomain(), true, nil
}

// CountByOption recounts stored ballots instead of trusting the cached
// counter on vote_options.
func (r *VoteRepository) CountByOption(ctx context.Context, matchID, categoryID int64) (map[int64]int, error) {
	query, args, err := qb.Select("option_id", "COUNT(*) AS total").From("votes").
		Where(
			qb.Eq("match_id", matchID),
			qb.Eq("category_id", categoryID),
		).
		GroupBy("option_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count votes query: %w", err)
	}

	var rows []struct {
		OptionID int64 `db:"option_id"`
		Total    int   `db:"total"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}

	out := make(map[int64]int, len(rows))
	for _, row := range rows {
		out[row.OptionID] = row.Total
	}
	return out, nil
}

// DeleteByMatch purges a match's ballots and walks the denormalized counters
// back down in the same transaction, so vote_options.votes_count keeps
// matching the surviving ballot rows.
func (r *VoteRepository) DeleteByMatch(ctx context.Context, matchID int64) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx delete votes by match: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	decrementQuery := `
		UPDATE vote_options o
		SET votes_count = GREATEST(o.votes_count - sub.total, 0),
		    updated_at = NOW()
		FROM (
			SELECT option_id, COUNT(*) AS total
			FROM votes
			WHERE match_id = $1
			GROUP BY option_id
		) sub
		WHERE o.id = sub.option_id`
	if _, err := tx.ExecContext(ctx, decrementQuery, matchID); err != nil {
		return 0, fmt.Errorf("decrement votes count by match: %w", err)
	}

	query, args, err := qb.DeleteFrom("votes").
		Where(qb.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build delete votes by match query: %w", err)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete votes by match: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		removed = 0
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete votes by match: %w", err)
	}
	return removed, nil
}
