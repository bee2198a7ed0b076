package postgres

import (
	"database/sql"
	"time"

	"github.com/danuandrian/matchvote/internal/domain/vote"
)

type voteCategoryTableModel struct {
	ID        int64     `db:"id"`
	Key       string    `db:"category_key"`
	Name      string    `db:"name"`
	IsActive  bool      `db:"is_active"`
	SortOrder int       `db:"sort_order"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (m voteCategoryTableModel) toDomain() vote.Category {
	return vote.Category{
		ID:        m.ID,
		Key:       m.Key,
		Name:      m.Name,
		IsActive:  m.IsActive,
		SortOrder: m.SortOrder,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type voteCategoryInsertModel struct {
	Key       string `db:"category_key"`
	Name      string `db:"name"`
	IsActive  bool   `db:"is_active"`
	SortOrder int    `db:"sort_order"`
}

type voteOptionTableModel struct {
	ID         int64         `db:"id"`
	CategoryID int64         `db:"category_id"`
	MatchID    sql.NullInt64 `db:"match_id"`
	Label      string        `db:"label"`
	Kind       string        `db:"kind"`
	SortOrder  int           `db:"sort_order"`
	IsActive   bool          `db:"is_active"`
	VotesCount int           `db:"votes_count"`
	CreatedAt  time.Time     `db:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at"`
}

func (m voteOptionTableModel) toDomain() vote.Option {
	return vote.Option{
		ID:         m.ID,
		CategoryID: m.CategoryID,
		MatchID:    nullIDToPtr(m.MatchID),
		Label:      m.Label,
		Kind:       m.Kind,
		SortOrder:  m.SortOrder,
		IsActive:   m.IsActive,
		VotesCount: m.VotesCount,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type voteOptionInsertModel struct {
	CategoryID int64         `db:"category_id"`
	MatchID    sql.NullInt64 `db:"match_id"`
	Label      string        `db:"label"`
	Kind       string        `db:"kind"`
	SortOrder  int           `db:"sort_order"`
	IsActive   bool          `db:"is_active"`
}

type voteTableModel struct {
	ID         int64     `db:"id"`
	MatchID    int64     `db:"match_id"`
	CategoryID int64     `db:"category_id"`
	OptionID   int64     `db:"option_id"`
	VoterKey   string    `db:"voter_key"`
	Surface    string    `db:"surface"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (m voteTableModel) toDomain() vote.Vote {
	return vote.Vote{
		ID:         m.ID,
		MatchID:    m.MatchID,
		CategoryID: m.CategoryID,
		OptionID:   m.OptionID,
		VoterKey:   m.VoterKey,
		Surface:    m.Surface,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

type voteInsertModel struct {
	MatchID    int64  `db:"match_id"`
	CategoryID int64  `db:"category_id"`
	OptionID   int64  `db:"option_id"`
	VoterKey   string `db:"voter_key"`
	Surface    string `db:"surface"`
}
