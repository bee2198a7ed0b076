package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/danuandrian/matchvote/internal/domain/synclog"
	qb "github.com/danuandrian/matchvote/internal/platform/querybuilder"
)

type syncLogTableModel struct {
	ID         int64     `db:"id"`
	Type       string    `db:"sync_type"`
	Status     string    `db:"status"`
	Created    int       `db:"items_created"`
	Updated    int       `db:"items_updated"`
	Processed  int       `db:"items_processed"`
	Message    string    `db:"message"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

func (m syncLogTableModel) toDomain() synclog.Entry {
	return synclog.Entry{
		ID:         m.ID,
		Type:       m.Type,
		Status:     m.Status,
		Created:    m.Created,
		Updated:    m.Updated,
		Processed:  m.Processed,
		Message:    m.Message,
		StartedAt:  m.StartedAt.UTC(),
		FinishedAt: m.FinishedAt.UTC(),
	}
}

type syncLogInsertModel struct {
	Type       string    `db:"sync_type"`
	Status     string    `db:"status"`
	Created    int       `db:"items_created"`
	Updated    int       `db:"items_updated"`
	Processed  int       `db:"items_processed"`
	Message    string    `db:"message"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

type SyncLogRepository struct {
	db *sqlx.DB
}

func NewSyncLogRepository(db *sqlx.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

func (r *SyncLogRepository) Append(ctx context.Context, entry synclog.Entry) (synclog.Entry, error) {
	insertModel := syncLogInsertModel{
		Type:       entry.Type,
		Status:     entry.Status,
		Created:    entry.Created,
		Updated:    entry.Updated,
		Processed:  entry.Processed,
		Message:    entry.Message,
		StartedAt:  entry.StartedAt.UTC(),
		FinishedAt: entry.FinishedAt.UTC(),
	}
	query, args, err := qb.InsertModel("sync_logs", insertModel, "RETURNING *")
	if err != nil {
		return synclog.Entry{}, fmt.Errorf("build insert sync log query: %w", err)
	}

	var row syncLogTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return synclog.Entry{}, fmt.Errorf("insert sync log: %w", err)
	}
	return row.toDomain(), nil
}

func (r *SyncLogRepository) List(ctx context.Context, syncType string, limit int) ([]synclog.Entry, error) {
	builder := qb.Select("*").From("sync_logs")
	if strings.TrimSpace(syncType) != "" {
		builder = builder.Where(qb.Eq("sync_type", syncType))
	}
	query, args, err := builder.
		OrderBy("started_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select sync logs query: %w", err)
	}

	var rows []syncLogTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select sync logs: %w", err)
	}

	out := make([]synclog.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *SyncLogRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := qb.DeleteFrom("sync_logs").
		Where(qb.Lt("started_at", cutoff.UTC())).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build prune sync logs query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("prune sync logs: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return removed, nil
}
